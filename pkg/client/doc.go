/*
Package client is a small Rancher v2-beta API client built on resty.

Every request is scoped to one project (environment): the base address is
<rancher_url>/v2-beta/projects/<project_id>, authenticated with the API
access key and secret key as HTTP basic credentials. Bodies are encoded and
decoded as JSON.

Any network failure or non-2xx answer is returned as *TransportError. The
client never retries a request.

	c := client.New(client.Config{
		URL:       "https://rancher.example.com",
		AccessKey: access,
		SecretKey: secret,
		ProjectID: "1a5",
	})

	stacks, err := c.FindStacks(ctx, "web")
	if err != nil {
		return err
	}
	stack, ok := stacks.First()
*/
package client
