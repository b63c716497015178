package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/rancher-deploy/pkg/client"
	"github.com/cuemby/rancher-deploy/pkg/poller"
)

const projectPrefix = "/v2-beta/projects/1a5"

// fakeRancher emulates the parts of the Rancher API a deployment touches
type fakeRancher struct {
	mu sync.Mutex

	stacks   string
	services string

	// serviceState is reported by GET /services/{id}; actions move it forward
	serviceState     string
	upgradedState    string
	pullStates       []string
	upgradeStatus    int
	pullTaskRequests int

	requests    []string
	upgradeBody []byte
	pullBody    []byte
}

func newFakeRancher() *fakeRancher {
	return &fakeRancher{
		stacks:        `{"data":[{"id":"1st1"}]}`,
		services:      `{"data":[{"id":"1s1","launchConfig":{"imageUuid":"docker:old:1.0"}}]}`,
		serviceState:  "active",
		upgradedState: "upgraded",
		pullStates:    []string{"active"},
		upgradeStatus: http.StatusOK,
	}
}

func (f *fakeRancher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, projectPrefix)
	entry := r.Method + " " + path
	if action := r.URL.Query().Get("action"); action != "" {
		entry += "?action=" + action
	}
	f.requests = append(f.requests, entry)

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "/stacks":
		_, _ = io.WriteString(w, f.stacks)

	case r.Method == http.MethodGet && path == "/services":
		_, _ = io.WriteString(w, f.services)

	case r.Method == http.MethodPost && path == "/pulltasks":
		f.pullBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"1pt1","state":"pending"}`)

	case r.Method == http.MethodGet && path == "/pulltasks/1pt1":
		state := f.pullStates[0]
		if len(f.pullStates) > 1 {
			f.pullStates = f.pullStates[1:]
		}
		writeState(w, "1pt1", state)

	case r.Method == http.MethodPost && path == "/service/1s1":
		switch r.URL.Query().Get("action") {
		case "upgrade":
			f.upgradeBody, _ = io.ReadAll(r.Body)
			if f.upgradeStatus != http.StatusOK {
				w.WriteHeader(f.upgradeStatus)
				_, _ = io.WriteString(w, `{"type":"error","message":"upgrade rejected"}`)
				return
			}
			f.serviceState = f.upgradedState
		case "finishupgrade":
			f.serviceState = "active"
		}
		writeState(w, "1s1", "upgrading")

	case r.Method == http.MethodGet && path == "/services/1s1":
		writeState(w, "1s1", f.serviceState)

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"type":"error","message":"not found"}`)
	}
}

func writeState(w http.ResponseWriter, id, state string) {
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "state": state})
}

func (f *fakeRancher) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func newTestDeployer(t *testing.T, fake *fakeRancher) *Deployer {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	c := client.New(client.Config{
		URL:       server.URL,
		AccessKey: "access",
		SecretKey: "secret",
		ProjectID: "1a5",
	})
	noSleep := func(ctx context.Context, d time.Duration) error { return nil }

	return NewDeployer(c, poller.New(c, 3, 5*time.Second).WithSleep(noSleep))
}

func TestDeployEndToEnd(t *testing.T) {
	fake := newFakeRancher()
	d := newTestDeployer(t, fake)

	result, err := d.Deploy(context.Background(), Request{
		StackName:   "web",
		ServiceName: "api",
		Image:       "new:2.0",
	})
	require.NoError(t, err)

	assert.Equal(t, &Result{
		StackID:       "1st1",
		ServiceID:     "1s1",
		PreviousImage: "old:1.0",
		Image:         "new:2.0",
	}, result)

	assert.Equal(t, []string{
		"GET /stacks",
		"GET /services",
		"POST /service/1s1?action=upgrade",
		"GET /services/1s1",
		"POST /service/1s1?action=finishupgrade",
		"GET /services/1s1",
	}, fake.recorded())

	assert.JSONEq(t, `{"inServiceStrategy":{"launchConfig":{"imageUuid":"docker:new:2.0"}}}`, string(fake.upgradeBody))
}

func TestDeployPreservesLaunchConfig(t *testing.T) {
	fake := newFakeRancher()
	fake.services = `{"data":[{"id":"1s1","launchConfig":{
		"imageUuid":"docker:old:1.0",
		"environment":{"MODE":"production"},
		"labels":{"io.rancher.scheduler.global":"true"},
		"memory":268435456
	}}]}`
	d := newTestDeployer(t, fake)

	_, err := d.Deploy(context.Background(), Request{StackName: "web", ServiceName: "api", Image: "new:2.0"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"inServiceStrategy":{"launchConfig":{
		"imageUuid":"docker:new:2.0",
		"environment":{"MODE":"production"},
		"labels":{"io.rancher.scheduler.global":"true"},
		"memory":268435456
	}}}`, string(fake.upgradeBody))
}

func TestDeployPullsImageFirst(t *testing.T) {
	fake := newFakeRancher()
	fake.pullStates = []string{"pulling", "active"}
	d := newTestDeployer(t, fake)

	result, err := d.Deploy(context.Background(), Request{
		StackName:   "web",
		ServiceName: "api",
		Image:       "x:1",
		Pull:        true,
	})
	require.NoError(t, err)
	assert.True(t, result.Pulled)

	assert.JSONEq(t, `{"image":"x:1","mode":"all"}`, string(fake.pullBody))
	assert.Equal(t, []string{
		"GET /stacks",
		"GET /services",
		"POST /pulltasks",
		"GET /pulltasks/1pt1",
		"GET /pulltasks/1pt1",
		"POST /service/1s1?action=upgrade",
		"GET /services/1s1",
		"POST /service/1s1?action=finishupgrade",
		"GET /services/1s1",
	}, fake.recorded())
}

func TestDeployStackNotFound(t *testing.T) {
	fake := newFakeRancher()
	fake.stacks = `{"data":[]}`
	d := newTestDeployer(t, fake)

	_, err := d.Deploy(context.Background(), Request{StackName: "web", ServiceName: "api", Image: "new:2.0"})

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "stack", notFound.Kind)
	assert.Equal(t, "web", notFound.Name)
	assert.Equal(t, "Could not find stack name. Check the stack_name input. Deploy failed!", err.Error())
	assert.Equal(t, []string{"GET /stacks"}, fake.recorded())
}

func TestDeployServiceNotFound(t *testing.T) {
	fake := newFakeRancher()
	fake.services = `{"data":[]}`
	d := newTestDeployer(t, fake)

	_, err := d.Deploy(context.Background(), Request{StackName: "web", ServiceName: "api", Image: "new:2.0", Pull: true})

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "service", notFound.Kind)
	assert.Equal(t, []string{"GET /stacks", "GET /services"}, fake.recorded())
}

func TestDeployUpgradeTimeout(t *testing.T) {
	fake := newFakeRancher()
	fake.upgradedState = "upgrading"
	d := newTestDeployer(t, fake)

	_, err := d.Deploy(context.Background(), Request{StackName: "web", ServiceName: "api", Image: "new:2.0"})

	var timeout *poller.TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, "upgraded", timeout.Target.State)

	requests := fake.recorded()
	assert.Len(t, requests, 6, "three state fetches after the upgrade")
	assert.NotContains(t, requests, "POST /service/1s1?action=finishupgrade")
}

func TestDeployUpgradeRejected(t *testing.T) {
	fake := newFakeRancher()
	fake.upgradeStatus = http.StatusUnprocessableEntity
	d := newTestDeployer(t, fake)

	_, err := d.Deploy(context.Background(), Request{StackName: "web", ServiceName: "api", Image: "new:2.0"})

	var te *client.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnprocessableEntity, te.StatusCode)
	assert.Contains(t, err.Error(), "upgrade rejected")
	assert.Equal(t, []string{"GET /stacks", "GET /services", "POST /service/1s1?action=upgrade"}, fake.recorded())
}

func TestDeployMissingLaunchConfig(t *testing.T) {
	fake := newFakeRancher()
	fake.services = `{"data":[{"id":"1s1"}]}`
	d := newTestDeployer(t, fake)

	_, err := d.Deploy(context.Background(), Request{StackName: "web", ServiceName: "api", Image: "new:2.0"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no launch configuration")
	assert.Equal(t, []string{"GET /stacks", "GET /services"}, fake.recorded())
}

func TestDeployAmbiguousStackUsesFirst(t *testing.T) {
	fake := newFakeRancher()
	fake.stacks = `{"data":[{"id":"1st1"},{"id":"1st2"}]}`
	d := newTestDeployer(t, fake)

	result, err := d.Deploy(context.Background(), Request{StackName: "web", ServiceName: "api", Image: "new:2.0"})
	require.NoError(t, err)
	assert.Equal(t, "1st1", result.StackID)
}
