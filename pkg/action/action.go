package action

import (
	"strconv"

	"github.com/sethvargo/go-githubactions"
)

// OutputResult is the name of the output set after a deployment
const OutputResult = "result"

// Reporter publishes the outcome of a run to the GitHub Actions runner
type Reporter struct {
	action *githubactions.Action
}

// New creates a Reporter; options are passed to the actions toolkit
func New(opts ...githubactions.Option) *Reporter {
	return &Reporter{action: githubactions.New(opts...)}
}

// Mask hides a secret value from the workflow log
func (r *Reporter) Mask(secret string) {
	if secret != "" {
		r.action.AddMask(secret)
	}
}

// Succeeded sets the result output of a finished deployment
func (r *Reporter) Succeeded() {
	r.action.SetOutput(OutputResult, strconv.FormatBool(true))
}

// Failed annotates the run with the error message
func (r *Reporter) Failed(err error) {
	r.action.Errorf("%s", err.Error())
}
