package harness

import (
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/report"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Set is the full output of the run, used for golden snapshots.
	Set report.Set `json:"-"`

	Summary report.Summary `json:"summary"`
	Run     ir.RunRecord   `json:"run"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records a failed assertion and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
