// File: internal/action/outcome.go
package action

// OutcomeStatus classifies what happened to an attempted action.
type OutcomeStatus string

const (
	OutcomeSuccess  OutcomeStatus = "success"
	OutcomeFailed   OutcomeStatus = "failed"
	OutcomeRejected OutcomeStatus = "rejected"
	OutcomeNone     OutcomeStatus = "none"
)

// Outcome is the execution result stored on steps and memory records.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Detail string        `json:"detail,omitempty"`
}

func Succeeded(detail string) Outcome { return Outcome{Status: OutcomeSuccess, Detail: detail} }
func Failed(detail string) Outcome    { return Outcome{Status: OutcomeFailed, Detail: detail} }
func NoAction(detail string) Outcome  { return Outcome{Status: OutcomeNone, Detail: detail} }

// RejectedBy converts a validation rejection into an outcome.
func RejectedBy(r *Rejection) Outcome {
	return Outcome{Status: OutcomeRejected, Detail: r.Error()}
}

// OK reports whether the action reached the device without error.
func (o Outcome) OK() bool { return o.Status == OutcomeSuccess }

func (o Outcome) String() string {
	if o.Detail == "" {
		return string(o.Status)
	}
	return string(o.Status) + ": " + o.Detail
}
