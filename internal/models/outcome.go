package models

// SideEffectStatus is the tri-state of one persistence side effect.
type SideEffectStatus string

const (
	StatusNotAttempted SideEffectStatus = "not_attempted"
	StatusSucceeded    SideEffectStatus = "succeeded"
	StatusFailed       SideEffectStatus = "failed"
)

// SideEffect records whether one write happened and why it did not.
type SideEffect struct {
	Status SideEffectStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

// DocumentOutcome is the document-store merge result.
type DocumentOutcome struct {
	Merge bool `json:"merge"`
	SideEffect
}

// PersistenceOutcome reports the blob write, the document merge and the
// optional downstream hand-off independently of each other.
type PersistenceOutcome struct {
	Storage  *string         `json:"storage"`
	Blob     SideEffect      `json:"blob"`
	Document DocumentOutcome `json:"document"`
	Handoff  SideEffect      `json:"handoff"`
	Error    *string         `json:"error"`
}

// NewPersistenceOutcome returns an outcome with every side effect marked not attempted.
func NewPersistenceOutcome() PersistenceOutcome {
	return PersistenceOutcome{
		Blob:     SideEffect{Status: StatusNotAttempted},
		Document: DocumentOutcome{SideEffect: SideEffect{Status: StatusNotAttempted}},
		Handoff:  SideEffect{Status: StatusNotAttempted},
	}
}

// Failed reports whether any attempted side effect failed.
func (o PersistenceOutcome) Failed() bool {
	return o.Blob.Status == StatusFailed || o.Document.Status == StatusFailed || o.Handoff.Status == StatusFailed
}
