package models

// These structs define the JSON payloads exchanged with the booking flow
// and with the completion service.

// InboundEvent is the raw booking payload posted by the booking flow. It is
// kept untyped until the validator has accepted it.
type InboundEvent map[string]interface{}

// Inbound field names.
const (
	FieldContactName   = "contact_name"
	FieldContactPhone  = "contact_phone"
	FieldContactEmail  = "contact_email"
	FieldCompanyName   = "company_name"
	FieldCompanyURL    = "company_url"
	FieldAddress       = "address"
	FieldDate          = "date"
	FieldTime          = "time"
	FieldEstimatedSize = "estimated_size"
	FieldNotes         = "notes"
	FieldRecordID      = "record_id"
)

// ValidatedRequest is an InboundEvent the validator accepted.
type ValidatedRequest struct {
	ContactName   string  `json:"contactName"`
	ContactPhone  string  `json:"contactPhone"`
	ContactEmail  string  `json:"contactEmail,omitempty"`
	CompanyName   string  `json:"companyName"`
	CompanyURL    string  `json:"companyUrl,omitempty"`
	Address       string  `json:"address"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	EstimatedSize float64 `json:"estimatedSize"`
	Notes         string  `json:"notes,omitempty"`
	RecordID      string  `json:"recordId,omitempty"`
}

// ValidationError describes one rejected inbound field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validation error codes.
const (
	CodeRequired      = "required"
	CodeInvalidType   = "invalid_type"
	CodeInvalidNumber = "invalid_number"
)

// ToolSet declares the remote tool-broker server and the bounded list of
// actions the completion service may invoke on it for one call.
type ToolSet struct {
	ServerLabel    string
	ServerURL      string
	BearerToken    string
	AllowedActions []string
}

// CompletionRequest is one prompt sent to the completion service.
type CompletionRequest struct {
	Prompt string
	Tools  ToolSet
}

// RawResponse is the decoded completion-service body. Its shape varies by
// service version, so it is only ever read through the text resolver.
type RawResponse map[string]interface{}

// PhaseOneResult is the phase-1 portion of a WorkflowResult.
type PhaseOneResult struct {
	Text   string            `json:"text"`
	Fields map[string]string `json:"fields"`
}

// PhaseTwoResult is the phase-2 portion of a WorkflowResult.
type PhaseTwoResult struct {
	Text string            `json:"text"`
	URLs map[string]string `json:"urls"`
}

// WorkflowResult is the success body of the mapping-confirmation function.
type WorkflowResult struct {
	RunID                    string             `json:"runId"`
	RecordID                 string             `json:"recordId,omitempty"`
	State                    string             `json:"state"`
	EstimatedDurationMinutes float64            `json:"estimatedDurationMinutes"`
	PhaseOne                 PhaseOneResult     `json:"phaseOne"`
	PhaseTwo                 PhaseTwoResult     `json:"phaseTwo"`
	PersistenceOutcome       PersistenceOutcome `json:"persistenceOutcome"`
}

// ValidationErrorResponse is the 400 body.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors"`
}

// FailureResponse is the 500 body.
type FailureResponse struct {
	Error   string                 `json:"error"`
	Kind    string                 `json:"kind"`
	Details map[string]interface{} `json:"details"`
}
