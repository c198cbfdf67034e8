package models

// FieldIssue is a single validity violation on a record field.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// InspectionReport is derived from a record and the configured required
// fields; it is never persisted. OK is true iff nothing is missing and
// nothing is invalid.
type InspectionReport struct {
	OK           bool         `json:"ok"`
	Missing      []string     `json:"missing"`
	Invalid      []FieldIssue `json:"invalid"`
	SuggestedFix string       `json:"suggested_fix"`
}

// Decision is the delegate's advisory next-step answer.
type Decision struct {
	NextStep string `json:"next_step"`
	Note     string `json:"note"`
}
