package models

// Payload is the downloadable artifact produced for a completed job.
// Text is only populated when the service runs with text output enabled.
type Payload struct {
	Text   *string `json:"text,omitempty"`
	Tables []Table `json:"tables"`
}

// NewPayload selects the exposed subset of an analysis result.
func NewPayload(res *AnalysisResult, includeText bool) Payload {
	p := Payload{Tables: res.Tables}
	if p.Tables == nil {
		p.Tables = []Table{}
	}
	if includeText {
		text := res.Content
		p.Text = &text
	}
	return p
}
