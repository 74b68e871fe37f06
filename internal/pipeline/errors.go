package pipeline

import "errors"

// Kind classifies a pipeline failure
type Kind string

const (
	// KindNoProductData: normalization found nothing usable. Terminal,
	// user-facing.
	KindNoProductData Kind = "no_product_data"

	// KindOracleUnavailable: the CRM oracle failed or found nothing.
	// Terminal for this invocation, retryable by resubmission.
	KindOracleUnavailable Kind = "oracle_unavailable"

	// KindOracleMalformed: the oracle answered with unusable data
	KindOracleMalformed Kind = "oracle_malformed"

	// KindRenderFailed: template fetch or merge failure. Terminal.
	KindRenderFailed Kind = "render_failed"

	// KindPublishFailed: both upload paths exhausted. Terminal.
	KindPublishFailed Kind = "publish_failed"

	// KindNotifyFailed: delivery failed. Non-terminal: reported, never fails
	// the overall result.
	KindNotifyFailed Kind = "notify_failed"

	// KindRecordNotFound: an update referenced an unknown invoice id.
	// Terminal for that call only.
	KindRecordNotFound Kind = "record_not_found"
)

// Failure is a classified pipeline outcome. Components return these instead
// of raising past their boundary; the controller maps the first terminal
// failure to the error payload and stops.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (f *Failure) Error() string {
	return f.Message
}

// Unwrap exposes the underlying cause
func (f *Failure) Unwrap() error {
	return f.Err
}

// Payload converts the failure to the user-visible error object
func (f *Failure) Payload() ErrorPayload {
	return ErrorPayload{Type: "error", Message: f.Message}
}

// NewFailure builds a classified failure
func NewFailure(kind Kind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// AsFailure extracts a Failure from an error chain, nil when absent
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// ErrorPayload is the user-visible failure object. No partial side effects
// from the same invocation are ever exposed as success alongside it.
type ErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
