package invoice

import (
	"encoding/json"
	"fmt"
)

// PreviewType is the discriminator on the invoice_preview wire object
const PreviewType = "invoice_preview"

// Preview is the externally visible invoice_preview contract. Field names are
// consumed by the chat UI and dashboard and must stay stable.
type Preview struct {
	Type string `json:"type"`
	*Draft
	Actions []string `json:"actions"`
}

// NewPreview wraps a draft in the wire envelope
func NewPreview(d *Draft) *Preview {
	return &Preview{
		Type:    PreviewType,
		Draft:   d,
		Actions: []string{approveAction},
	}
}

// ParsePreview decodes an invoice_preview payload back into a draft. Used
// when an approved preview is handed back into the pipeline on a later
// invocation.
func ParsePreview(data []byte) (*Draft, error) {
	var p Preview
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preview: %w", err)
	}
	if p.Type != "" && p.Type != PreviewType {
		return nil, fmt.Errorf("parse preview: unexpected type %q", p.Type)
	}
	if p.Draft == nil {
		return nil, fmt.Errorf("parse preview: empty payload")
	}
	return p.Draft, nil
}
