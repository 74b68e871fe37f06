package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPreview(t *testing.T) {
	preview := `{"type": "invoice_preview", "invoice_id": "DRAFT-20250920-a1b2c3", "total_amount": 20}`

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "clean json untouched",
			in:   preview,
			want: preview,
		},
		{
			name: "thinking block stripped",
			in:   "<thinking>lookup the account first</thinking>\n" + preview,
			want: preview,
		},
		{
			name: "json fences stripped",
			in:   "```json\n" + preview + "\n```",
			want: preview,
		},
		{
			name: "leading prose before preview dropped",
			in:   "Here is the invoice draft:\n\n" + preview,
			want: preview,
		},
		{
			name: "trailing prose after preview dropped",
			in:   preview + "\nLet me know if you want changes.",
			want: preview,
		},
		{
			name: "non-preview reply passes through trimmed",
			in:   "  {\"type\": \"error\", \"message\": \"CRM lookup failed\"}  ",
			want: `{"type": "error", "message": "CRM lookup failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPreview(tt.in))
		})
	}
}

func TestExtractPreview_AllLayersCombined(t *testing.T) {
	preview := `{"type": "invoice_preview", "invoice_id": "DRAFT-20250920-a1b2c3"}`
	in := "<thinking>checking CRM</thinking>\nSure, here it is:\n```json\n" + preview + "\n```"

	assert.Equal(t, preview, ExtractPreview(in))
}
