// Package render merges an approved invoice into the stored HTML template and
// converts the result into a PDF document body.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/hackgoldship/invoice-agent/internal/invoice"
	"go.uber.org/zap"
)

// ErrRenderFailed covers template fetch, parse, and merge failures. Terminal
// for the invoice: template content is human-curated and assumed stable, so
// the renderer never retries silently.
var ErrRenderFailed = errors.New("template rendering failed")

// TemplateStore fetches raw template text by key
type TemplateStore interface {
	Fetch(ctx context.Context, key string) (string, error)
}

// Renderer merges invoice data into the invoice template
type Renderer struct {
	store  TemplateStore
	key    string
	logger *zap.Logger
}

// NewRenderer creates a renderer bound to a fixed template key
func NewRenderer(store TemplateStore, key string, logger *zap.Logger) *Renderer {
	return &Renderer{store: store, key: key, logger: logger}
}

// Render fetches the template and substitutes the invoice fields into it.
// The invoice is exposed to the template as .invoice with its wire field
// names, so templates address values the same way downstream consumers do
// (e.g. {{.invoice.invoice_number}}).
func (r *Renderer) Render(ctx context.Context, inv *invoice.Approved) (string, error) {
	body, err := r.store.Fetch(ctx, r.key)
	if err != nil {
		r.logger.Error("Template fetch failed", zap.String("key", r.key), zap.Error(err))
		return "", fmt.Errorf("%w: fetch %s: %v", ErrRenderFailed, r.key, err)
	}

	tmpl, err := template.New(r.key).Parse(body)
	if err != nil {
		r.logger.Error("Template parse failed", zap.String("key", r.key), zap.Error(err))
		return "", fmt.Errorf("%w: parse %s: %v", ErrRenderFailed, r.key, err)
	}

	data, err := templateData(inv)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		r.logger.Error("Template merge failed", zap.String("key", r.key), zap.Error(err))
		return "", fmt.Errorf("%w: execute %s: %v", ErrRenderFailed, r.key, err)
	}

	return out.String(), nil
}

// templateData flattens the invoice through its JSON form so templates see
// the external field names rather than Go identifiers.
func templateData(inv *invoice.Approved) (map[string]any, error) {
	raw, err := json.Marshal(inv.Draft)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["invoice_number"] = inv.InvoiceNumber

	return map[string]any{"invoice": fields}, nil
}
