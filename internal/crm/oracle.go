// Package crm defines the boundary to the CRM oracle: an opaque upstream that
// answers free-text intents with structured-or-error JSON.
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
)

var (
	// ErrMalformed is returned when the oracle response is not valid JSON
	ErrMalformed = errors.New("oracle returned malformed response")

	// ErrEmpty is returned when the response carries no recognized fields
	ErrEmpty = errors.New("oracle returned no valid data fields")
)

// ProductRow is a product entry under the top-level "products"/"product" keys
type ProductRow struct {
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	Quantity  *float64 `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
	Total     *float64 `json:"total_price"`
}

// OpportunityItem is a line item under "opportunity.line_items". Note the
// field-name skew from ProductRow: product_name/product_code instead of
// name/code.
type OpportunityItem struct {
	ProductName string   `json:"product_name"`
	ProductCode string   `json:"product_code"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Total       *float64 `json:"total_price"`
}

// Opportunity carries opportunity data; fields other than line_items are
// passed through opaquely.
type Opportunity struct {
	LineItems []OpportunityItem `json:"line_items"`
	Raw       json.RawMessage   `json:"-"`
}

// UnmarshalJSON keeps the raw bytes alongside the decoded line items
func (o *Opportunity) UnmarshalJSON(data []byte) error {
	type alias Opportunity
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = Opportunity(a)
	o.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Response is the sanitized oracle answer. Account and contact records are
// opaque: they flow through the pipeline verbatim.
type Response struct {
	Account       json.RawMessage `json:"account,omitempty"`
	Contact       json.RawMessage `json:"contact,omitempty"`
	Opportunity   *Opportunity    `json:"opportunity,omitempty"`
	Products      []ProductRow    `json:"products,omitempty"`
	Product       *ProductRow     `json:"product,omitempty"`
	Pricebook     json.RawMessage `json:"pricebook,omitempty"`
	User          json.RawMessage `json:"user,omitempty"`
	MissingFields []string        `json:"missing_fields,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Oracle answers a free-text intent with CRM data
type Oracle interface {
	Query(ctx context.Context, intent string) (*Response, error)
}

var validKeys = map[string]bool{
	"account":        true,
	"contact":        true,
	"opportunity":    true,
	"product":        true,
	"products":       true,
	"pricebook":      true,
	"user":           true,
	"missing_fields": true,
	"error":          true,
}

var fenceRe = regexp.MustCompile("(?m)^```(json)?|```$")

// Sanitize validates a raw oracle reply: strips markdown fences, parses the
// JSON object, and drops any keys outside the known schema. A reply that is
// not an object, or that loses every key to filtering, is rejected.
func Sanitize(raw string) (*Response, error) {
	cleaned := fenceRe.ReplaceAllString(raw, "")

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, ErrMalformed
	}

	filtered := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if validKeys[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return nil, ErrEmpty
	}

	merged, err := json.Marshal(filtered)
	if err != nil {
		return nil, ErrMalformed
	}

	var resp Response
	if err := json.Unmarshal(merged, &resp); err != nil {
		return nil, ErrMalformed
	}
	return &resp, nil
}
