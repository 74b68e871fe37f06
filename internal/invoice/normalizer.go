// Package invoice holds the invoice domain: normalization of CRM product
// shapes into canonical line items, and deterministic draft construction.
package invoice

import (
	"errors"

	"github.com/hackgoldship/invoice-agent/internal/crm"
)

// ErrNoProductData is returned when no usable product source exists in the
// oracle response. Terminal for the pipeline: no draft can be built.
var ErrNoProductData = errors.New("no product data found in CRM response")

// Placeholders for fields the source omitted
const (
	defaultProductName = "Product"
	defaultProductCode = "N/A"
)

// LineItem is the canonical line-item shape. JSON field names are the
// external invoice_preview contract and must not change.
type LineItem struct {
	Product   string  `json:"product"`
	Code      string  `json:"code"`
	Qty       float64 `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// ProductSource identifies which of the alternative product representations
// a CRM response carries. Exactly one is selected, in priority order.
type ProductSource int

const (
	SourceNone ProductSource = iota
	SourceProducts
	SourceProduct
	SourceOpportunityItems
)

// String returns a readable name for logging
func (s ProductSource) String() string {
	switch s {
	case SourceProducts:
		return "products"
	case SourceProduct:
		return "product"
	case SourceOpportunityItems:
		return "opportunity.line_items"
	default:
		return "none"
	}
}

// ResolveSource picks the product source for a response by priority:
// top-level products list, then single product, then opportunity line items.
// Lower-priority sources are ignored even when present.
func ResolveSource(resp *crm.Response) ProductSource {
	switch {
	case len(resp.Products) > 0:
		return SourceProducts
	case resp.Product != nil:
		return SourceProduct
	case resp.Opportunity != nil && len(resp.Opportunity.LineItems) > 0:
		return SourceOpportunityItems
	default:
		return SourceNone
	}
}

// Normalize converts the selected product source into canonical line items.
// Missing quantities default to 1, missing prices and totals to 0. Totals are
// taken verbatim from the source, never recomputed from qty x unit price:
// upstream discounting may make the supplied total authoritative.
func Normalize(resp *crm.Response) ([]LineItem, error) {
	switch ResolveSource(resp) {
	case SourceProducts:
		items := make([]LineItem, 0, len(resp.Products))
		for _, row := range resp.Products {
			items = append(items, fromProductRow(row))
		}
		return items, nil

	case SourceProduct:
		return []LineItem{fromProductRow(*resp.Product)}, nil

	case SourceOpportunityItems:
		items := make([]LineItem, 0, len(resp.Opportunity.LineItems))
		for _, row := range resp.Opportunity.LineItems {
			items = append(items, LineItem{
				Product:   orDefault(row.ProductName, defaultProductName),
				Code:      orDefault(row.ProductCode, defaultProductCode),
				Qty:       numOr(row.Quantity, 1),
				UnitPrice: numOr(row.UnitPrice, 0),
				Total:     numOr(row.Total, 0),
			})
		}
		return items, nil

	default:
		return nil, ErrNoProductData
	}
}

// SumTotals adds up the supplied per-item totals
func SumTotals(items []LineItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.Total
	}
	return sum
}

func fromProductRow(row crm.ProductRow) LineItem {
	return LineItem{
		Product:   orDefault(row.Name, defaultProductName),
		Code:      orDefault(row.Code, defaultProductCode),
		Qty:       numOr(row.Quantity, 1),
		UnitPrice: numOr(row.UnitPrice, 0),
		Total:     numOr(row.Total, 0),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func numOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
