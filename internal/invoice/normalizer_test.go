package invoice

import (
	"errors"
	"testing"

	"github.com/hackgoldship/invoice-agent/internal/crm"
)

func f(v float64) *float64 { return &v }

func TestResolveSource_Priority(t *testing.T) {
	tests := []struct {
		name string
		resp *crm.Response
		want ProductSource
	}{
		{
			name: "products wins over everything",
			resp: &crm.Response{
				Products:    []crm.ProductRow{{Name: "A"}},
				Product:     &crm.ProductRow{Name: "B"},
				Opportunity: &crm.Opportunity{LineItems: []crm.OpportunityItem{{ProductName: "C"}}},
			},
			want: SourceProducts,
		},
		{
			name: "single product beats opportunity items",
			resp: &crm.Response{
				Product:     &crm.ProductRow{Name: "B"},
				Opportunity: &crm.Opportunity{LineItems: []crm.OpportunityItem{{ProductName: "C"}}},
			},
			want: SourceProduct,
		},
		{
			name: "opportunity items as last resort",
			resp: &crm.Response{
				Opportunity: &crm.Opportunity{LineItems: []crm.OpportunityItem{{ProductName: "C"}}},
			},
			want: SourceOpportunityItems,
		},
		{
			name: "empty products list does not match",
			resp: &crm.Response{Products: []crm.ProductRow{}},
			want: SourceNone,
		},
		{
			name: "opportunity without line items does not match",
			resp: &crm.Response{Opportunity: &crm.Opportunity{}},
			want: SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveSource(tt.resp); got != tt.want {
				t.Errorf("ResolveSource() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize_ProductsTotalsTrustedVerbatim(t *testing.T) {
	// Supplied totals disagree with qty * unit_price on purpose: upstream
	// discounting must survive normalization.
	resp := &crm.Response{
		Products: []crm.ProductRow{
			{Name: "Widget", Code: "W1", Quantity: f(2), UnitPrice: f(60), Total: f(100)},
			{Name: "Gadget", Code: "G1", Quantity: f(1), UnitPrice: f(55), Total: f(50)},
		},
	}

	items, err := Normalize(resp)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Normalize() items = %d, want 2", len(items))
	}
	if items[0].Total != 100 || items[1].Total != 50 {
		t.Errorf("totals = %v/%v, want 100/50", items[0].Total, items[1].Total)
	}
	if got := SumTotals(items); got != 150 {
		t.Errorf("SumTotals() = %v, want 150", got)
	}
}

func TestNormalize_SingleProduct(t *testing.T) {
	resp := &crm.Response{
		Product: &crm.ProductRow{Name: "Widget", Code: "W1", Quantity: f(3), UnitPrice: f(10), Total: f(30)},
	}

	items, err := Normalize(resp)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Normalize() items = %d, want 1", len(items))
	}
	if items[0].Product != "Widget" || items[0].Qty != 3 {
		t.Errorf("item = %+v", items[0])
	}
}

func TestNormalize_OpportunityFieldNameBridge(t *testing.T) {
	resp := &crm.Response{
		Opportunity: &crm.Opportunity{
			LineItems: []crm.OpportunityItem{
				{ProductName: "Server", ProductCode: "S1", Quantity: f(3), UnitPrice: f(100), Total: f(300)},
			},
		},
	}

	items, err := Normalize(resp)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if items[0].Product != "Server" {
		t.Errorf("product = %q, want Server", items[0].Product)
	}
	if items[0].Code != "S1" {
		t.Errorf("code = %q, want S1", items[0].Code)
	}
	if items[0].Total != 300 {
		t.Errorf("total = %v, want 300", items[0].Total)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	resp := &crm.Response{
		Products: []crm.ProductRow{{}},
	}

	items, err := Normalize(resp)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	item := items[0]
	if item.Product != "Product" {
		t.Errorf("product = %q, want placeholder", item.Product)
	}
	if item.Code != "N/A" {
		t.Errorf("code = %q, want N/A", item.Code)
	}
	if item.Qty != 1 {
		t.Errorf("qty = %v, want 1", item.Qty)
	}
	if item.UnitPrice != 0 || item.Total != 0 {
		t.Errorf("prices = %v/%v, want 0/0", item.UnitPrice, item.Total)
	}
}

func TestNormalize_ExplicitZeroQuantityKept(t *testing.T) {
	resp := &crm.Response{
		Products: []crm.ProductRow{{Name: "Widget", Quantity: f(0)}},
	}

	items, err := Normalize(resp)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if items[0].Qty != 0 {
		t.Errorf("qty = %v, want explicit 0 preserved", items[0].Qty)
	}
}

func TestNormalize_NoProductData(t *testing.T) {
	_, err := Normalize(&crm.Response{})
	if !errors.Is(err, ErrNoProductData) {
		t.Errorf("Normalize() error = %v, want ErrNoProductData", err)
	}
}
