package invoice

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatusDraft is the only status a preview ever carries
const StatusDraft = "Draft"

// Payment terms: due date is issue date plus this many days
const paymentTermDays = 14

// approveAction is the single action offered on a preview
const approveAction = "✓ Approve & Send Invoice PDF to Email"

// Draft is a transient invoice preview surfaced for human approval. It is a
// value object: immutable once built and never persisted directly.
type Draft struct {
	InvoiceID   string          `json:"invoice_id"`
	Status      string          `json:"status"`
	IssueDate   string          `json:"issue_date"`
	DueDate     string          `json:"due_date"`
	Account     json.RawMessage `json:"account"`
	Contact     json.RawMessage `json:"contact"`
	LineItems   []LineItem      `json:"line_items"`
	TotalAmount float64         `json:"total_amount"`
	Currency    string          `json:"currency"`
}

// Approved is a draft that passed human approval and gained a durable
// external identity. The invoice number, not the draft id, keys storage and
// notifications.
type Approved struct {
	Draft
	InvoiceNumber string
	RenderedHTML  string
	DocumentURL   string
}

// Builder constructs drafts. Clock and id generation are injectable so tests
// can pin them.
type Builder struct {
	now   func() time.Time
	newID func(now time.Time) string
}

// NewBuilder creates a draft builder using the wall clock and random ids
func NewBuilder() *Builder {
	return &Builder{
		now:   time.Now,
		newID: NewDraftID,
	}
}

// NewBuilderWith creates a builder with explicit clock and id source
func NewBuilderWith(now func() time.Time, newID func(time.Time) string) *Builder {
	return &Builder{now: now, newID: newID}
}

// Build assembles a draft from canonical line items and opaque account and
// contact records. Pure apart from clock and randomness; no I/O.
func (b *Builder) Build(account, contact json.RawMessage, items []LineItem) *Draft {
	now := b.now()
	return &Draft{
		InvoiceID:   b.newID(now),
		Status:      StatusDraft,
		IssueDate:   now.Format("2006-01-02"),
		DueDate:     now.AddDate(0, 0, paymentTermDays).Format("2006-01-02"),
		Account:     orEmptyObject(account),
		Contact:     orEmptyObject(contact),
		LineItems:   items,
		TotalAmount: SumTotals(items),
		Currency:    "USD",
	}
}

// NewDraftID generates a draft identifier: DRAFT-YYYYMMDD-<6 hex>. The 24-bit
// random suffix is acceptable for draft-scope ids, not for storage keys.
func NewDraftID(now time.Time) string {
	return fmt.Sprintf("DRAFT-%s-%s", now.Format("20060102"), hexSuffix(6))
}

// NewInvoiceNumber generates the durable external identifier for an approved
// invoice: INV-YYYYMMDD-<8 hex>. A distinct numbering domain from draft ids.
func NewInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), hexSuffix(8))
}

// AccountName extracts the "name" field from the opaque account record,
// falling back to "Customer" for notifications.
func (d *Draft) AccountName() string {
	return rawName(d.Account, "Customer")
}

// ContactName extracts the "name" field from the opaque contact record
func (d *Draft) ContactName() string {
	return rawName(d.Contact, "Unknown")
}

func rawName(raw json.RawMessage, fallback string) string {
	var rec struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Name == "" {
		return fallback
	}
	return rec.Name
}

func hexSuffix(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
