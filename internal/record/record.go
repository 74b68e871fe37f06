// Package record owns the persisted invoice status records. Records are the
// only entities with external identity and a mutable lifecycle; drafts and
// approved invoices stay value objects.
package record

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the invoice lifecycle status. Transitions are monotonic in
// practice (pending -> processing -> success|fail|overdue) but the store
// enforces no graph; that discipline belongs to the pipeline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFail       Status = "fail"
	StatusOverdue    Status = "overdue"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusSuccess:    true,
	StatusFail:       true,
	StatusOverdue:    true,
}

// IsValid returns true for a known lifecycle status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// InvoiceType classifies how an invoice originated
type InvoiceType string

const (
	TypeRecurring   InvoiceType = "recurring"
	TypeOpportunity InvoiceType = "opportunity"
)

// IsValid returns true for a known invoice type
func (t InvoiceType) IsValid() bool {
	return t == TypeRecurring || t == TypeOpportunity
}

// Record is a persisted invoice status row keyed by invoice id. Amounts are
// decimal-precision, never binary floats.
type Record struct {
	InvoiceID    string          `json:"invoice_id"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	Status       Status          `json:"status"`
	InvoiceType  InvoiceType     `json:"invoice_type"`
	RiskLevel    string          `json:"risk_level"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// OverdueInvoice is an overdue recurring record annotated with how many days
// past due it is.
type OverdueInvoice struct {
	Record
	OverdueDays int `json:"overdue_days"`
}

// StatusStats aggregates one status bucket for the dashboard
type StatusStats struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// DashboardStats is the dashboard aggregate: per-status buckets plus revenue
// recognized today.
type DashboardStats struct {
	TodayRevenue decimal.Decimal        `json:"today_revenue"`
	InvoiceStats map[Status]StatusStats `json:"invoice_stats"`
}
