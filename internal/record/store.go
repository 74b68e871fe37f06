package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hackgoldship/invoice-agent/pkg/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrRecordNotFound is returned by updates referencing an unknown invoice id.
// The store is left unmutated.
var ErrRecordNotFound = errors.New("invoice record not found")

const schema = `
CREATE TABLE IF NOT EXISTS invoice_records (
	invoice_id    TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL,
	amount        TEXT NOT NULL,
	status        TEXT NOT NULL,
	invoice_type  TEXT NOT NULL,
	risk_level    TEXT NOT NULL DEFAULT 'low',
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invoice_records_status ON invoice_records(status);
CREATE INDEX IF NOT EXISTS idx_invoice_records_customer ON invoice_records(customer_name);
`

// Recurring invoices fall due this long after creation
const recurringDueDays = 7

// Overdue listing only surfaces invoices more than this many days past due
const overdueGraceDays = 3

// Store persists invoice records. Single-row, last-writer-wins semantics:
// no optimistic concurrency token, callers serialize updates to one id when
// ordering matters.
type Store struct {
	db     *database.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates the store and ensures the schema exists
func NewStore(db *database.DB, logger *zap.Logger) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create invoice_records schema: %w", err)
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Create writes a record keyed by invoice id. Overwrite-on-same-key: the
// store does not check for duplicates, callers must guarantee id uniqueness.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	now := s.now()
	if rec.RiskLevel == "" {
		rec.RiskLevel = "low"
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO invoice_records (
			invoice_id, customer_name, amount, status, invoice_type, risk_level, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.InvoiceID,
		rec.CustomerName,
		rec.Amount.String(),
		string(rec.Status),
		string(rec.InvoiceType),
		rec.RiskLevel,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("Failed to create invoice record",
			zap.String("invoice_id", rec.InvoiceID),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice record: %w", err)
	}

	return nil
}

// UpdateStatus rewrites status and updated_at for an existing record
func (s *Store) UpdateStatus(ctx context.Context, invoiceID string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoice_records SET status = ?, updated_at = ? WHERE invoice_id = ?`,
		string(status), s.now(), invoiceID,
	)
	if err != nil {
		s.logger.Error("Failed to update invoice status",
			zap.String("invoice_id", invoiceID),
			zap.Error(err))
		return fmt.Errorf("failed to update invoice record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, invoiceID)
	}

	return nil
}

// Get retrieves a record by invoice id, nil when absent
func (s *Store) Get(ctx context.Context, invoiceID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT invoice_id, customer_name, amount, status, invoice_type, risk_level, created_at, updated_at
		 FROM invoice_records WHERE invoice_id = ?`, invoiceID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice record: %w", err)
	}
	return rec, nil
}

// ListByCustomer retrieves all records for a customer
func (s *Store) ListByCustomer(ctx context.Context, customerName string) ([]*Record, error) {
	return s.list(ctx,
		`SELECT invoice_id, customer_name, amount, status, invoice_type, risk_level, created_at, updated_at
		 FROM invoice_records WHERE customer_name = ? ORDER BY created_at DESC`, customerName)
}

// ListByStatus retrieves all records in a lifecycle status
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Record, error) {
	return s.list(ctx,
		`SELECT invoice_id, customer_name, amount, status, invoice_type, risk_level, created_at, updated_at
		 FROM invoice_records WHERE status = ? ORDER BY created_at DESC`, string(status))
}

// ListOverdueRecurring returns recurring invoices marked overdue that are
// more than three days past their due date (creation + 7 days), annotated
// with the days overdue.
func (s *Store) ListOverdueRecurring(ctx context.Context) ([]*OverdueInvoice, error) {
	records, err := s.list(ctx,
		`SELECT invoice_id, customer_name, amount, status, invoice_type, risk_level, created_at, updated_at
		 FROM invoice_records WHERE invoice_type = ? AND status = ?`,
		string(TypeRecurring), string(StatusOverdue))
	if err != nil {
		return nil, err
	}

	now := s.now()
	overdue := make([]*OverdueInvoice, 0, len(records))
	for _, rec := range records {
		dueDate := rec.CreatedAt.AddDate(0, 0, recurringDueDays)
		days := int(now.Sub(dueDate).Hours() / 24)
		if days > overdueGraceDays {
			overdue = append(overdue, &OverdueInvoice{Record: *rec, OverdueDays: days})
		}
	}

	return overdue, nil
}

// Stats aggregates the dashboard view: per-status count and amount, plus
// revenue from invoices that succeeded today.
func (s *Store) Stats(ctx context.Context) (*DashboardStats, error) {
	records, err := s.list(ctx,
		`SELECT invoice_id, customer_name, amount, status, invoice_type, risk_level, created_at, updated_at
		 FROM invoice_records`)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TodayRevenue: decimal.Zero,
		InvoiceStats: map[Status]StatusStats{
			StatusPending:    {Amount: decimal.Zero},
			StatusProcessing: {Amount: decimal.Zero},
			StatusSuccess:    {Amount: decimal.Zero},
			StatusFail:       {Amount: decimal.Zero},
			StatusOverdue:    {Amount: decimal.Zero},
		},
	}

	today := s.now().Format("2006-01-02")
	for _, rec := range records {
		bucket, ok := stats.InvoiceStats[rec.Status]
		if !ok {
			continue
		}
		bucket.Count++
		bucket.Amount = bucket.Amount.Add(rec.Amount)
		stats.InvoiceStats[rec.Status] = bucket

		if rec.Status == StatusSuccess && rec.CreatedAt.Format("2006-01-02") == today {
			stats.TodayRevenue = stats.TodayRevenue.Add(rec.Amount)
		}
	}

	return stats, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var amount, status, invoiceType string

	err := row.Scan(
		&rec.InvoiceID,
		&rec.CustomerName,
		&amount,
		&status,
		&invoiceType,
		&rec.RiskLevel,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	rec.Amount = dec
	rec.Status = Status(status)
	rec.InvoiceType = InvoiceType(invoiceType)

	return &rec, nil
}
