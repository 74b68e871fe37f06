// Package pipeline sequences the invoice orchestration workflow: CRM lookup,
// normalization, draft preview, and the approved render/publish/notify path.
// Each step returns a classified outcome; the controller short-circuits on
// the first terminal failure and never cleans up earlier steps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hackgoldship/invoice-agent/internal/crm"
	"github.com/hackgoldship/invoice-agent/internal/invoice"
	"github.com/hackgoldship/invoice-agent/internal/record"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Renderer merges an approved invoice into the stored template
type Renderer interface {
	Render(ctx context.Context, inv *invoice.Approved) (string, error)
}

// Converter turns rendered HTML into document bytes
type Converter interface {
	Convert(html string) ([]byte, error)
}

// Publisher stores the document and returns a retrievable URL
type Publisher interface {
	Publish(ctx context.Context, invoiceNumber string, doc []byte) (string, error)
}

// Notifier delivers the advisory notification
type Notifier interface {
	Publish(ctx context.Context, subject, message string) (string, error)
}

// RecordStore tracks invoice lifecycle status records
type RecordStore interface {
	Create(ctx context.Context, rec *record.Record) error
	UpdateStatus(ctx context.Context, invoiceID string, status record.Status) error
}

// Controller drives one invoice through the pipeline. Invocations are
// sequential and single-threaded; concurrent invoices get independent
// controller calls.
type Controller struct {
	oracle    crm.Oracle
	drafts    *invoice.Builder
	renderer  Renderer
	converter Converter
	publisher Publisher
	notifier  Notifier
	records   RecordStore
	newNumber func(time.Time) string
	now       func() time.Time
	logger    *zap.Logger
}

// NewController wires the pipeline components
func NewController(
	oracle crm.Oracle,
	drafts *invoice.Builder,
	renderer Renderer,
	converter Converter,
	publisher Publisher,
	notifier Notifier,
	records RecordStore,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		oracle:    oracle,
		drafts:    drafts,
		renderer:  renderer,
		converter: converter,
		publisher: publisher,
		notifier:  notifier,
		records:   records,
		newNumber: invoice.NewInvoiceNumber,
		now:       time.Now,
		logger:    logger,
	}
}

// Preview turns a free-text intent into an invoice draft preview. The
// pipeline suspends at AwaitingApproval: the draft is handed to the caller
// and comes back through ApproveAndSend on a later invocation.
func (c *Controller) Preview(ctx context.Context, intent string) (*invoice.Preview, error) {
	m := NewMachine(StateReceived)

	resp, err := c.oracle.Query(ctx, intent)
	if err != nil {
		c.fail(m, "oracle query failed", err)
		if errors.Is(err, crm.ErrMalformed) || errors.Is(err, crm.ErrEmpty) {
			return nil, NewFailure(KindOracleMalformed, "CRM returned an unusable response.", err)
		}
		return nil, NewFailure(KindOracleUnavailable, fmt.Sprintf("CRM lookup failed: %v", err), err)
	}
	if resp.Error != "" {
		c.fail(m, "oracle reported error", errors.New(resp.Error))
		return nil, NewFailure(KindOracleUnavailable, resp.Error, nil)
	}

	items, err := invoice.Normalize(resp)
	if err != nil {
		c.fail(m, "normalization failed", err)
		return nil, NewFailure(KindNoProductData, "No product data was found in the CRM response.", err)
	}
	c.advance(m, StateNormalized)

	draft := c.drafts.Build(resp.Account, resp.Contact, items)
	c.advance(m, StateDraftReady)
	c.advance(m, StateAwaitingApproval)

	c.logger.Info("Invoice draft ready for approval",
		zap.String("invoice_id", draft.InvoiceID),
		zap.Float64("total_amount", draft.TotalAmount),
		zap.Int("line_items", len(draft.LineItems)))

	return invoice.NewPreview(draft), nil
}

// ApproveAndSend resumes the pipeline with an approved draft: assigns the
// durable invoice number, renders and publishes the document, and notifies
// the customer. Resubmitting the same draft yields a new invoice number;
// the pipeline is not exactly-once.
func (c *Controller) ApproveAndSend(ctx context.Context, draft *invoice.Draft) (*SendOutcome, error) {
	m := NewMachine(StateAwaitingApproval)

	number := c.newNumber(c.now())
	inv := &invoice.Approved{Draft: *draft, InvoiceNumber: number}
	c.advance(m, StateApproved)

	c.logger.Info("Invoice approved",
		zap.String("invoice_id", draft.InvoiceID),
		zap.String("invoice_number", number))

	// Lifecycle tracking is opportunistic: record store errors are logged,
	// never terminal for the send.
	c.trackCreate(ctx, inv)
	c.trackStatus(ctx, number, record.StatusProcessing)

	html, err := c.renderer.Render(ctx, inv)
	if err != nil {
		c.fail(m, "render failed", err)
		c.trackStatus(ctx, number, record.StatusFail)
		return nil, NewFailure(KindRenderFailed, fmt.Sprintf("Template fetching/rendering failed: %v", err), err)
	}
	inv.RenderedHTML = html
	c.advance(m, StateRendered)

	doc, err := c.converter.Convert(html)
	if err != nil {
		c.fail(m, "pdf conversion failed", err)
		c.trackStatus(ctx, number, record.StatusFail)
		return nil, NewFailure(KindRenderFailed, fmt.Sprintf("PDF generation failed: %v", err), err)
	}

	url, err := c.publisher.Publish(ctx, number, doc)
	if err != nil {
		c.fail(m, "publish failed", err)
		c.trackStatus(ctx, number, record.StatusFail)
		return nil, NewFailure(KindPublishFailed, fmt.Sprintf("Document upload failed: %v", err), err)
	}
	inv.DocumentURL = url
	c.advance(m, StatePublished)

	accountName := draft.AccountName()
	snsStatus := "success"
	message := fmt.Sprintf("Invoice %s has been generated for %s. PDF available at: %s", number, accountName, url)
	if _, err := c.notifier.Publish(ctx, "Invoice Generated", message); err != nil {
		// Advisory only: report, never roll back the publish
		snsStatus = "error"
		c.logger.Warn("Notification delivery failed",
			zap.String("invoice_number", number),
			zap.Error(err))
	}
	c.advance(m, StateNotified)

	c.trackStatus(ctx, number, record.StatusSuccess)

	return &SendOutcome{
		Invoice: inv,
		Sent: SentPayload{
			Type:          SentType,
			InvoiceNumber: number,
			Account:       accountName,
			Contact:       draft.ContactName(),
			PDFURL:        url,
			FinalHTML:     html,
			Status:        "Invoice PDF uploaded to storage",
		},
		ApprovedSent: ApprovedSentPayload{
			Type:          ApprovedSentType,
			InvoiceNumber: number,
			Account:       accountName,
			PDFURL:        url,
			SNSStatus:     snsStatus,
			Message:       fmt.Sprintf("Invoice %s approved, PDF generated, and email notification sent", number),
		},
	}, nil
}

// MarkPayment updates an invoice record after a payment webhook. The
// returned identifier equals the invoice id; there is no separate payment
// numbering scheme.
func (c *Controller) MarkPayment(ctx context.Context, invoiceID string, ok bool) (string, error) {
	status := record.StatusSuccess
	if !ok {
		status = record.StatusFail
	}

	if err := c.records.UpdateStatus(ctx, invoiceID, status); err != nil {
		if errors.Is(err, record.ErrRecordNotFound) {
			return "", NewFailure(KindRecordNotFound, fmt.Sprintf("No invoice record found for %s", invoiceID), err)
		}
		return "", fmt.Errorf("update invoice record: %w", err)
	}
	return invoiceID, nil
}

func (c *Controller) trackCreate(ctx context.Context, inv *invoice.Approved) {
	rec := &record.Record{
		InvoiceID:    inv.InvoiceNumber,
		CustomerName: inv.AccountName(),
		Amount:       decimal.NewFromFloat(inv.TotalAmount),
		Status:       record.StatusPending,
		InvoiceType:  record.TypeOpportunity,
	}
	if err := c.records.Create(ctx, rec); err != nil {
		c.logger.Warn("Failed to create invoice record",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err))
	}
}

func (c *Controller) trackStatus(ctx context.Context, invoiceNumber string, status record.Status) {
	if err := c.records.UpdateStatus(ctx, invoiceNumber, status); err != nil {
		c.logger.Warn("Failed to update invoice record",
			zap.String("invoice_number", invoiceNumber),
			zap.String("status", status.String()),
			zap.Error(err))
	}
}

func (c *Controller) advance(m *Machine, to State) {
	if err := m.Advance(to); err != nil {
		c.logger.Error("Pipeline state error", zap.Error(err))
	}
}

func (c *Controller) fail(m *Machine, msg string, err error) {
	_ = m.Fail()
	c.logger.Error("Pipeline step failed",
		zap.String("step", msg),
		zap.String("state", m.State().String()),
		zap.Error(err))
}
