package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hackgoldship/invoice-agent/internal/config"
	"github.com/hackgoldship/invoice-agent/internal/pipeline"
	"github.com/hackgoldship/invoice-agent/internal/record"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPayments struct {
	markFn func(ctx context.Context, invoiceID string, ok bool) (string, error)
}

func (m *mockPayments) MarkPayment(ctx context.Context, invoiceID string, ok bool) (string, error) {
	return m.markFn(ctx, invoiceID, ok)
}

type mockBus struct {
	subjects []string
	messages []string
	err      error
}

func (m *mockBus) Publish(_ context.Context, subject, message string) (string, error) {
	m.subjects = append(m.subjects, subject)
	m.messages = append(m.messages, message)
	return "msg-001", m.err
}

type mockDashboard struct {
	statsFn   func(ctx context.Context) (*record.DashboardStats, error)
	overdueFn func(ctx context.Context) ([]*record.OverdueInvoice, error)
}

func (m *mockDashboard) Stats(ctx context.Context) (*record.DashboardStats, error) {
	return m.statsFn(ctx)
}

func (m *mockDashboard) ListOverdueRecurring(ctx context.Context) ([]*record.OverdueInvoice, error) {
	return m.overdueFn(ctx)
}

type mockAssistant struct {
	calls   int
	replyFn func(sessionID, text string) string
}

func (m *mockAssistant) HandleMessage(_ context.Context, sessionID, text string) string {
	m.calls++
	if m.replyFn != nil {
		return m.replyFn(sessionID, text)
	}
	return `{"type": "error", "message": "unused"}`
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Assistant == nil {
		opts.Assistant = &mockAssistant{}
	}
	if opts.DedupTTL == 0 {
		opts.DedupTTL = 10 * time.Minute
	}
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0}
	return NewServer(cfg, opts, zap.NewNop())
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestPaymentSuccessWebhook(t *testing.T) {
	var gotID string
	var gotOK bool
	s := newTestServer(t, Options{
		Payments: &mockPayments{markFn: func(_ context.Context, id string, ok bool) (string, error) {
			gotID, gotOK = id, ok
			return id, nil
		}},
		Bus: &mockBus{},
	})

	w := doJSON(s, http.MethodPost, "/api/webhook/payment/success", `{"invoice_id": "INV-20250920-a1b2c3d4"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "INV-20250920-a1b2c3d4", gotID)
	assert.True(t, gotOK)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "INV-20250920-a1b2c3d4", resp["invoice_id"])
}

func TestPaymentFailWebhookAlerts(t *testing.T) {
	bus := &mockBus{}
	var gotOK bool
	s := newTestServer(t, Options{
		Payments: &mockPayments{markFn: func(_ context.Context, id string, ok bool) (string, error) {
			gotOK = ok
			return id, nil
		}},
		Bus: bus,
	})

	w := doJSON(s, http.MethodPost, "/api/webhook/payment/fail", `{"invoice_id": "INV-20250920-a1b2c3d4"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gotOK)

	require.Len(t, bus.subjects, 1)
	assert.Equal(t, "Payment Failure Alert", bus.subjects[0])
	assert.Contains(t, bus.messages[0], "INV-20250920-a1b2c3d4")

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fail", resp["status"])
}

func TestPaymentWebhookUnknownInvoice(t *testing.T) {
	s := newTestServer(t, Options{
		Payments: &mockPayments{markFn: func(_ context.Context, id string, _ bool) (string, error) {
			return "", pipeline.NewFailure(pipeline.KindRecordNotFound, "No invoice record found for "+id, record.ErrRecordNotFound)
		}},
		Bus: &mockBus{},
	})

	w := doJSON(s, http.MethodPost, "/api/webhook/payment/success", `{"invoice_id": "INV-unknown"}`)

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp pipeline.ErrorPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Message, "INV-unknown")
}

func TestPaymentWebhookMissingInvoiceID(t *testing.T) {
	called := false
	s := newTestServer(t, Options{
		Payments: &mockPayments{markFn: func(context.Context, string, bool) (string, error) {
			called = true
			return "", nil
		}},
		Bus: &mockBus{},
	})

	w := doJSON(s, http.MethodPost, "/api/webhook/payment/success", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
}

func TestWhatsAppVerification(t *testing.T) {
	s := newTestServer(t, Options{VerifyToken: "sesame"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=sesame&hub.challenge=12345", nil)
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet,
		"/api/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func whatsAppTextPayload(id, body string) string {
	return `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{
						"id": "` + id + `",
						"from": "60123456789",
						"type": "text",
						"text": {"body": "` + body + `"}
					}]
				}
			}]
		}]
	}`
}

func TestWhatsAppMessageHandled(t *testing.T) {
	assistant := &mockAssistant{replyFn: func(sessionID, text string) string {
		return `{"type": "invoice_preview", "invoice_id": "DRAFT-1"}`
	}}
	s := newTestServer(t, Options{Assistant: assistant})

	w := doJSON(s, http.MethodPost, "/api/webhook/whatsapp", whatsAppTextPayload("wamid.001", "generate invoice for Acme"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, assistant.calls)
}

func TestWhatsAppDuplicateDropped(t *testing.T) {
	assistant := &mockAssistant{}
	s := newTestServer(t, Options{Assistant: assistant})

	payload := whatsAppTextPayload("wamid.002", "generate invoice for Acme")
	w := doJSON(s, http.MethodPost, "/api/webhook/whatsapp", payload)
	require.Equal(t, http.StatusOK, w.Code)

	// Redelivery of the same message id must not reach the assistant
	w = doJSON(s, http.MethodPost, "/api/webhook/whatsapp", payload)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, assistant.calls)
}

func TestWhatsAppNonTextIgnored(t *testing.T) {
	assistant := &mockAssistant{}
	s := newTestServer(t, Options{Assistant: assistant})

	payload := `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{"id": "wamid.003", "from": "60123456789", "type": "image"}]
				}
			}]
		}]
	}`
	w := doJSON(s, http.MethodPost, "/api/webhook/whatsapp", payload)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, assistant.calls)
}

func TestDashboardStats(t *testing.T) {
	s := newTestServer(t, Options{
		Records: &mockDashboard{statsFn: func(context.Context) (*record.DashboardStats, error) {
			return &record.DashboardStats{
				TodayRevenue: decimal.RequireFromString("100.25"),
				InvoiceStats: map[record.Status]record.StatusStats{
					record.StatusSuccess: {Count: 2, Amount: decimal.RequireFromString("150.25")},
				},
			}, nil
		}},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/invoices", nil)
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	type bucket struct {
		Count int `json:"count"`
	}
	var resp struct {
		TodayRevenue decimal.Decimal   `json:"today_revenue"`
		InvoiceStats map[string]bucket `json:"invoice_stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.TodayRevenue.Equal(decimal.RequireFromString("100.25")))
	assert.Equal(t, 2, resp.InvoiceStats["success"].Count)
}

func TestOverdueRecurringList(t *testing.T) {
	s := newTestServer(t, Options{
		Records: &mockDashboard{overdueFn: func(context.Context) ([]*record.OverdueInvoice, error) {
			return []*record.OverdueInvoice{
				{
					Record: record.Record{
						InvoiceID:    "INV-20250901-deadbeef",
						CustomerName: "Acme Corporation",
						Amount:       decimal.RequireFromString("200.00"),
						Status:       record.StatusPending,
						InvoiceType:  record.TypeRecurring,
					},
					OverdueDays: 8,
				},
			}, nil
		}},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/invoices/overdue-recurring", nil)
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Overdue []struct {
			InvoiceID   string `json:"invoice_id"`
			OverdueDays int    `json:"overdue_days"`
		} `json:"overdue_invoices"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Overdue, 1)
	assert.Equal(t, "INV-20250901-deadbeef", resp.Overdue[0].InvoiceID)
	assert.Equal(t, 8, resp.Overdue[0].OverdueDays)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "healthy"}`, w.Body.String())
}
