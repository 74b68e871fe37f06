package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hackgoldship/invoice-agent/internal/pipeline"
	"github.com/hackgoldship/invoice-agent/internal/record"
	"go.uber.org/zap"
)

// PaymentMarker settles an invoice record after a payment gateway callback
type PaymentMarker interface {
	MarkPayment(ctx context.Context, invoiceID string, ok bool) (string, error)
}

type paymentWebhook struct {
	InvoiceID string `json:"invoice_id" binding:"required"`
}

func (s *Server) handlePaymentSuccess(c *gin.Context) {
	var req paymentWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pipeline.ErrorPayload{Type: "error", Message: "invoice_id is required"})
		return
	}

	id, err := s.payments.MarkPayment(c.Request.Context(), req.InvoiceID, true)
	if err != nil {
		s.paymentError(c, req.InvoiceID, err)
		return
	}

	s.logger.Info("Payment confirmed", zap.String("invoice_id", id))
	c.JSON(http.StatusOK, gin.H{
		"status":     record.StatusSuccess.String(),
		"invoice_id": id,
	})
}

func (s *Server) handlePaymentFail(c *gin.Context) {
	var req paymentWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pipeline.ErrorPayload{Type: "error", Message: "invoice_id is required"})
		return
	}

	id, err := s.payments.MarkPayment(c.Request.Context(), req.InvoiceID, false)
	if err != nil {
		s.paymentError(c, req.InvoiceID, err)
		return
	}

	// Alert is advisory: a delivery failure never fails the webhook
	message := fmt.Sprintf("Payment failed for invoice %s. The invoice record has been marked as failed.", id)
	if _, err := s.bus.Publish(c.Request.Context(), "Payment Failure Alert", message); err != nil {
		s.logger.Warn("Payment failure alert not delivered",
			zap.String("invoice_id", id),
			zap.Error(err))
	}

	s.logger.Info("Payment failure recorded", zap.String("invoice_id", id))
	c.JSON(http.StatusOK, gin.H{
		"status":     record.StatusFail.String(),
		"invoice_id": id,
	})
}

func (s *Server) paymentError(c *gin.Context, invoiceID string, err error) {
	if f := pipeline.AsFailure(err); f != nil && f.Kind == pipeline.KindRecordNotFound {
		c.JSON(http.StatusNotFound, f.Payload())
		return
	}
	s.logger.Error("Payment webhook failed",
		zap.String("invoice_id", invoiceID),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, pipeline.ErrorPayload{Type: "error", Message: "failed to update invoice record"})
}

// handleWhatsAppVerify answers the subscription handshake
func (s *Server) handleWhatsAppVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == s.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

type whatsAppPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []whatsAppMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type whatsAppMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// handleWhatsAppMessage processes inbound messages. WhatsApp redelivers on
// slow responses, so duplicate message ids are dropped and the endpoint
// always acknowledges with 200.
func (s *Server) handleWhatsAppMessage(c *gin.Context) {
	var payload whatsAppPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.logger.Warn("Unparseable WhatsApp payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text.Body == "" {
					continue
				}
				if s.dedup.Seen(msg.ID) {
					s.logger.Info("Dropped duplicate WhatsApp message", zap.String("message_id", msg.ID))
					continue
				}

				reply := s.assistant.HandleMessage(c.Request.Context(), "whatsapp-"+msg.From, msg.Text.Body)
				reply = ExtractPreview(reply)

				if s.whatsapp == nil {
					continue
				}
				if err := s.whatsapp.SendText(c.Request.Context(), msg.From, reply); err != nil {
					s.logger.Warn("Failed to send WhatsApp reply",
						zap.String("to", msg.From),
						zap.Error(err))
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
