package pipeline

import "github.com/hackgoldship/invoice-agent/internal/invoice"

// Wire discriminators for the pipeline's produced artifacts
const (
	SentType         = "invoice_sent"
	ApprovedSentType = "invoice_approved_sent"
)

// SentPayload is the invoice_sent wire object. Field names are the external
// contract and must not change.
type SentPayload struct {
	Type          string `json:"type"`
	InvoiceNumber string `json:"invoice_number"`
	Account       string `json:"account"`
	Contact       string `json:"contact"`
	PDFURL        string `json:"pdf_s3_url"`
	FinalHTML     string `json:"final_html"`
	Status        string `json:"status"`
}

// ApprovedSentPayload is the invoice_approved_sent wire object
type ApprovedSentPayload struct {
	Type          string `json:"type"`
	InvoiceNumber string `json:"invoice_number"`
	Account       string `json:"account"`
	PDFURL        string `json:"pdf_url"`
	SNSStatus     string `json:"sns_status"`
	Message       string `json:"message"`
}

// SendOutcome is the successful result of the approve-and-send invocation
type SendOutcome struct {
	Invoice      *invoice.Approved
	Sent         SentPayload
	ApprovedSent ApprovedSentPayload
}
