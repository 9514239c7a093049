package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DocumentType identifies which extracted payload variant a document carries.
type DocumentType string

const (
	DocumentTypeInvoice              DocumentType = "INVOICE"
	DocumentTypePurchaseOrder        DocumentType = "PURCHASE_ORDER"
	DocumentTypeVendorStatement      DocumentType = "VENDOR_STATEMENT"
	DocumentTypeBillOfLading         DocumentType = "BILL_OF_LADING"
	DocumentTypePackingSlip          DocumentType = "PACKING_SLIP"
	DocumentTypeFreightQuote         DocumentType = "FREIGHT_QUOTE"
	DocumentTypeRemittanceAdvice     DocumentType = "REMITTANCE_ADVICE"
	DocumentTypeCreditMemo           DocumentType = "CREDIT_MEMO"
	DocumentTypeContract             DocumentType = "CONTRACT"
	DocumentTypeProductSpec          DocumentType = "PRODUCT_SPEC"
	DocumentTypeSDS                  DocumentType = "SDS"
	DocumentTypeCOA                  DocumentType = "COA"
	DocumentTypeTrackingNotification DocumentType = "TRACKING_NOTIFICATION"
	DocumentTypeUnknown              DocumentType = "UNKNOWN"
)

var documentTypes = map[DocumentType]bool{
	DocumentTypeInvoice:              true,
	DocumentTypePurchaseOrder:        true,
	DocumentTypeVendorStatement:      true,
	DocumentTypeBillOfLading:         true,
	DocumentTypePackingSlip:          true,
	DocumentTypeFreightQuote:         true,
	DocumentTypeRemittanceAdvice:     true,
	DocumentTypeCreditMemo:           true,
	DocumentTypeContract:             true,
	DocumentTypeProductSpec:          true,
	DocumentTypeSDS:                  true,
	DocumentTypeCOA:                  true,
	DocumentTypeTrackingNotification: true,
	DocumentTypeUnknown:              true,
}

// IsValid reports whether t is one of the known document types.
func (t DocumentType) IsValid() bool {
	return documentTypes[t]
}

// Source is the provenance tag of an ingested document.
type Source string

const (
	SourceEmail  Source = "email"
	SourceUpload Source = "upload"
	SourceGithub Source = "github"
	SourceCrawl  Source = "crawl"
)

// Confidence is assigned by the upstream extractor.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ProcessedDocument is one ingested business document.
type ProcessedDocument struct {
	ID              string         `json:"id"`
	Type            DocumentType   `json:"type"`
	Status          DocumentStatus `json:"status"`
	Source          Source         `json:"source"`
	SourceRef       string         `json:"source_ref"`
	VendorID        *string        `json:"vendor_id,omitempty"`
	ExtractedData   Payload        `json:"extracted_data"`
	Confidence      Confidence     `json:"confidence"`
	ActionRequired  bool           `json:"action_required"`
	ActionSummary   string         `json:"action_summary,omitempty"`
	LinkedDocuments []string       `json:"linked_documents"`
	CreatedAt       time.Time      `json:"created_at"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
}

// RequiresHumanAction is true for low-confidence extractions whatever the
// match outcome.
func (d *ProcessedDocument) RequiresHumanAction() bool {
	return d.Confidence == ConfidenceLow
}

// MarkProcessed stamps processedAt, never earlier than createdAt.
func (d *ProcessedDocument) MarkProcessed(now time.Time) {
	if now.Before(d.CreatedAt) {
		now = d.CreatedAt
	}
	d.ProcessedAt = &now
}

// IsLinkedTo reports whether other is already in the linkage set.
func (d *ProcessedDocument) IsLinkedTo(other string) bool {
	for _, id := range d.LinkedDocuments {
		if id == other {
			return true
		}
	}
	return false
}

// Invoice narrows the payload to the invoice variant.
func (d *ProcessedDocument) Invoice() (*InvoicePayload, error) {
	return narrow[*InvoicePayload](d, DocumentTypeInvoice)
}

// PurchaseOrder narrows the payload to the purchase order variant.
func (d *ProcessedDocument) PurchaseOrder() (*PurchaseOrderPayload, error) {
	return narrow[*PurchaseOrderPayload](d, DocumentTypePurchaseOrder)
}

// Statement narrows the payload to the vendor statement variant.
func (d *ProcessedDocument) Statement() (*StatementPayload, error) {
	return narrow[*StatementPayload](d, DocumentTypeVendorStatement)
}

// BillOfLading narrows the payload to the bill of lading variant.
func (d *ProcessedDocument) BillOfLading() (*BillOfLadingPayload, error) {
	return narrow[*BillOfLadingPayload](d, DocumentTypeBillOfLading)
}

// Generic returns the free-form payload carried by every other document type.
func (d *ProcessedDocument) Generic() (*GenericPayload, error) {
	if payloadKindFor(d.Type) != payloadKindGeneric {
		return nil, &SchemaMismatchError{Type: d.Type, Reason: "document does not carry a generic payload"}
	}
	p, ok := d.ExtractedData.(*GenericPayload)
	if !ok {
		return nil, &SchemaMismatchError{Type: d.Type, Reason: fmt.Sprintf("payload is %T", d.ExtractedData)}
	}
	return p, nil
}

func narrow[P Payload](d *ProcessedDocument, want DocumentType) (P, error) {
	var zero P
	if d.Type != want {
		return zero, &SchemaMismatchError{Type: d.Type, Reason: fmt.Sprintf("requested %s payload", want)}
	}
	p, ok := d.ExtractedData.(P)
	if !ok {
		return zero, &SchemaMismatchError{Type: d.Type, Reason: fmt.Sprintf("payload is %T", d.ExtractedData)}
	}
	return p, nil
}

// documentEnvelope is the wire shape, with the payload left raw until the
// type tag is known.
type documentEnvelope struct {
	ID              string          `json:"id"`
	Type            DocumentType    `json:"type"`
	Status          DocumentStatus  `json:"status"`
	Source          Source          `json:"source"`
	SourceRef       string          `json:"source_ref"`
	VendorID        *string         `json:"vendor_id,omitempty"`
	ExtractedData   json.RawMessage `json:"extracted_data"`
	Confidence      Confidence      `json:"confidence"`
	ActionRequired  bool            `json:"action_required"`
	ActionSummary   string          `json:"action_summary,omitempty"`
	LinkedDocuments []string        `json:"linked_documents"`
	CreatedAt       time.Time       `json:"created_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
}

// UnmarshalJSON decodes the payload according to the type tag and rejects
// anything that does not fully conform to the variant's schema.
func (d *ProcessedDocument) UnmarshalJSON(data []byte) error {
	var env documentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	payload, err := DecodePayload(env.Type, env.ExtractedData)
	if err != nil {
		return err
	}
	*d = ProcessedDocument{
		ID:              env.ID,
		Type:            env.Type,
		Status:          env.Status,
		Source:          env.Source,
		SourceRef:       env.SourceRef,
		VendorID:        env.VendorID,
		ExtractedData:   payload,
		Confidence:      env.Confidence,
		ActionRequired:  env.ActionRequired,
		ActionSummary:   env.ActionSummary,
		LinkedDocuments: env.LinkedDocuments,
		CreatedAt:       env.CreatedAt,
		ProcessedAt:     env.ProcessedAt,
	}
	return nil
}

// StatusUpdate is the document half of a reconciliation commit. The store
// applies it only while the document is still in From.
type StatusUpdate struct {
	DocumentID     string
	From           DocumentStatus
	To             DocumentStatus
	ActionRequired bool
	ActionSummary  string
	ProcessedAt    time.Time
}
