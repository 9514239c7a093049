package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"doc-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type documentRow struct {
	ID              string         `gorm:"primaryKey;size:64"`
	Type            string         `gorm:"size:32;index;not null"`
	Status          string         `gorm:"size:16;index;not null"`
	Source          string         `gorm:"size:16"`
	SourceRef       string         `gorm:"size:255"`
	VendorID        *string        `gorm:"size:64;index"`
	ExtractedData   datatypes.JSON `gorm:"not null"`
	Confidence      string         `gorm:"size:8"`
	ActionRequired  bool           `gorm:"not null;default:false"`
	ActionSummary   string         `gorm:"size:512"`
	LinkedDocuments []string       `gorm:"serializer:json"`
	CreatedAt       time.Time
	ProcessedAt     *time.Time
}

func (documentRow) TableName() string { return "documents" }

type reconciliationRow struct {
	ID               string          `gorm:"primaryKey;size:64"`
	DocumentID       string          `gorm:"size:64;index;not null"`
	VendorName       string          `gorm:"size:255"`
	StatementDate    string          `gorm:"size:10"`
	VendorBalance    decimal.Decimal `gorm:"type:decimal(18,4)"`
	OurBalance       decimal.Decimal `gorm:"type:decimal(18,4)"`
	DiscrepancyCount int
	Status           string         `gorm:"size:16"`
	Lines            datatypes.JSON `gorm:"not null"`
	CreatedAt        time.Time
}

func (reconciliationRow) TableName() string { return "reconciliation_results" }

type invoiceRow struct {
	InvoiceNumber string          `gorm:"primaryKey;size:64"`
	VendorName    string          `gorm:"size:255"`
	Total         decimal.Decimal `gorm:"type:decimal(18,4)"`
	InvoiceDate   time.Time
}

func (invoiceRow) TableName() string { return "ledger_invoices" }

type paymentRow struct {
	PaymentReference string          `gorm:"primaryKey;size:64"`
	VendorName       string          `gorm:"size:255"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4)"`
	PaidAt           time.Time
}

func (paymentRow) TableName() string { return "ledger_payments" }

type purchaseOrderRow struct {
	PONumber             string          `gorm:"primaryKey;size:64"`
	VendorName           string          `gorm:"size:255"`
	Status               string          `gorm:"size:24;index"`
	Total                decimal.Decimal `gorm:"type:decimal(18,4)"`
	OrderDate            time.Time       `gorm:"index"`
	ExpectedDeliveryDate *time.Time
	ConfirmedAt          *time.Time
	UpdatedAt            time.Time `gorm:"index;autoUpdateTime:false"`
}

func (purchaseOrderRow) TableName() string { return "ledger_purchase_orders" }

func newDocumentRow(doc *domain.ProcessedDocument) (*documentRow, error) {
	data, err := json.Marshal(doc.ExtractedData)
	if err != nil {
		return nil, fmt.Errorf("encode extracted_data: %w", err)
	}
	return &documentRow{
		ID:              doc.ID,
		Type:            string(doc.Type),
		Status:          string(doc.Status),
		Source:          string(doc.Source),
		SourceRef:       doc.SourceRef,
		VendorID:        doc.VendorID,
		ExtractedData:   datatypes.JSON(data),
		Confidence:      string(doc.Confidence),
		ActionRequired:  doc.ActionRequired,
		ActionSummary:   doc.ActionSummary,
		LinkedDocuments: doc.LinkedDocuments,
		CreatedAt:       doc.CreatedAt,
		ProcessedAt:     doc.ProcessedAt,
	}, nil
}

func (r *documentRow) toDomain() (*domain.ProcessedDocument, error) {
	docType := domain.DocumentType(r.Type)
	payload, err := domain.DecodePayload(docType, json.RawMessage(r.ExtractedData))
	if err != nil {
		return nil, fmt.Errorf("stored document %s: %w", r.ID, err)
	}
	links := r.LinkedDocuments
	if links == nil {
		links = []string{}
	}
	return &domain.ProcessedDocument{
		ID:              r.ID,
		Type:            docType,
		Status:          domain.DocumentStatus(r.Status),
		Source:          domain.Source(r.Source),
		SourceRef:       r.SourceRef,
		VendorID:        r.VendorID,
		ExtractedData:   payload,
		Confidence:      domain.Confidence(r.Confidence),
		ActionRequired:  r.ActionRequired,
		ActionSummary:   r.ActionSummary,
		LinkedDocuments: links,
		CreatedAt:       r.CreatedAt.UTC(),
		ProcessedAt:     utcPtr(r.ProcessedAt),
	}, nil
}

func newReconciliationRow(res domain.ReconciliationResult) (*reconciliationRow, error) {
	lines, err := json.Marshal(res.Lines)
	if err != nil {
		return nil, fmt.Errorf("encode lines: %w", err)
	}
	return &reconciliationRow{
		ID:               res.ID,
		DocumentID:       res.DocumentID,
		VendorName:       res.VendorName,
		StatementDate:    res.StatementDate,
		VendorBalance:    res.VendorBalance,
		OurBalance:       res.OurBalance,
		DiscrepancyCount: res.DiscrepancyCount,
		Status:           string(res.Status),
		Lines:            datatypes.JSON(lines),
		CreatedAt:        res.CreatedAt,
	}, nil
}

func (r *reconciliationRow) toDomain() (*domain.ReconciliationResult, error) {
	var lines []domain.StatementLine
	if err := json.Unmarshal(r.Lines, &lines); err != nil {
		return nil, fmt.Errorf("stored reconciliation %s: %w", r.ID, err)
	}
	return &domain.ReconciliationResult{
		ID:               r.ID,
		DocumentID:       r.DocumentID,
		VendorName:       r.VendorName,
		StatementDate:    r.StatementDate,
		VendorBalance:    r.VendorBalance,
		OurBalance:       r.OurBalance,
		DiscrepancyCount: r.DiscrepancyCount,
		Lines:            lines,
		Status:           domain.ReconciliationStatus(r.Status),
		CreatedAt:        r.CreatedAt.UTC(),
	}, nil
}

func (r *purchaseOrderRow) toDomain() domain.PurchaseOrder {
	return domain.PurchaseOrder{
		PONumber:             r.PONumber,
		VendorName:           r.VendorName,
		Status:               domain.PurchaseOrderStatus(r.Status),
		Total:                r.Total,
		OrderDate:            r.OrderDate.UTC(),
		ExpectedDeliveryDate: utcPtr(r.ExpectedDeliveryDate),
		ConfirmedAt:          utcPtr(r.ConfirmedAt),
		UpdatedAt:            r.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
