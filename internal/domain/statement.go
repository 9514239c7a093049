package domain

import "github.com/shopspring/decimal"

// LineDocumentType is the kind of transaction a statement row records.
type LineDocumentType string

const (
	LineDocumentInvoice    LineDocumentType = "invoice"
	LineDocumentPayment    LineDocumentType = "payment"
	LineDocumentCredit     LineDocumentType = "credit"
	LineDocumentAdjustment LineDocumentType = "adjustment"
	LineDocumentDebitMemo  LineDocumentType = "debit_memo"
)

// LineStatus is the per-line reconciliation outcome.
type LineStatus string

const (
	LineStatusMatched             LineStatus = "MATCHED"
	LineStatusAmountDiscrepancy   LineStatus = "AMOUNT_DISCREPANCY"
	LineStatusMissingInOurRecords LineStatus = "MISSING_IN_OUR_RECORDS"
	LineStatusPaymentNotRecorded  LineStatus = "PAYMENT_NOT_RECORDED"
	LineStatusUnreviewed          LineStatus = "UNREVIEWED"
)

// StatementLine is one transaction row on a vendor statement. Status and
// Discrepancy are empty until the line has been reconciled.
type StatementLine struct {
	ReferenceNumber string              `json:"reference_number" validate:"required"`
	DocumentType    LineDocumentType    `json:"document_type" validate:"required,oneof=invoice payment credit adjustment debit_memo"`
	Charges         decimal.Decimal     `json:"charges"`
	Credits         decimal.Decimal     `json:"credits"`
	Balance         decimal.NullDecimal `json:"balance" validate:"required"`
	Date            string              `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`

	Status      LineStatus       `json:"status,omitempty" validate:"omitempty,oneof=MATCHED AMOUNT_DISCREPANCY MISSING_IN_OUR_RECORDS PAYMENT_NOT_RECORDED UNREVIEWED"`
	Discrepancy *decimal.Decimal `json:"discrepancy,omitempty"`
}

// IsDiscrepant is true for every reconciled line that did not match.
func (l StatementLine) IsDiscrepant() bool {
	return l.Status != LineStatusMatched
}
