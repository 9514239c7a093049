package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is an expected invoice in the internal ledger.
type Invoice struct {
	InvoiceNumber string          `json:"invoice_number"`
	VendorName    string          `json:"vendor_name"`
	Total         decimal.Decimal `json:"total"`
	InvoiceDate   time.Time       `json:"invoice_date"`
}

// Payment is a payment recorded in the internal ledger.
type Payment struct {
	PaymentReference string          `json:"payment_reference"`
	VendorName       string          `json:"vendor_name"`
	Amount           decimal.Decimal `json:"amount"`
	PaidAt           time.Time       `json:"paid_at"`
}

// PurchaseOrderStatus is the ledger state of a purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderOpen              PurchaseOrderStatus = "open"
	PurchaseOrderConfirmed         PurchaseOrderStatus = "confirmed"
	PurchaseOrderPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderReceived          PurchaseOrderStatus = "received"
	PurchaseOrderClosed            PurchaseOrderStatus = "closed"
	PurchaseOrderCancelled         PurchaseOrderStatus = "cancelled"
)

// IsSettled is true once nothing more is expected from the vendor.
func (s PurchaseOrderStatus) IsSettled() bool {
	switch s {
	case PurchaseOrderReceived, PurchaseOrderClosed, PurchaseOrderCancelled:
		return true
	}
	return false
}

// PurchaseOrder is an order tracked in the internal ledger.
type PurchaseOrder struct {
	PONumber             string              `json:"po_number"`
	VendorName           string              `json:"vendor_name"`
	Status               PurchaseOrderStatus `json:"status"`
	Total                decimal.Decimal     `json:"total"`
	OrderDate            time.Time           `json:"order_date"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date,omitempty"`
	ConfirmedAt          *time.Time          `json:"confirmed_at,omitempty"`
	UpdatedAt            time.Time           `json:"updated_at"`
}
