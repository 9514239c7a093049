package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Payload is the closed set of extracted payload variants. Only types in
// this package implement it.
type Payload interface {
	kind() payloadKind
}

type payloadKind int

const (
	payloadKindGeneric payloadKind = iota
	payloadKindInvoice
	payloadKindPurchaseOrder
	payloadKindStatement
	payloadKindBillOfLading
)

func payloadKindFor(t DocumentType) payloadKind {
	switch t {
	case DocumentTypeInvoice:
		return payloadKindInvoice
	case DocumentTypePurchaseOrder:
		return payloadKindPurchaseOrder
	case DocumentTypeVendorStatement:
		return payloadKindStatement
	case DocumentTypeBillOfLading:
		return payloadKindBillOfLading
	default:
		return payloadKindGeneric
	}
}

// LineItem is a priced row on an invoice or purchase order.
type LineItem struct {
	Description string          `json:"description" validate:"required"`
	SKU         string          `json:"sku,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoicePayload holds the fields extracted from a vendor invoice.
type InvoicePayload struct {
	InvoiceNumber string              `json:"invoice_number" validate:"required"`
	InvoiceDate   string              `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	DueDate       string              `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	VendorName    string              `json:"vendor_name" validate:"required"`
	PONumber      string              `json:"po_number,omitempty"`
	Currency      string              `json:"currency,omitempty" validate:"omitempty,len=3"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.NullDecimal `json:"total" validate:"required"`
	LineItems     []LineItem          `json:"line_items" validate:"dive"`
}

func (*InvoicePayload) kind() payloadKind { return payloadKindInvoice }

// PurchaseOrderPayload holds the fields extracted from a purchase order.
type PurchaseOrderPayload struct {
	PONumber             string              `json:"po_number" validate:"required"`
	OrderDate            string              `json:"order_date" validate:"required,datetime=2006-01-02"`
	ExpectedDeliveryDate string              `json:"expected_delivery_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	VendorName           string              `json:"vendor_name" validate:"required"`
	Currency             string              `json:"currency,omitempty" validate:"omitempty,len=3"`
	Total                decimal.NullDecimal `json:"total" validate:"required"`
	LineItems            []LineItem          `json:"line_items" validate:"dive"`
}

func (*PurchaseOrderPayload) kind() payloadKind { return payloadKindPurchaseOrder }

// StatementPayload holds a vendor statement and its transaction rows, in
// the order they appear on the statement.
type StatementPayload struct {
	VendorName    string              `json:"vendor_name" validate:"required"`
	StatementDate string              `json:"statement_date" validate:"required,datetime=2006-01-02"`
	VendorBalance decimal.NullDecimal `json:"vendor_balance" validate:"required"`
	Lines         []StatementLine     `json:"lines" validate:"dive"`
}

func (*StatementPayload) kind() payloadKind { return payloadKindStatement }

// BillOfLadingPayload holds the fields extracted from a bill of lading.
type BillOfLadingPayload struct {
	BOLNumber     string          `json:"bol_number" validate:"required"`
	Carrier       string          `json:"carrier" validate:"required"`
	ShipperName   string          `json:"shipper_name,omitempty"`
	ConsigneeName string          `json:"consignee_name,omitempty"`
	PONumber      string          `json:"po_number,omitempty"`
	ShipDate      string          `json:"ship_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Packages      int             `json:"packages" validate:"gte=0"`
	WeightKg      decimal.Decimal `json:"weight_kg"`
}

func (*BillOfLadingPayload) kind() payloadKind { return payloadKindBillOfLading }

// GenericPayload carries the extractor output for document types the
// engine does not reconcile.
type GenericPayload struct {
	Fields map[string]any
}

func (*GenericPayload) kind() payloadKind { return payloadKindGeneric }

func (p *GenericPayload) MarshalJSON() ([]byte, error) {
	if p.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Fields)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// A NullDecimal that was never set counts as absent for "required".
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.NullDecimal); ok && d.Valid {
			return d.Decimal.String()
		}
		return nil
	}, decimal.NullDecimal{})
	return v
}

// DecodePayload decodes raw extractor output into the variant implied by t.
// Unknown fields, missing required fields and malformed values are all
// rejected with a SchemaMismatchError.
func DecodePayload(t DocumentType, raw json.RawMessage) (Payload, error) {
	if !t.IsValid() {
		return nil, &SchemaMismatchError{Type: t, Reason: "unknown document type"}
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &SchemaMismatchError{Type: t, Reason: "extracted_data is missing"}
	}

	var p Payload
	switch payloadKindFor(t) {
	case payloadKindInvoice:
		p = &InvoicePayload{}
	case payloadKindPurchaseOrder:
		p = &PurchaseOrderPayload{}
	case payloadKindStatement:
		p = &StatementPayload{}
	case payloadKindBillOfLading:
		p = &BillOfLadingPayload{}
	default:
		fields := map[string]any{}
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, &SchemaMismatchError{Type: t, Reason: err.Error()}
		}
		return &GenericPayload{Fields: fields}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, &SchemaMismatchError{Type: t, Reason: err.Error()}
	}
	if err := ValidatePayload(t, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidatePayload checks that p is the variant for t and satisfies its schema.
func ValidatePayload(t DocumentType, p Payload) error {
	if !t.IsValid() {
		return &SchemaMismatchError{Type: t, Reason: "unknown document type"}
	}
	if p == nil || reflect.ValueOf(p).IsNil() {
		return &SchemaMismatchError{Type: t, Reason: "extracted_data is missing"}
	}
	if p.kind() != payloadKindFor(t) {
		return &SchemaMismatchError{Type: t, Reason: "payload variant does not match document type"}
	}
	if _, ok := p.(*GenericPayload); ok {
		return nil
	}

	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &SchemaMismatchError{Type: t, Reason: err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[trimNamespace(fe.Namespace())] = fe.Tag()
	}
	return &SchemaMismatchError{Type: t, Fields: fields, Reason: "payload failed validation"}
}

// trimNamespace drops the root struct name, "StatementPayload.lines[0].balance"
// becomes "lines[0].balance".
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
