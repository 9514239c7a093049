package usecase

import (
	"context"
	"strings"

	"doc-reconciliation/internal/domain"
)

// Matcher resolves statement reference numbers against the ledger by exact
// equality. It never writes.
type Matcher struct {
	ledger LedgerRepository
}

// NewMatcher creates a matcher over the given ledger.
func NewMatcher(ledger LedgerRepository) *Matcher {
	return &Matcher{ledger: ledger}
}

// MatchInvoice returns the ledger invoice whose number equals ref, or nil.
// A failed read is reported as a LookupUnavailableError, never as no match.
func (m *Matcher) MatchInvoice(ctx context.Context, ref string) (*domain.Invoice, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, nil
	}
	inv, err := m.ledger.FindInvoiceByReference(ctx, ref)
	if err != nil {
		return nil, &domain.LookupUnavailableError{Kind: domain.RecordKindInvoice, Reference: ref, Err: err}
	}
	// The store's collation may fold case or pad spaces; only an exact hit
	// counts.
	if inv == nil || inv.InvoiceNumber != ref {
		return nil, nil
	}
	return inv, nil
}

// MatchPayment returns the ledger payment whose reference equals ref, or nil.
func (m *Matcher) MatchPayment(ctx context.Context, ref string) (*domain.Payment, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, nil
	}
	p, err := m.ledger.FindPaymentByReference(ctx, ref)
	if err != nil {
		return nil, &domain.LookupUnavailableError{Kind: domain.RecordKindPayment, Reference: ref, Err: err}
	}
	if p == nil || p.PaymentReference != ref {
		return nil, nil
	}
	return p, nil
}
