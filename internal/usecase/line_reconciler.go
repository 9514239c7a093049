package usecase

import (
	"context"

	"doc-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultMatchTolerance is the absolute difference, in currency units, under
// which a statement charge agrees with our invoice total.
var DefaultMatchTolerance = decimal.RequireFromString("0.01")

// LineReconciler decides the match status of a single statement line. It
// only reads the ledger, so it is safe to run any number of times.
type LineReconciler struct {
	matcher   *Matcher
	tolerance decimal.Decimal
}

// NewLineReconciler creates a reconciler. A non-positive tolerance falls
// back to DefaultMatchTolerance.
func NewLineReconciler(matcher *Matcher, tolerance decimal.Decimal) *LineReconciler {
	if !tolerance.IsPositive() {
		tolerance = DefaultMatchTolerance
	}
	return &LineReconciler{matcher: matcher, tolerance: tolerance}
}

// ReconcileLine returns a copy of line with Status and Discrepancy set.
func (r *LineReconciler) ReconcileLine(ctx context.Context, line domain.StatementLine) (domain.StatementLine, error) {
	out := line
	out.Discrepancy = nil

	switch line.DocumentType {
	case domain.LineDocumentInvoice:
		inv, err := r.matcher.MatchInvoice(ctx, line.ReferenceNumber)
		if err != nil {
			return domain.StatementLine{}, err
		}
		if inv == nil {
			out.Status = domain.LineStatusMissingInOurRecords
			return out, nil
		}
		// Positive means the statement shows more than our record.
		diff := line.Charges.Sub(inv.Total)
		if diff.Abs().LessThan(r.tolerance) {
			out.Status = domain.LineStatusMatched
			out.Discrepancy = zeroAmount()
		} else {
			out.Status = domain.LineStatusAmountDiscrepancy
			out.Discrepancy = &diff
		}
		return out, nil

	case domain.LineDocumentPayment:
		p, err := r.matcher.MatchPayment(ctx, line.ReferenceNumber)
		if err != nil {
			return domain.StatementLine{}, err
		}
		if p == nil {
			out.Status = domain.LineStatusPaymentNotRecorded
			return out, nil
		}
		out.Status = domain.LineStatusMatched
		out.Discrepancy = zeroAmount()
		return out, nil

	default:
		// credit, adjustment and debit_memo semantics vary by vendor and
		// always go to a person.
		out.Status = domain.LineStatusUnreviewed
		return out, nil
	}
}

func zeroAmount() *decimal.Decimal {
	z := decimal.Zero
	return &z
}
