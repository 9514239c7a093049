package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationStatus is the overall outcome of a statement reconciliation.
type ReconciliationStatus string

const (
	ReconciliationReconciled    ReconciliationStatus = "RECONCILED"
	ReconciliationDiscrepancies ReconciliationStatus = "DISCREPANCIES"
)

// ReconciliationResult is the immutable outcome of one statement
// reconciliation run. Re-running produces a new result.
type ReconciliationResult struct {
	ID               string               `json:"id"`
	DocumentID       string               `json:"document_id"`
	VendorName       string               `json:"vendor_name"`
	StatementDate    string               `json:"statement_date"`
	VendorBalance    decimal.Decimal      `json:"vendor_balance"`
	OurBalance       decimal.Decimal      `json:"our_balance"`
	DiscrepancyCount int                  `json:"discrepancy_count"`
	Lines            []StatementLine      `json:"lines"`
	Status           ReconciliationStatus `json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
}

// NewReconciliationResult aggregates already reconciled lines. Line order is
// preserved; the status is RECONCILED exactly when no line is discrepant.
func NewReconciliationResult(statement *StatementPayload, lines []StatementLine) ReconciliationResult {
	res := ReconciliationResult{
		VendorName:    statement.VendorName,
		StatementDate: statement.StatementDate,
		VendorBalance: statement.VendorBalance.Decimal,
		OurBalance:    decimal.Zero,
		Lines:         make([]StatementLine, len(lines)),
	}
	copy(res.Lines, lines)

	for _, line := range res.Lines {
		if line.IsDiscrepant() {
			res.DiscrepancyCount++
			continue
		}
		res.OurBalance = res.OurBalance.Add(line.Balance.Decimal)
	}

	res.Status = ReconciliationReconciled
	if res.DiscrepancyCount > 0 {
		res.Status = ReconciliationDiscrepancies
	}
	return res
}

// TargetStatus is the lifecycle state the statement document moves to once
// this result is committed.
func (r ReconciliationResult) TargetStatus() DocumentStatus {
	if r.Status == ReconciliationReconciled {
		return StatusMatched
	}
	return StatusDiscrepancy
}

// ActionSummary is the short, human-facing note stored on the document.
func (r ReconciliationResult) ActionSummary() string {
	if r.DiscrepancyCount == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d statement line(s) need review", r.DiscrepancyCount, len(r.Lines))
}

// Summary renders the plain-text report handed to notification delivery.
func (r ReconciliationResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Statement reconciliation for %s (%s): %s\n", r.VendorName, r.StatementDate, r.Status)
	fmt.Fprintf(&b, "Vendor balance: %s | Our balance: %s\n", r.VendorBalance.StringFixed(2), r.OurBalance.StringFixed(2))
	if r.DiscrepancyCount == 0 {
		fmt.Fprintf(&b, "All %d line(s) matched.\n", len(r.Lines))
		return b.String()
	}
	fmt.Fprintf(&b, "%s:\n", r.ActionSummary())
	for _, line := range r.Lines {
		if !line.IsDiscrepant() {
			continue
		}
		fmt.Fprintf(&b, "- %s %s %s", line.ReferenceNumber, line.DocumentType, line.Status)
		if line.Discrepancy != nil {
			fmt.Fprintf(&b, " (discrepancy %s)", line.Discrepancy.StringFixed(2))
		}
		b.WriteString("\n")
	}
	return b.String()
}
