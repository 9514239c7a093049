package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"doc-reconciliation/internal/domain"

	"github.com/sirupsen/logrus"
)

const day = 24 * time.Hour

// RiskRules are the externally configured thresholds for purchase order risk.
type RiskRules struct {
	StaleAfterDays       int
	UnconfirmedAfterDays int
	OverdueGraceDays     int
	Limit                int
}

// DefaultRiskRules returns the thresholds used when nothing is configured.
func DefaultRiskRules() RiskRules {
	return RiskRules{
		StaleAfterDays:       14,
		UnconfirmedAfterDays: 3,
		OverdueGraceDays:     0,
		Limit:                20,
	}
}

// ProgressFunc receives human-readable progress lines. It is observational
// only.
type ProgressFunc func(string)

// RiskAggregator scans recent purchase orders and ranks the ones at risk.
type RiskAggregator struct {
	ledger LedgerRepository
	rules  RiskRules
	logger *logrus.Logger
	now    func() time.Time
}

// NewRiskAggregator creates an aggregator. now may be nil for time.Now.
func NewRiskAggregator(ledger LedgerRepository, rules RiskRules, logger *logrus.Logger, now func() time.Time) *RiskAggregator {
	if now == nil {
		now = time.Now
	}
	return &RiskAggregator{ledger: ledger, rules: rules, logger: logger, now: now}
}

// Run builds the report for the last windowDays days. The as-of instant is
// the start of the current UTC day, so runs on the same day over the same
// ledger state produce identical reports.
func (a *RiskAggregator) Run(ctx context.Context, windowDays int, progress ProgressFunc) (*domain.RiskReport, error) {
	if windowDays <= 0 {
		return nil, errors.New("window must be at least one day")
	}
	if progress == nil {
		progress = func(string) {}
	}

	asOf := a.now().UTC().Truncate(day)
	since := asOf.AddDate(0, 0, -windowDays)

	progress(fmt.Sprintf("scanning purchase orders updated since %s", since.Format(time.DateOnly)))
	orders, err := a.ledger.ListPurchaseOrdersUpdatedSince(ctx, since)
	if err != nil {
		return nil, &domain.LookupUnavailableError{Kind: domain.RecordKindPurchaseOrder, Reference: since.Format(time.DateOnly), Err: err}
	}

	var scanned int
	items := make([]domain.RiskItem, 0)
	for _, po := range orders {
		if po.UpdatedAt.Before(since) && po.OrderDate.Before(since) {
			continue
		}
		scanned++
		if item, ok := a.classify(po, asOf); ok {
			items = append(items, item)
		}
	}
	progress(fmt.Sprintf("classified %d purchase order(s)", scanned))

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].AgeDays != items[j].AgeDays {
			return items[i].AgeDays > items[j].AgeDays
		}
		return items[i].PONumber < items[j].PONumber
	})

	atRisk := len(items)
	if a.rules.Limit > 0 && len(items) > a.rules.Limit {
		items = items[:a.rules.Limit]
	}
	for i := range items {
		items[i].Rank = i + 1
	}
	progress(fmt.Sprintf("%d purchase order(s) at risk", atRisk))

	report := &domain.RiskReport{
		AsOf:         asOf.Format(time.DateOnly),
		WindowDays:   windowDays,
		WindowStart:  since.Format(time.DateOnly),
		ScannedCount: scanned,
		AtRiskCount:  atRisk,
		Items:        items,
	}
	report.Summary = formatRiskSummary(report)

	a.logger.WithFields(logrus.Fields{
		"module":        "risk",
		"window_days":   windowDays,
		"scanned_count": scanned,
		"at_risk_count": atRisk,
	}).Info("risk report built")
	return report, nil
}

func (a *RiskAggregator) classify(po domain.PurchaseOrder, asOf time.Time) (domain.RiskItem, bool) {
	if po.Status.IsSettled() {
		return domain.RiskItem{}, false
	}

	item := domain.RiskItem{
		PONumber:   po.PONumber,
		VendorName: po.VendorName,
		Total:      po.Total,
		AgeDays:    daysBetween(po.OrderDate, asOf),
	}

	if po.ExpectedDeliveryDate != nil {
		overdue := daysBetween(*po.ExpectedDeliveryDate, asOf)
		if overdue > a.rules.OverdueGraceDays {
			item.Flags = append(item.Flags, domain.RiskOverdue)
			item.OverdueDays = overdue
		}
	}
	if po.ConfirmedAt == nil && item.AgeDays >= a.rules.UnconfirmedAfterDays {
		item.Flags = append(item.Flags, domain.RiskUnconfirmed)
	}
	if daysBetween(po.UpdatedAt, asOf) >= a.rules.StaleAfterDays {
		item.Flags = append(item.Flags, domain.RiskStale)
	}

	for _, f := range item.Flags {
		item.Score += f.Weight()
	}
	return item, item.Score > 0
}

// daysBetween counts whole UTC calendar days from t to asOf.
func daysBetween(t, asOf time.Time) int {
	return int(asOf.Sub(t.UTC().Truncate(day)) / day)
}

func formatRiskSummary(r *domain.RiskReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Purchase order risk report as of %s (last %d days)\n", r.AsOf, r.WindowDays)
	if r.AtRiskCount == 0 {
		fmt.Fprintf(&b, "No purchase orders at risk out of %d scanned.\n", r.ScannedCount)
		return b.String()
	}
	fmt.Fprintf(&b, "%d of %d purchase order(s) at risk.\n", r.AtRiskCount, r.ScannedCount)
	for _, item := range r.Items {
		flags := make([]string, len(item.Flags))
		for i, f := range item.Flags {
			flags[i] = string(f)
		}
		fmt.Fprintf(&b, "%d. %s %s score %d [%s] age %dd", item.Rank, item.PONumber, item.VendorName, item.Score, strings.Join(flags, ", "), item.AgeDays)
		if item.OverdueDays > 0 {
			fmt.Fprintf(&b, ", overdue %dd", item.OverdueDays)
		}
		fmt.Fprintf(&b, ", total %s\n", item.Total.StringFixed(2))
	}
	if len(r.Items) < r.AtRiskCount {
		fmt.Fprintf(&b, "... and %d more.\n", r.AtRiskCount-len(r.Items))
	}
	return b.String()
}
