package domain

import "github.com/shopspring/decimal"

// RiskFlag names one rule an entity tripped.
type RiskFlag string

const (
	RiskOverdue     RiskFlag = "OVERDUE"
	RiskUnconfirmed RiskFlag = "UNCONFIRMED"
	RiskStale       RiskFlag = "STALE"
)

// Weight is the flag's contribution to an entity's risk score.
func (f RiskFlag) Weight() int {
	switch f {
	case RiskOverdue:
		return 3
	case RiskUnconfirmed:
		return 2
	case RiskStale:
		return 1
	}
	return 0
}

// RiskItem is one ranked at-risk entity.
type RiskItem struct {
	Rank        int             `json:"rank"`
	PONumber    string          `json:"po_number"`
	VendorName  string          `json:"vendor_name"`
	Total       decimal.Decimal `json:"total"`
	AgeDays     int             `json:"age_days"`
	OverdueDays int             `json:"overdue_days,omitempty"`
	Flags       []RiskFlag      `json:"flags"`
	Score       int             `json:"score"`
}

// RiskReport is a ranked, time-windowed view of at-risk ledger entities. It
// is a notification payload, not authoritative state.
type RiskReport struct {
	AsOf         string     `json:"as_of"`
	WindowDays   int        `json:"window_days"`
	WindowStart  string     `json:"window_start"`
	ScannedCount int        `json:"scanned_count"`
	AtRiskCount  int        `json:"at_risk_count"`
	Items        []RiskItem `json:"items"`
	Summary      string     `json:"summary"`
}
