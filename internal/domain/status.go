package domain

// DocumentStatus is a document's stage in its processing lifecycle.
type DocumentStatus string

const (
	StatusUnprocessed DocumentStatus = "UNPROCESSED"
	StatusExtracted   DocumentStatus = "EXTRACTED"
	StatusMatched     DocumentStatus = "MATCHED"
	StatusDiscrepancy DocumentStatus = "DISCREPANCY"
	StatusApproved    DocumentStatus = "APPROVED"
	StatusPaid        DocumentStatus = "PAID"
	StatusDisputed    DocumentStatus = "DISPUTED"
	StatusArchived    DocumentStatus = "ARCHIVED"
)

// transitions is the complete lifecycle graph. A pair missing from the
// table is illegal, including self transitions.
var transitions = map[DocumentStatus]map[DocumentStatus]bool{
	StatusUnprocessed: {
		StatusExtracted: true,
		StatusArchived:  true,
	},
	StatusExtracted: {
		StatusMatched:     true,
		StatusDiscrepancy: true,
		StatusDisputed:    true,
		StatusArchived:    true,
	},
	StatusMatched: {
		StatusApproved: true,
		StatusDisputed: true,
		StatusArchived: true,
	},
	StatusDiscrepancy: {
		StatusApproved: true,
		StatusDisputed: true,
		StatusArchived: true,
	},
	StatusApproved: {
		StatusPaid:     true,
		StatusDisputed: true,
		StatusArchived: true,
	},
	StatusPaid: {
		StatusDisputed: true,
		StatusArchived: true,
	},
	StatusDisputed: {
		StatusArchived: true,
	},
	StatusArchived: {},
}

// AllStatuses lists every lifecycle state in graph order.
func AllStatuses() []DocumentStatus {
	return []DocumentStatus{
		StatusUnprocessed,
		StatusExtracted,
		StatusMatched,
		StatusDiscrepancy,
		StatusApproved,
		StatusPaid,
		StatusDisputed,
		StatusArchived,
	}
}

// IsValid reports whether s is a known lifecycle state.
func (s DocumentStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal is true for states with no outgoing transitions.
func (s DocumentStatus) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to DocumentStatus) bool {
	return transitions[from][to]
}

// CheckTransition returns an InvalidTransitionError for any pair that is
// not in the lifecycle table.
func CheckTransition(from, to DocumentStatus) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// TransitionTo moves the document to the given status, leaving it untouched
// when the transition is illegal.
func (d *ProcessedDocument) TransitionTo(to DocumentStatus) error {
	if err := CheckTransition(d.Status, to); err != nil {
		return err
	}
	d.Status = to
	return nil
}
