package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSchemaMismatch     = errors.New("schema mismatch")
	ErrLookupUnavailable  = errors.New("lookup unavailable")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrDocumentNotFound   = errors.New("document not found")
	ErrDuplicateDocument  = errors.New("document already exists")
	ErrStatusConflict     = errors.New("document status changed concurrently")
	ErrPaymentNotRecorded = errors.New("payment not recorded in ledger")
	ErrNotAStatement      = errors.New("document is not a vendor statement")
	ErrStatusNotExternal  = errors.New("status is assigned by the engine, not by external action")
	ErrRunInProgress      = errors.New("reconciliation already running for this document")
	ErrSelfLink           = errors.New("document cannot be linked to itself")
)

// SchemaMismatchError rejects an extracted payload that does not conform to
// the schema of its document type.
type SchemaMismatchError struct {
	Type   DocumentType
	Fields map[string]string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema mismatch for %s: %s", e.Type, e.Reason)
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString(" (")
		for i, name := range names {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", name, e.Fields[name])
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// RecordKind names the ledger table a reference is resolved against.
type RecordKind string

const (
	RecordKindInvoice       RecordKind = "invoice"
	RecordKindPayment       RecordKind = "payment"
	RecordKindPurchaseOrder RecordKind = "purchase_order"
)

// LookupUnavailableError reports a ledger read that failed, as opposed to a
// lookup that found nothing.
type LookupUnavailableError struct {
	Kind      RecordKind
	Reference string
	Err       error
}

func (e *LookupUnavailableError) Error() string {
	return fmt.Sprintf("lookup unavailable for %s %q: %v", e.Kind, e.Reference, e.Err)
}

func (e *LookupUnavailableError) Is(target error) bool { return target == ErrLookupUnavailable }

func (e *LookupUnavailableError) Unwrap() error { return e.Err }

// InvalidTransitionError rejects a lifecycle change that is not in the table.
type InvalidTransitionError struct {
	From DocumentStatus
	To   DocumentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// PersistenceFailureError reports a write that did not commit.
type PersistenceFailureError struct {
	Op  string
	Err error
}

func (e *PersistenceFailureError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceFailureError) Is(target error) bool { return target == ErrPersistenceFailure }

func (e *PersistenceFailureError) Unwrap() error { return e.Err }
