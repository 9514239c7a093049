package usecase

import (
	"context"
	"time"

	"doc-reconciliation/internal/domain"
)

// LedgerRepository reads the externally owned ledger. Lookups return a nil
// record and a nil error when nothing matches; any error means the read
// itself failed.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go
type LedgerRepository interface {
	FindInvoiceByReference(ctx context.Context, ref string) (*domain.Invoice, error)
	FindPaymentByReference(ctx context.Context, ref string) (*domain.Payment, error)
	ListPurchaseOrdersUpdatedSince(ctx context.Context, since time.Time) ([]domain.PurchaseOrder, error)
}

// DocumentRepository persists processed documents.
type DocumentRepository interface {
	// CreateDocument stores doc and back-links every id in
	// doc.LinkedDocuments in one write. An unknown link target fails with
	// domain.ErrDocumentNotFound and nothing is stored.
	CreateDocument(ctx context.Context, doc *domain.ProcessedDocument) error
	GetDocument(ctx context.Context, id string) (*domain.ProcessedDocument, error)
	// UpdateDocumentStatus moves id from -> to, failing with
	// domain.ErrStatusConflict when the stored status is no longer from.
	UpdateDocumentStatus(ctx context.Context, id string, from, to domain.DocumentStatus) error
	// LinkDocuments records the link on both documents in one write.
	LinkDocuments(ctx context.Context, a, b string) error
}

// ReconciliationStore commits a reconciliation result together with the
// statement document's status update. Either both are applied or neither.
type ReconciliationStore interface {
	CommitReconciliation(ctx context.Context, result domain.ReconciliationResult, update domain.StatusUpdate) error
}

// RunGuard serializes reconciliation runs for the same statement across
// processes. Acquire fails with domain.ErrRunInProgress when another run
// holds the key.
type RunGuard interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// Notifier hands plain-text reports to the messaging collaborator.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}
