package usecase

import (
	"context"
	"fmt"

	"doc-reconciliation/internal/domain"

	"github.com/sirupsen/logrus"
)

// externalTargets are the states an outside actor may move a document to.
// EXTRACTED, MATCHED and DISCREPANCY are assigned by ingestion and
// reconciliation; PAID goes through ConfirmPayment.
var externalTargets = map[domain.DocumentStatus]bool{
	domain.StatusApproved: true,
	domain.StatusDisputed: true,
	domain.StatusArchived: true,
}

// LifecycleUseCase accepts lifecycle changes requested by people, policies
// and the ticketing collaborator.
type LifecycleUseCase struct {
	docs    DocumentRepository
	matcher *Matcher
	logger  *logrus.Logger
}

// NewLifecycleUseCase creates a new instance of the usecase.
func NewLifecycleUseCase(docs DocumentRepository, matcher *Matcher, logger *logrus.Logger) *LifecycleUseCase {
	return &LifecycleUseCase{docs: docs, matcher: matcher, logger: logger}
}

// Transition applies an external action (approve, dispute, archive).
func (uc *LifecycleUseCase) Transition(ctx context.Context, documentID string, to domain.DocumentStatus) (*domain.ProcessedDocument, error) {
	if !externalTargets[to] {
		return nil, fmt.Errorf("%w: %s", domain.ErrStatusNotExternal, to)
	}
	doc, err := uc.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("could not get document %s: %w", documentID, err)
	}
	if err := uc.apply(ctx, doc, to); err != nil {
		return nil, err
	}
	return doc, nil
}

// Archive is the entry point for "linked issue closed" events.
func (uc *LifecycleUseCase) Archive(ctx context.Context, documentID string) (*domain.ProcessedDocument, error) {
	return uc.Transition(ctx, documentID, domain.StatusArchived)
}

// ConfirmPayment moves an APPROVED document to PAID once the ledger holds
// the payment.
func (uc *LifecycleUseCase) ConfirmPayment(ctx context.Context, documentID, paymentRef string) (*domain.ProcessedDocument, error) {
	doc, err := uc.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("could not get document %s: %w", documentID, err)
	}
	if err := domain.CheckTransition(doc.Status, domain.StatusPaid); err != nil {
		return nil, err
	}
	payment, err := uc.matcher.MatchPayment(ctx, paymentRef)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrPaymentNotRecorded, paymentRef)
	}
	if err := uc.apply(ctx, doc, domain.StatusPaid); err != nil {
		return nil, err
	}
	return doc, nil
}

// apply validates against the lifecycle table and writes with a
// compare-and-set on the current status. doc is only updated on success.
func (uc *LifecycleUseCase) apply(ctx context.Context, doc *domain.ProcessedDocument, to domain.DocumentStatus) error {
	from := doc.Status
	if err := domain.CheckTransition(from, to); err != nil {
		return err
	}
	if err := uc.docs.UpdateDocumentStatus(ctx, doc.ID, from, to); err != nil {
		return &domain.PersistenceFailureError{Op: "update document status", Err: err}
	}
	doc.Status = to

	uc.logger.WithFields(logrus.Fields{
		"module":      "lifecycle",
		"document_id": doc.ID,
		"from":        from,
		"to":          to,
	}).Info("document status changed")
	return nil
}
