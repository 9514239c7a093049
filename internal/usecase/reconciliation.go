package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doc-reconciliation/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const lowConfidenceNote = "low extraction confidence, verify manually"

// ReconciliationUseCase orchestrates statement reconciliation runs.
type ReconciliationUseCase struct {
	lines    *LineReconciler
	docs     DocumentRepository
	store    ReconciliationStore
	guard    RunGuard
	notifier Notifier
	logger   *logrus.Logger
	now      func() time.Time
	newID    func() string
}

// Option customizes a ReconciliationUseCase.
type Option func(*ReconciliationUseCase)

// WithRunGuard serializes runs for the same statement.
func WithRunGuard(g RunGuard) Option {
	return func(uc *ReconciliationUseCase) { uc.guard = g }
}

// WithNotifier sends each committed result's summary to n.
func WithNotifier(n Notifier) Option {
	return func(uc *ReconciliationUseCase) { uc.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(uc *ReconciliationUseCase) { uc.now = now }
}

// WithIDGenerator replaces the random result id generator.
func WithIDGenerator(newID func() string) Option {
	return func(uc *ReconciliationUseCase) { uc.newID = newID }
}

// NewReconciliationUseCase creates a new instance of the usecase.
func NewReconciliationUseCase(lines *LineReconciler, docs DocumentRepository, store ReconciliationStore, logger *logrus.Logger, opts ...Option) *ReconciliationUseCase {
	uc := &ReconciliationUseCase{
		lines:  lines,
		docs:   docs,
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Evaluate reconciles every line of the statement in order and aggregates
// the outcome. Nothing is written. Any lookup failure aborts the whole pass.
func (uc *ReconciliationUseCase) Evaluate(ctx context.Context, statement *domain.StatementPayload) (*domain.ReconciliationResult, error) {
	reconciled := make([]domain.StatementLine, 0, len(statement.Lines))
	for i, line := range statement.Lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := uc.lines.ReconcileLine(ctx, line)
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", i+1, line.ReferenceNumber, err)
		}
		reconciled = append(reconciled, out)
	}
	res := domain.NewReconciliationResult(statement, reconciled)
	return &res, nil
}

// EvaluateDocument runs Evaluate against a stored statement document.
func (uc *ReconciliationUseCase) EvaluateDocument(ctx context.Context, documentID string) (*domain.ReconciliationResult, error) {
	doc, statement, err := uc.loadStatement(ctx, documentID)
	if err != nil {
		return nil, err
	}
	res, err := uc.Evaluate(ctx, statement)
	if err != nil {
		return nil, err
	}
	res.DocumentID = doc.ID
	return res, nil
}

// Reconcile performs one complete run for a vendor statement document:
// evaluate every line, then commit the result row and the document's
// EXTRACTED -> MATCHED/DISCREPANCY transition together. A failed or
// cancelled run commits nothing.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, documentID string) (*domain.ReconciliationResult, error) {
	log := uc.logger.WithFields(logrus.Fields{
		"module":      "reconciliation",
		"document_id": documentID,
	})

	if uc.guard != nil {
		release, err := uc.guard.Acquire(ctx, "reconcile:"+documentID)
		if err != nil {
			return nil, fmt.Errorf("acquire run guard: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.WithError(err).Warn("release run guard")
			}
		}()
	}

	doc, statement, err := uc.loadStatement(ctx, documentID)
	if err != nil {
		return nil, err
	}
	// Both outcomes leave EXTRACTED, so anything else is refused before any
	// ledger lookup.
	if doc.Status != domain.StatusExtracted {
		return nil, &domain.InvalidTransitionError{From: doc.Status, To: domain.StatusMatched}
	}

	res, err := uc.Evaluate(ctx, statement)
	if err != nil {
		log.WithError(err).Warn("reconciliation aborted")
		return nil, err
	}

	target := res.TargetStatus()
	if err := domain.CheckTransition(doc.Status, target); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	res.ID = uc.newID()
	res.DocumentID = doc.ID
	res.CreatedAt = now

	doc.MarkProcessed(now)
	update := domain.StatusUpdate{
		DocumentID:     doc.ID,
		From:           doc.Status,
		To:             target,
		ActionRequired: res.DiscrepancyCount > 0 || doc.RequiresHumanAction(),
		ActionSummary:  actionSummary(res, doc),
		ProcessedAt:    *doc.ProcessedAt,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := uc.store.CommitReconciliation(ctx, *res, update); err != nil {
		return nil, &domain.PersistenceFailureError{Op: "commit reconciliation", Err: err}
	}

	log.WithFields(logrus.Fields{
		"result_id":         res.ID,
		"status":            res.Status,
		"discrepancy_count": res.DiscrepancyCount,
		"document_status":   target,
	}).Info("reconciliation committed")

	uc.notify(ctx, log, res)
	return res, nil
}

func (uc *ReconciliationUseCase) loadStatement(ctx context.Context, documentID string) (*domain.ProcessedDocument, *domain.StatementPayload, error) {
	doc, err := uc.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get document %s: %w", documentID, err)
	}
	if doc.Type != domain.DocumentTypeVendorStatement {
		return nil, nil, fmt.Errorf("%w: %s is %s", domain.ErrNotAStatement, documentID, doc.Type)
	}
	statement, err := doc.Statement()
	if err != nil {
		return nil, nil, err
	}
	return doc, statement, nil
}

// notify is best effort; the result is already committed.
func (uc *ReconciliationUseCase) notify(ctx context.Context, log *logrus.Entry, res *domain.ReconciliationResult) {
	if uc.notifier == nil {
		return
	}
	subject := fmt.Sprintf("Statement reconciliation: %s %s", res.VendorName, res.Status)
	if err := uc.notifier.Notify(ctx, subject, res.Summary()); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("notify reconciliation summary")
	}
}

func actionSummary(res *domain.ReconciliationResult, doc *domain.ProcessedDocument) string {
	summary := res.ActionSummary()
	if !doc.RequiresHumanAction() {
		return summary
	}
	if summary == "" {
		return lowConfidenceNote
	}
	return summary + "; " + lowConfidenceNote
}
