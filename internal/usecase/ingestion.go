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

// IngestionUseCase accepts extractor output into the document store.
type IngestionUseCase struct {
	docs   DocumentRepository
	logger *logrus.Logger
	now    func() time.Time
	newID  func() string
}

// NewIngestionUseCase creates a new instance of the usecase.
func NewIngestionUseCase(docs DocumentRepository, logger *logrus.Logger) *IngestionUseCase {
	return &IngestionUseCase{
		docs:   docs,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Ingest validates the extracted payload against the document type, moves
// the document UNPROCESSED -> EXTRACTED and stores it. A non-conforming
// payload is rejected with a SchemaMismatchError and nothing is stored.
func (uc *IngestionUseCase) Ingest(ctx context.Context, doc *domain.ProcessedDocument) (*domain.ProcessedDocument, error) {
	if err := domain.ValidatePayload(doc.Type, doc.ExtractedData); err != nil {
		return nil, err
	}

	in := *doc
	if in.Status == "" {
		in.Status = domain.StatusUnprocessed
	}
	if err := in.TransitionTo(domain.StatusExtracted); err != nil {
		return nil, err
	}
	if in.ID == "" {
		in.ID = uc.newID()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = uc.now().UTC()
	}
	in.ProcessedAt = nil
	in.ActionRequired = in.RequiresHumanAction()
	in.ActionSummary = ""
	if in.ActionRequired {
		in.ActionSummary = lowConfidenceNote
	}
	links, err := ingestLinks(in.ID, in.LinkedDocuments)
	if err != nil {
		return nil, err
	}
	in.LinkedDocuments = links

	if err := uc.docs.CreateDocument(ctx, &in); err != nil {
		if errors.Is(err, domain.ErrDuplicateDocument) || errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceFailureError{Op: "create document", Err: err}
	}

	uc.logger.WithFields(logrus.Fields{
		"module":      "ingestion",
		"document_id": in.ID,
		"type":        in.Type,
		"source":      in.Source,
		"confidence":  in.Confidence,
	}).Info("document ingested")
	return &in, nil
}

// LinkDocuments relates two documents in both directions.
func (uc *IngestionUseCase) LinkDocuments(ctx context.Context, a, b string) error {
	if a == b {
		return domain.ErrSelfLink
	}
	docA, err := uc.docs.GetDocument(ctx, a)
	if err != nil {
		return fmt.Errorf("could not get document %s: %w", a, err)
	}
	docB, err := uc.docs.GetDocument(ctx, b)
	if err != nil {
		return fmt.Errorf("could not get document %s: %w", b, err)
	}
	if docA.IsLinkedTo(b) && docB.IsLinkedTo(a) {
		return nil
	}
	if err := uc.docs.LinkDocuments(ctx, a, b); err != nil {
		return &domain.PersistenceFailureError{Op: "link documents", Err: err}
	}
	return nil
}

// ingestLinks drops repeated ids and rejects a link to the document itself.
func ingestLinks(id string, requested []string) ([]string, error) {
	links := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, other := range requested {
		if other == id {
			return nil, domain.ErrSelfLink
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		links = append(links, other)
	}
	return links, nil
}
