package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"doc-reconciliation/internal/domain"
)

// JSONDocumentReader reads extractor output envelopes from disk.
type JSONDocumentReader struct{}

// NewJSONDocumentReader creates a new reader instance.
func NewJSONDocumentReader() *JSONDocumentReader {
	return &JSONDocumentReader{}
}

// ReadDocuments accepts either a single envelope or an array of them. Each
// payload is decoded by its type tag; the first non-conforming document
// fails the whole read.
func (r *JSONDocumentReader) ReadDocuments(ctx context.Context, path string) ([]*domain.ProcessedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []*domain.ProcessedDocument
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("could not decode documents in %s: %w", path, err)
		}
		return docs, nil
	}

	var doc domain.ProcessedDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("could not decode document in %s: %w", path, err)
	}
	return []*domain.ProcessedDocument{&doc}, nil
}

// ReadDocument reads a file holding exactly one envelope.
func (r *JSONDocumentReader) ReadDocument(ctx context.Context, path string) (*domain.ProcessedDocument, error) {
	docs, err := r.ReadDocuments(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(docs) != 1 {
		return nil, fmt.Errorf("%s holds %d documents, expected 1", path, len(docs))
	}
	return docs[0], nil
}

// LedgerSnapshot is an export of the internal ledger used to seed the
// lookup tables.
type LedgerSnapshot struct {
	Invoices       []domain.Invoice       `json:"invoices"`
	Payments       []domain.Payment       `json:"payments"`
	PurchaseOrders []domain.PurchaseOrder `json:"purchase_orders"`
}

// ReadLedger reads a ledger export.
func (r *JSONDocumentReader) ReadLedger(ctx context.Context, path string) (*LedgerSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var snap LedgerSnapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("could not decode ledger in %s: %w", path, err)
	}
	return &snap, nil
}
