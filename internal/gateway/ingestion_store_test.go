package gateway

import (
	"context"
	"testing"

	"doc-reconciliation/internal/domain"
	"doc-reconciliation/internal/usecase"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestionUseCase_WithGormStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	uc := usecase.NewIngestionUseCase(store, logger)

	po, err := uc.Ingest(ctx, testStatement("doc-po", ""))
	require.NoError(t, err)

	t.Run("ingest with a link writes both sides", func(t *testing.T) {
		in := testStatement("", "")
		in.LinkedDocuments = []string{po.ID}

		got, err := uc.Ingest(ctx, in)
		require.NoError(t, err)

		stored, err := store.GetDocument(ctx, got.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{po.ID}, stored.LinkedDocuments)
		assert.Equal(t, domain.StatusExtracted, stored.Status)

		other, err := store.GetDocument(ctx, po.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{got.ID}, other.LinkedDocuments)
	})

	t.Run("failed link leaves nothing behind and can be retried", func(t *testing.T) {
		in := testStatement("doc-retry", "")
		in.LinkedDocuments = []string{"missing"}

		_, err := uc.Ingest(ctx, in)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
		_, err = store.GetDocument(ctx, "doc-retry")
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

		in.LinkedDocuments = []string{po.ID}
		_, err = uc.Ingest(ctx, in)
		assert.NoError(t, err)
	})

	t.Run("link two stored documents", func(t *testing.T) {
		a, err := uc.Ingest(ctx, testStatement("doc-a", ""))
		require.NoError(t, err)
		b, err := uc.Ingest(ctx, testStatement("doc-b", ""))
		require.NoError(t, err)

		require.NoError(t, uc.LinkDocuments(ctx, a.ID, b.ID))
		require.NoError(t, uc.LinkDocuments(ctx, b.ID, a.ID))

		gotA, err := store.GetDocument(ctx, a.ID)
		require.NoError(t, err)
		gotB, err := store.GetDocument(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID}, gotA.LinkedDocuments)
		assert.Equal(t, []string{a.ID}, gotB.LinkedDocuments)
	})
}
