package usecase_test

import (
	"context"
	"errors"
	"testing"

	"doc-reconciliation/internal/domain"
	"doc-reconciliation/internal/usecase"
	mock_usecase "doc-reconciliation/internal/usecase/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleUseCase_Transition(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name        string
		from        domain.DocumentStatus
		to          domain.DocumentStatus
		expectGet   bool
		expectWrite bool
		writeErr    error
		wantErr     error
	}{
		{name: "approve matched", from: domain.StatusMatched, to: domain.StatusApproved, expectGet: true, expectWrite: true},
		{name: "approve discrepancy after review", from: domain.StatusDiscrepancy, to: domain.StatusApproved, expectGet: true, expectWrite: true},
		{name: "dispute extracted", from: domain.StatusExtracted, to: domain.StatusDisputed, expectGet: true, expectWrite: true},
		{name: "dispute paid", from: domain.StatusPaid, to: domain.StatusDisputed, expectGet: true, expectWrite: true},
		{name: "archive from anywhere", from: domain.StatusDisputed, to: domain.StatusArchived, expectGet: true, expectWrite: true},
		{name: "approve straight from extraction", from: domain.StatusExtracted, to: domain.StatusApproved, expectGet: true, wantErr: domain.ErrInvalidTransition},
		{name: "archived is terminal", from: domain.StatusArchived, to: domain.StatusDisputed, expectGet: true, wantErr: domain.ErrInvalidTransition},
		{name: "disputed cannot be approved", from: domain.StatusDisputed, to: domain.StatusApproved, expectGet: true, wantErr: domain.ErrInvalidTransition},
		{name: "matched is engine assigned", from: domain.StatusExtracted, to: domain.StatusMatched, wantErr: domain.ErrStatusNotExternal},
		{name: "paid goes through payment confirmation", from: domain.StatusApproved, to: domain.StatusPaid, wantErr: domain.ErrStatusNotExternal},
		{
			name: "status changed underneath", from: domain.StatusMatched, to: domain.StatusApproved,
			expectGet: true, expectWrite: true, writeErr: domain.ErrStatusConflict, wantErr: domain.ErrStatusConflict,
		},
		{
			name: "store failure", from: domain.StatusMatched, to: domain.StatusApproved,
			expectGet: true, expectWrite: true, writeErr: errors.New("broken pipe"), wantErr: domain.ErrPersistenceFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mDocs := mock_usecase.NewMockDocumentRepository(ctrl)
			mLedger := mock_usecase.NewMockLedgerRepository(ctrl)
			doc := statementDocument("doc-1", tt.from)

			if tt.expectGet {
				mDocs.EXPECT().GetDocument(gomock.Any(), "doc-1").Return(doc, nil)
			}
			if tt.expectWrite {
				mDocs.EXPECT().UpdateDocumentStatus(gomock.Any(), "doc-1", tt.from, tt.to).Return(tt.writeErr)
			}

			uc := usecase.NewLifecycleUseCase(mDocs, usecase.NewMatcher(mLedger), nullLogger())
			got, err := uc.Transition(context.Background(), "doc-1", tt.to)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				assert.Equal(t, tt.from, doc.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
		})
	}
}

func TestLifecycleUseCase_Archive(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mDocs := mock_usecase.NewMockDocumentRepository(ctrl)
	mDocs.EXPECT().GetDocument(gomock.Any(), "doc-1").Return(statementDocument("doc-1", domain.StatusUnprocessed), nil)
	mDocs.EXPECT().UpdateDocumentStatus(gomock.Any(), "doc-1", domain.StatusUnprocessed, domain.StatusArchived).Return(nil)

	uc := usecase.NewLifecycleUseCase(mDocs, usecase.NewMatcher(mock_usecase.NewMockLedgerRepository(ctrl)), nullLogger())
	got, err := uc.Archive(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, got.Status)
}

func TestLifecycleUseCase_ConfirmPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("payment found", func(t *testing.T) {
		mDocs := mock_usecase.NewMockDocumentRepository(ctrl)
		mLedger := mock_usecase.NewMockLedgerRepository(ctrl)
		mDocs.EXPECT().GetDocument(gomock.Any(), "doc-1").Return(statementDocument("doc-1", domain.StatusApproved), nil)
		mLedger.EXPECT().FindPaymentByReference(gomock.Any(), "PAY-9").
			Return(&domain.Payment{PaymentReference: "PAY-9", Amount: d("750.00")}, nil)
		mDocs.EXPECT().UpdateDocumentStatus(gomock.Any(), "doc-1", domain.StatusApproved, domain.StatusPaid).Return(nil)

		uc := usecase.NewLifecycleUseCase(mDocs, usecase.NewMatcher(mLedger), nullLogger())
		got, err := uc.ConfirmPayment(context.Background(), "doc-1", "PAY-9")

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, got.Status)
	})

	t.Run("payment not in ledger", func(t *testing.T) {
		mDocs := mock_usecase.NewMockDocumentRepository(ctrl)
		mLedger := mock_usecase.NewMockLedgerRepository(ctrl)
		mDocs.EXPECT().GetDocument(gomock.Any(), "doc-1").Return(statementDocument("doc-1", domain.StatusApproved), nil)
		mLedger.EXPECT().FindPaymentByReference(gomock.Any(), "PAY-9").Return(nil, nil)

		uc := usecase.NewLifecycleUseCase(mDocs, usecase.NewMatcher(mLedger), nullLogger())
		_, err := uc.ConfirmPayment(context.Background(), "doc-1", "PAY-9")

		assert.ErrorIs(t, err, domain.ErrPaymentNotRecorded)
	})

	t.Run("not yet approved skips the ledger", func(t *testing.T) {
		mDocs := mock_usecase.NewMockDocumentRepository(ctrl)
		mLedger := mock_usecase.NewMockLedgerRepository(ctrl)
		mDocs.EXPECT().GetDocument(gomock.Any(), "doc-1").Return(statementDocument("doc-1", domain.StatusMatched), nil)

		uc := usecase.NewLifecycleUseCase(mDocs, usecase.NewMatcher(mLedger), nullLogger())
		_, err := uc.ConfirmPayment(context.Background(), "doc-1", "PAY-9")

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("ledger down", func(t *testing.T) {
		mDocs := mock_usecase.NewMockDocumentRepository(ctrl)
		mLedger := mock_usecase.NewMockLedgerRepository(ctrl)
		mDocs.EXPECT().GetDocument(gomock.Any(), "doc-1").Return(statementDocument("doc-1", domain.StatusApproved), nil)
		mLedger.EXPECT().FindPaymentByReference(gomock.Any(), "PAY-9").Return(nil, errors.New("timeout"))

		uc := usecase.NewLifecycleUseCase(mDocs, usecase.NewMatcher(mLedger), nullLogger())
		_, err := uc.ConfirmPayment(context.Background(), "doc-1", "PAY-9")

		assert.ErrorIs(t, err, domain.ErrLookupUnavailable)
	})
}
