package usecase_test

import (
	"testing"
	"time"

	"doc-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(s))
}

func nullLogger() *logrus.Logger {
	logger, _ := logrustest.NewNullLogger()
	return logger
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func invoiceLine(ref, charges, balance string) domain.StatementLine {
	return domain.StatementLine{
		ReferenceNumber: ref,
		DocumentType:    domain.LineDocumentInvoice,
		Charges:         d(charges),
		Balance:         nd(balance),
	}
}

func paymentLine(ref, credits, balance string) domain.StatementLine {
	return domain.StatementLine{
		ReferenceNumber: ref,
		DocumentType:    domain.LineDocumentPayment,
		Credits:         d(credits),
		Balance:         nd(balance),
	}
}

func statementDocument(id string, status domain.DocumentStatus, lines ...domain.StatementLine) *domain.ProcessedDocument {
	return &domain.ProcessedDocument{
		ID:         id,
		Type:       domain.DocumentTypeVendorStatement,
		Status:     status,
		Source:     domain.SourceEmail,
		SourceRef:  "msg-" + id,
		Confidence: domain.ConfidenceHigh,
		ExtractedData: &domain.StatementPayload{
			VendorName:    "Acme Supply",
			StatementDate: "2026-09-30",
			VendorBalance: nd("750.00"),
			Lines:         lines,
		},
		CreatedAt: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

func assertDiscrepancy(t *testing.T, want *string, got *decimal.Decimal) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	if assert.NotNil(t, got) {
		assertDecimal(t, *want, *got)
	}
}

func strPtr(s string) *string {
	return &s
}
