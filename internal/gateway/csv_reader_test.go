package gateway

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doc-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVStatementReader_ReadStatementLines(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		want    []domain.StatementLine
		wantErr bool
	}{
		{
			name: "valid statement keeps file order",
			lines: []string{
				"reference_number,document_type,charges,credits,balance,date",
				"INV-1001,invoice,250.00,,250.00,2026-09-03",
				"PAY-2001,payment,,100.00,150.00,2026-09-10",
				`INV-1002,Invoice,"1,600.00",,"1,750.00",2026-09-21`,
			},
			want: []domain.StatementLine{
				{
					ReferenceNumber: "INV-1001",
					DocumentType:    domain.LineDocumentInvoice,
					Charges:         dec("250.00"),
					Credits:         decimal.Zero,
					Balance:         decimal.NewNullDecimal(dec("250.00")),
					Date:            "2026-09-03",
				},
				{
					ReferenceNumber: "PAY-2001",
					DocumentType:    domain.LineDocumentPayment,
					Charges:         decimal.Zero,
					Credits:         dec("100.00"),
					Balance:         decimal.NewNullDecimal(dec("150.00")),
					Date:            "2026-09-10",
				},
				{
					ReferenceNumber: "INV-1002",
					DocumentType:    domain.LineDocumentInvoice,
					Charges:         dec("1600.00"),
					Credits:         decimal.Zero,
					Balance:         decimal.NewNullDecimal(dec("1750.00")),
					Date:            "2026-09-21",
				},
			},
		},
		{
			name: "columns in any order, date optional",
			lines: []string{
				"balance,reference_number,credits,charges,document_type",
				"12.50,DM-7,,12.50,debit_memo",
			},
			want: []domain.StatementLine{
				{
					ReferenceNumber: "DM-7",
					DocumentType:    domain.LineDocumentDebitMemo,
					Charges:         dec("12.50"),
					Credits:         decimal.Zero,
					Balance:         decimal.NewNullDecimal(dec("12.50")),
				},
			},
		},
		{
			name:  "header only",
			lines: []string{"reference_number,document_type,charges,credits,balance"},
			want:  []domain.StatementLine{},
		},
		{
			name: "missing balance column",
			lines: []string{
				"reference_number,document_type,charges,credits",
				"INV-1,invoice,1,0",
			},
			wantErr: true,
		},
		{
			name: "invalid amount",
			lines: []string{
				"reference_number,document_type,charges,credits,balance",
				"INV-1,invoice,abc,0,1",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "statement.csv", strings.Join(tt.lines, "\n"))

			got, err := NewCSVStatementReader().ReadStatementLines(context.Background(), path)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assertLineEqual(t, tt.want[i], got[i])
			}
		})
	}
}

func TestCSVStatementReader_ReadStatement(t *testing.T) {
	path := writeTempFile(t, "statement.csv", strings.Join([]string{
		"reference_number,document_type,charges,credits,balance",
		"INV-1001,invoice,250.00,,250.00",
		"INV-1002,invoice,500.00,,750.00",
	}, "\n"))
	reader := NewCSVStatementReader()

	statement, err := reader.ReadStatement(context.Background(), path, "Acme Supply", "2026-09-30", nil)
	require.NoError(t, err)
	assert.Equal(t, "Acme Supply", statement.VendorName)
	assert.True(t, dec("750").Equal(statement.VendorBalance.Decimal))
	assert.NoError(t, domain.ValidatePayload(domain.DocumentTypeVendorStatement, statement))

	override := dec("800")
	statement, err = reader.ReadStatement(context.Background(), path, "Acme Supply", "2026-09-30", &override)
	require.NoError(t, err)
	assert.True(t, override.Equal(statement.VendorBalance.Decimal))
}

func TestCSVStatementReader_FileErrors(t *testing.T) {
	reader := NewCSVStatementReader()
	ctx := context.Background()

	t.Run("file not found", func(t *testing.T) {
		_, err := reader.ReadStatementLines(ctx, filepath.Join(t.TempDir(), "nonexistent.csv"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := reader.ReadStatementLines(ctx, writeTempFile(t, "empty.csv", ""))
		assert.Error(t, err)
	})
}

func TestJSONDocumentReader(t *testing.T) {
	single := `{
		"type": "INVOICE",
		"source": "upload",
		"source_ref": "scan-17",
		"confidence": "medium",
		"extracted_data": {"invoice_number":"INV-1001","invoice_date":"2026-09-12","vendor_name":"Acme Supply","total":"250.00"}
	}`
	reader := NewJSONDocumentReader()
	ctx := context.Background()

	doc, err := reader.ReadDocument(ctx, writeTempFile(t, "doc.json", single))
	require.NoError(t, err)
	inv, err := doc.Invoice()
	require.NoError(t, err)
	assert.Equal(t, "INV-1001", inv.InvoiceNumber)

	docs, err := reader.ReadDocuments(ctx, writeTempFile(t, "docs.json", "["+single+","+single+"]"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = reader.ReadDocument(ctx, writeTempFile(t, "docs.json", "["+single+","+single+"]"))
	assert.Error(t, err)

	bad := strings.Replace(single, `"total":"250.00"`, `"amount":"250.00"`, 1)
	_, err = reader.ReadDocument(ctx, writeTempFile(t, "bad.json", bad))
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func assertLineEqual(t *testing.T, want, got domain.StatementLine) {
	t.Helper()
	assert.Equal(t, want.ReferenceNumber, got.ReferenceNumber)
	assert.Equal(t, want.DocumentType, got.DocumentType)
	assert.True(t, want.Charges.Equal(got.Charges), "charges: want %s, got %s", want.Charges, got.Charges)
	assert.True(t, want.Credits.Equal(got.Credits), "credits: want %s, got %s", want.Credits, got.Credits)
	assert.Equal(t, want.Balance.Valid, got.Balance.Valid)
	assert.True(t, want.Balance.Decimal.Equal(got.Balance.Decimal), "balance: want %s, got %s", want.Balance.Decimal, got.Balance.Decimal)
	assert.Equal(t, want.Date, got.Date)
}
