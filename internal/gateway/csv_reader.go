package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"doc-reconciliation/internal/domain"

	"github.com/shopspring/decimal"
)

var statementColumns = []string{"reference_number", "document_type", "charges", "credits", "balance", "date"}

// CSVStatementReader reads vendor statement rows exported as CSV.
type CSVStatementReader struct{}

// NewCSVStatementReader creates a new reader instance.
func NewCSVStatementReader() *CSVStatementReader {
	return &CSVStatementReader{}
}

// ReadStatementLines parses the statement file into lines, in file order.
// Columns are located by header name; "date" is optional.
func (r *CSVStatementReader) ReadStatementLines(ctx context.Context, path string) ([]domain.StatementLine, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, fmt.Errorf("invalid header in %s: %w", path, err)
	}

	lines := make([]domain.StatementLine, 0)
	for row := 2; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record from %s: %w", path, err)
		}

		line, err := parseStatementRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ReadStatement builds a statement payload from the file. The vendor balance
// is the closing balance of the last line unless one is given.
func (r *CSVStatementReader) ReadStatement(ctx context.Context, path, vendorName, statementDate string, vendorBalance *decimal.Decimal) (*domain.StatementPayload, error) {
	lines, err := r.ReadStatementLines(ctx, path)
	if err != nil {
		return nil, err
	}

	statement := &domain.StatementPayload{
		VendorName:    vendorName,
		StatementDate: statementDate,
		Lines:         lines,
	}
	switch {
	case vendorBalance != nil:
		statement.VendorBalance = decimal.NewNullDecimal(*vendorBalance)
	case len(lines) > 0:
		statement.VendorBalance = lines[len(lines)-1].Balance
	default:
		statement.VendorBalance = decimal.NewNullDecimal(decimal.Zero)
	}
	return statement, nil
}

func indexColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range statementColumns {
		if name == "date" {
			continue
		}
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func parseStatementRecord(record []string, cols map[string]int) (domain.StatementLine, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	charges, err := parseAmount(field("charges"))
	if err != nil {
		return domain.StatementLine{}, fmt.Errorf("could not parse charges: %w", err)
	}
	credits, err := parseAmount(field("credits"))
	if err != nil {
		return domain.StatementLine{}, fmt.Errorf("could not parse credits: %w", err)
	}

	line := domain.StatementLine{
		ReferenceNumber: field("reference_number"),
		DocumentType:    domain.LineDocumentType(strings.ToLower(field("document_type"))),
		Charges:         charges,
		Credits:         credits,
		Date:            field("date"),
	}
	if raw := field("balance"); raw != "" {
		balance, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			return domain.StatementLine{}, fmt.Errorf("could not parse balance '%s': %w", raw, err)
		}
		line.Balance = decimal.NewNullDecimal(balance)
	}
	return line, nil
}

// parseAmount reads a blank cell as zero. Thousands separators are dropped.
func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
}
