package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doc-reconciliation/internal/domain"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps documents, reconciliation results and the read side of the
// ledger in one relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new store instance.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates every table the store uses.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&documentRow{},
		&reconciliationRow{},
		&invoiceRow{},
		&paymentRow{},
		&purchaseOrderRow{},
	)
}

func (s *GormStore) FindInvoiceByReference(ctx context.Context, ref string) (*domain.Invoice, error) {
	var row invoiceRow
	err := s.db.WithContext(ctx).Where("invoice_number = ?", ref).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Invoice{
		InvoiceNumber: row.InvoiceNumber,
		VendorName:    row.VendorName,
		Total:         row.Total,
		InvoiceDate:   row.InvoiceDate.UTC(),
	}, nil
}

func (s *GormStore) FindPaymentByReference(ctx context.Context, ref string) (*domain.Payment, error) {
	var row paymentRow
	err := s.db.WithContext(ctx).Where("payment_reference = ?", ref).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Payment{
		PaymentReference: row.PaymentReference,
		VendorName:       row.VendorName,
		Amount:           row.Amount,
		PaidAt:           row.PaidAt.UTC(),
	}, nil
}

func (s *GormStore) ListPurchaseOrdersUpdatedSince(ctx context.Context, since time.Time) ([]domain.PurchaseOrder, error) {
	var rows []purchaseOrderRow
	err := s.db.WithContext(ctx).
		Where("updated_at >= ? OR order_date >= ?", since, since).
		Order("po_number").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	orders := make([]domain.PurchaseOrder, len(rows))
	for i := range rows {
		orders[i] = rows[i].toDomain()
	}
	return orders, nil
}

// SaveInvoice upserts a ledger invoice. The ledger is owned elsewhere; this
// exists for loading fixtures and local runs.
func (s *GormStore) SaveInvoice(ctx context.Context, inv domain.Invoice) error {
	return s.db.WithContext(ctx).Save(&invoiceRow{
		InvoiceNumber: inv.InvoiceNumber,
		VendorName:    inv.VendorName,
		Total:         inv.Total,
		InvoiceDate:   inv.InvoiceDate,
	}).Error
}

// SavePayment upserts a ledger payment.
func (s *GormStore) SavePayment(ctx context.Context, p domain.Payment) error {
	return s.db.WithContext(ctx).Save(&paymentRow{
		PaymentReference: p.PaymentReference,
		VendorName:       p.VendorName,
		Amount:           p.Amount,
		PaidAt:           p.PaidAt,
	}).Error
}

// SavePurchaseOrder upserts a ledger purchase order.
func (s *GormStore) SavePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) error {
	return s.db.WithContext(ctx).Save(&purchaseOrderRow{
		PONumber:             po.PONumber,
		VendorName:           po.VendorName,
		Status:               string(po.Status),
		Total:                po.Total,
		OrderDate:            po.OrderDate,
		ExpectedDeliveryDate: po.ExpectedDeliveryDate,
		ConfirmedAt:          po.ConfirmedAt,
		UpdatedAt:            po.UpdatedAt,
	}).Error
}

// CreateDocument stores doc and adds the back-link on every document in
// doc.LinkedDocuments in the same transaction. An unknown link target
// rolls the whole write back.
func (s *GormStore) CreateDocument(ctx context.Context, doc *domain.ProcessedDocument) error {
	row, err := newDocumentRow(doc)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateDocument, doc.ID)
			}
			return err
		}
		for _, other := range doc.LinkedDocuments {
			target, err := lockDocument(tx, other)
			if err != nil {
				return err
			}
			if err := appendLink(tx, target, doc.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) GetDocument(ctx context.Context, id string) (*domain.ProcessedDocument, error) {
	row, err := takeDocument(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// UpdateDocumentStatus moves the document only while it is still in from.
func (s *GormStore) UpdateDocumentStatus(ctx context.Context, id string, from, to domain.DocumentStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return casStatus(tx, id, from, map[string]any{"status": string(to)})
	})
}

// LinkDocuments records the relation on both documents in one transaction.
func (s *GormStore) LinkDocuments(ctx context.Context, a, b string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rowA, err := lockDocument(tx, a)
		if err != nil {
			return err
		}
		rowB, err := lockDocument(tx, b)
		if err != nil {
			return err
		}
		if err := appendLink(tx, rowA, b); err != nil {
			return err
		}
		return appendLink(tx, rowB, a)
	})
}

// CommitReconciliation writes the result row and the statement's status
// change together. Nothing is written when the document has moved on.
func (s *GormStore) CommitReconciliation(ctx context.Context, res domain.ReconciliationResult, update domain.StatusUpdate) error {
	row, err := newReconciliationRow(res)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := casStatus(tx, update.DocumentID, update.From, map[string]any{
			"status":          string(update.To),
			"action_required": update.ActionRequired,
			"action_summary":  update.ActionSummary,
			"processed_at":    update.ProcessedAt,
		})
		if err != nil {
			return err
		}
		return tx.Create(row).Error
	})
}

// ListReconciliations returns a statement's results, newest first.
func (s *GormStore) ListReconciliations(ctx context.Context, documentID string) ([]domain.ReconciliationResult, error) {
	var rows []reconciliationRow
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	results := make([]domain.ReconciliationResult, 0, len(rows))
	for i := range rows {
		res, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func takeDocument(db *gorm.DB, id string) (*documentRow, error) {
	var row documentRow
	err := db.Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// lockDocument reads id with a row lock. Each call builds its own statement
// so conditions never carry over between lookups.
func lockDocument(tx *gorm.DB, id string) (*documentRow, error) {
	return takeDocument(tx.Session(&gorm.Session{}).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func casStatus(tx *gorm.DB, id string, from domain.DocumentStatus, values map[string]any) error {
	res := tx.Model(&documentRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&documentRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	return fmt.Errorf("%w: %s is no longer %s", domain.ErrStatusConflict, id, from)
}

func appendLink(tx *gorm.DB, row *documentRow, other string) error {
	for _, id := range row.LinkedDocuments {
		if id == other {
			return nil
		}
	}
	row.LinkedDocuments = append(row.LinkedDocuments, other)
	return tx.Model(row).Select("LinkedDocuments").Updates(row).Error
}

func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
