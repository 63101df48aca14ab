package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/billing"
)

var (
	invoiceColumns = []string{
		"id", "school_id", "number", "student_id", "description", "amount", "amount_paid", "currency", "due_date",
		"status", "created_at", "updated_at",
	}
	paymentColumns = []string{
		"id", "school_id", "invoice_id", "student_id", "amount", "currency", "method", "reference", "paid_at",
		"recorded_by", "created_at",
	}
)

type paymentRow struct {
	ID         string      `db:"id"`
	SchoolID   string      `db:"school_id"`
	InvoiceID  string      `db:"invoice_id"`
	StudentID  string      `db:"student_id"`
	Amount     int64       `db:"amount"`
	Currency   string      `db:"currency"`
	Method     string      `db:"method"`
	Reference  string      `db:"reference"`
	PaidAt     time.Time   `db:"paid_at"`
	RecordedBy null.String `db:"recorded_by"`
	CreatedAt  time.Time   `db:"created_at"`
}

type billingRepository struct {
	db core.DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db core.DB) billing.Repository {
	return &billingRepository{db: db}
}

func (repo billingRepository) boilPayment(p billing.Payment) paymentRow {
	return paymentRow{
		ID:         p.ID,
		SchoolID:   p.SchoolID,
		InvoiceID:  p.InvoiceID,
		StudentID:  p.StudentID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Method:     p.Method,
		Reference:  p.Reference,
		PaidAt:     p.PaidAt.UTC(),
		RecordedBy: null.NewString(p.RecordedBy, p.RecordedBy != ""),
		CreatedAt:  p.CreatedAt.UTC(),
	}
}

func (repo billingRepository) unboilPayment(row paymentRow) billing.Payment {
	return billing.Payment{
		ID:         row.ID,
		SchoolID:   row.SchoolID,
		InvoiceID:  row.InvoiceID,
		StudentID:  row.StudentID,
		Amount:     row.Amount,
		Currency:   row.Currency,
		Method:     row.Method,
		Reference:  row.Reference,
		PaidAt:     row.PaidAt,
		RecordedBy: row.RecordedBy.String,
		CreatedAt:  row.CreatedAt,
	}
}

func (repo *billingRepository) CreateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("invoices", invoiceColumns), inv); err != nil {
		return billing.Invoice{}, trapPgErr(err, "inserting invoice")
	}
	return inv, nil
}

func (repo *billingRepository) QueryInvoices(ctx context.Context, schoolID string, filter *billing.InvoiceFilter, ordering []core.DBOrdering) ([]billing.Invoice, error) {
	var where whereClause
	where.add("school_id = ?", schoolID)
	if filter != nil {
		if filter.StudentID != "" {
			where.add("student_id = ?", filter.StudentID)
		}
		if len(filter.Statuses) > 0 {
			where.add("status IN (?)", filter.Statuses)
		}
		if filter.Search != "" {
			where.search(filter.Search, "number", "description")
		}
	}

	invoices := make([]billing.Invoice, 0)
	q := selectQuery("invoices", invoiceColumns) + where.String() + core.OrderByClause(ordering, "created_at DESC, number DESC")
	if err := selectAll(ctx, repo.db, &invoices, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying invoices")
	}
	return invoices, nil
}

func (repo *billingRepository) getInvoice(ctx context.Context, exec core.DBExecutor, schoolID, id, suffix string) (billing.Invoice, error) {
	if !validID(id) {
		return billing.Invoice{}, billing.ErrInvoiceNotFound
	}
	var inv billing.Invoice
	q := selectQuery("invoices", invoiceColumns) + " WHERE school_id = ? AND id = ?" + suffix
	if err := getOne(ctx, exec, &inv, q, schoolID, id); err != nil {
		return billing.Invoice{}, trapNoRowsErr(err, billing.ErrInvoiceNotFound, "finding invoice")
	}
	return inv, nil
}

func (repo *billingRepository) GetInvoice(ctx context.Context, schoolID, id string) (billing.Invoice, error) {
	return repo.getInvoice(ctx, repo.db, schoolID, id, "")
}

func (repo *billingRepository) updateInvoice(ctx context.Context, exec core.DBExecutor, inv billing.Invoice) (billing.Invoice, error) {
	found, err := namedExec(ctx, exec, updateQuery("invoices", invoiceColumns, "id", "school_id"), inv)
	if err != nil {
		return billing.Invoice{}, trapPgErr(err, "updating invoice")
	}
	if !found {
		return billing.Invoice{}, billing.ErrInvoiceNotFound
	}
	return inv, nil
}

func (repo *billingRepository) UpdateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	return repo.updateInvoice(ctx, repo.db, inv)
}

func (repo *billingRepository) DeleteInvoice(ctx context.Context, schoolID, id string) error {
	if !validID(id) {
		return billing.ErrInvoiceNotFound
	}
	n, err := execute(ctx, repo.db, "DELETE FROM invoices WHERE school_id = ? AND id = ?", schoolID, id)
	if err != nil {
		return trapPgErr(err, "deleting invoice", billing.ErrHasPayments)
	}
	if n == 0 {
		return billing.ErrInvoiceNotFound
	}
	return nil
}

// RecordPayment locks the invoice row (SELECT ... FOR UPDATE) until the payment is saved.
func (repo *billingRepository) RecordPayment(ctx context.Context, schoolID, invoiceID string, pay billing.PayFunc) (p billing.Payment, inv billing.Invoice, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return billing.Payment{}, billing.Invoice{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if inv, err = repo.getInvoice(ctx, tx, schoolID, invoiceID, " FOR UPDATE"); err != nil {
		return billing.Payment{}, billing.Invoice{}, err
	}
	if p, err = pay(&inv); err != nil {
		return billing.Payment{}, billing.Invoice{}, err
	}
	if _, err = namedExec(ctx, tx, insertQuery("payments", paymentColumns), repo.boilPayment(p)); err != nil {
		return billing.Payment{}, billing.Invoice{}, trapPgErr(err, "inserting payment")
	}
	if inv, err = repo.updateInvoice(ctx, tx, inv); err != nil {
		return billing.Payment{}, billing.Invoice{}, err
	}
	if err = tx.Commit(); err != nil {
		return billing.Payment{}, billing.Invoice{}, errors.Wrap(err, "committing payment")
	}
	return p, inv, nil
}

func (repo *billingRepository) QueryPayments(ctx context.Context, schoolID string, filter *billing.PaymentFilter, ordering []core.DBOrdering) ([]billing.Payment, error) {
	var where whereClause
	where.add("school_id = ?", schoolID)
	if filter != nil {
		if filter.InvoiceID != "" {
			where.add("invoice_id = ?", filter.InvoiceID)
		}
		if filter.StudentID != "" {
			where.add("student_id = ?", filter.StudentID)
		}
		if filter.Method != "" {
			where.add("method = ?", filter.Method)
		}
		if !filter.PaidFrom.IsZero() {
			where.add("paid_at >= ?", filter.PaidFrom.UTC())
		}
		if !filter.PaidTo.IsZero() {
			where.add("paid_at <= ?", filter.PaidTo.UTC())
		}
	}

	var rows []paymentRow
	q := selectQuery("payments", paymentColumns) + where.String() + core.OrderByClause(ordering, "paid_at DESC, created_at DESC")
	if err := selectAll(ctx, repo.db, &rows, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying payments")
	}
	payments := make([]billing.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, repo.unboilPayment(row))
	}
	return payments, nil
}

func (repo *billingRepository) GetPayment(ctx context.Context, schoolID, id string) (billing.Payment, error) {
	if !validID(id) {
		return billing.Payment{}, billing.ErrPaymentNotFound
	}
	var row paymentRow
	q := selectQuery("payments", paymentColumns) + " WHERE school_id = ? AND id = ?"
	if err := getOne(ctx, repo.db, &row, q, schoolID, id); err != nil {
		return billing.Payment{}, trapNoRowsErr(err, billing.ErrPaymentNotFound, "finding payment")
	}
	return repo.unboilPayment(row), nil
}
