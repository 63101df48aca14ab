package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/billing"
)

type billingRepository struct {
	db *DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *DB) billing.Repository {
	return &billingRepository{db: db}
}

func invoiceColumn(inv billing.Invoice, col string) interface{} {
	switch col {
	case "number":
		return inv.Number
	case "amount":
		return inv.Amount
	case "due_date":
		return inv.DueDate
	case "status":
		return inv.Status
	case "created_at":
		return inv.CreatedAt
	}
	return nil
}

func paymentColumn(p billing.Payment, col string) interface{} {
	switch col {
	case "amount":
		return p.Amount
	case "method":
		return p.Method
	case "paid_at":
		return p.PaidAt
	case "created_at":
		return p.CreatedAt
	}
	return nil
}

func (repo *billingRepository) CreateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.invoices {
		if other.SchoolID == inv.SchoolID && other.Number == inv.Number {
			return billing.Invoice{}, billing.ErrNumberExists
		}
	}
	repo.db.invoices[inv.ID] = inv
	return inv, nil
}

func (repo *billingRepository) QueryInvoices(ctx context.Context, schoolID string, qf *billing.InvoiceFilter, ordering []core.DBOrdering) ([]billing.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	invoices := filter(repo.db.invoices, func(inv billing.Invoice) bool {
		if inv.SchoolID != schoolID {
			return false
		}
		if qf == nil {
			return true
		}
		if qf.StudentID != "" && inv.StudentID != qf.StudentID {
			return false
		}
		if len(qf.Statuses) > 0 && !core.StringInSlice(inv.Status, qf.Statuses) {
			return false
		}
		return qf.Search == "" || matchAny(qf.Search, inv.Number, inv.Description)
	})
	sortRecords(invoices, ordering, invoiceColumn, desc("created_at"), desc("number"))
	return invoices, nil
}

func (repo *billingRepository) GetInvoice(ctx context.Context, schoolID, id string) (billing.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inv, ok := repo.db.invoices[id]; ok && inv.SchoolID == schoolID {
		return inv, nil
	}
	return billing.Invoice{}, billing.ErrInvoiceNotFound
}

func (repo *billingRepository) UpdateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.invoices[inv.ID]; !ok || orig.SchoolID != inv.SchoolID {
		return billing.Invoice{}, billing.ErrInvoiceNotFound
	}
	repo.db.invoices[inv.ID] = inv
	return inv, nil
}

func (repo *billingRepository) DeleteInvoice(ctx context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if inv, ok := repo.db.invoices[id]; !ok || inv.SchoolID != schoolID {
		return billing.ErrInvoiceNotFound
	}
	for _, p := range repo.db.payments {
		if p.InvoiceID == id {
			return billing.ErrHasPayments
		}
	}
	delete(repo.db.invoices, id)
	return nil
}

// RecordPayment holds the write lock for the whole operation.
func (repo *billingRepository) RecordPayment(ctx context.Context, schoolID, invoiceID string, pay billing.PayFunc) (billing.Payment, billing.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inv, ok := repo.db.invoices[invoiceID]
	if !ok || inv.SchoolID != schoolID {
		return billing.Payment{}, billing.Invoice{}, billing.ErrInvoiceNotFound
	}
	p, err := pay(&inv)
	if err != nil {
		return billing.Payment{}, billing.Invoice{}, err
	}
	if p.Reference != "" {
		for _, other := range repo.db.payments {
			if other.SchoolID == p.SchoolID && other.Reference == p.Reference {
				return billing.Payment{}, billing.Invoice{}, billing.ErrReferenceExists
			}
		}
	}

	repo.db.payments[p.ID] = p
	repo.db.invoices[inv.ID] = inv
	return p, inv, nil
}

func (repo *billingRepository) QueryPayments(ctx context.Context, schoolID string, qf *billing.PaymentFilter, ordering []core.DBOrdering) ([]billing.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := filter(repo.db.payments, func(p billing.Payment) bool {
		if p.SchoolID != schoolID {
			return false
		}
		if qf == nil {
			return true
		}
		switch {
		case qf.InvoiceID != "" && p.InvoiceID != qf.InvoiceID,
			qf.StudentID != "" && p.StudentID != qf.StudentID,
			qf.Method != "" && p.Method != qf.Method,
			!qf.PaidFrom.IsZero() && p.PaidAt.Before(qf.PaidFrom),
			!qf.PaidTo.IsZero() && p.PaidAt.After(qf.PaidTo):
			return false
		}
		return true
	})
	sortRecords(payments, ordering, paymentColumn, desc("paid_at"), desc("created_at"))
	return payments, nil
}

func (repo *billingRepository) GetPayment(ctx context.Context, schoolID, id string) (billing.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.payments[id]; ok && p.SchoolID == schoolID {
		return p, nil
	}
	return billing.Payment{}, billing.ErrPaymentNotFound
}
