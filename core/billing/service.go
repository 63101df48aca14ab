package billing

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

var (
	// errors
	ErrInvoiceNotFound = core.NewNotFoundError("invoice not found")
	ErrPaymentNotFound = core.NewNotFoundError("payment not found")
	ErrNumberExists    = core.NewConflictError("an invoice with this number already exists", "number")
	ErrReferenceExists = core.NewConflictError("a payment with this reference already exists", "reference")
	ErrHasPayments     = core.NewConflictError("invoice has payments")
	ErrInvoiceClosed   = core.NewValidationError(errors.New("invoice is closed"),
		core.FieldError{Field: "invoice_id", Error: "invoice is already paid or cancelled"})

	errStudentNotFound = core.NewFieldError("student_id", "student not found")
)

type (
	// PayFunc validates a payment against the locked invoice and updates it in place.
	PayFunc func(inv *Invoice) (Payment, error)

	Repository interface {
		// CreateInvoice fails with ErrNumberExists when the number is taken in the School.
		CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		QueryInvoices(ctx context.Context, schoolID string, filter *InvoiceFilter, ordering []core.DBOrdering) ([]Invoice, error)
		GetInvoice(ctx context.Context, schoolID, id string) (Invoice, error)
		UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		// DeleteInvoice fails with ErrHasPayments when payments reference the invoice.
		DeleteInvoice(ctx context.Context, schoolID, id string) error

		// RecordPayment locks the invoice, runs pay on it then saves the payment and the invoice
		// in a single transaction. It fails with ErrReferenceExists on duplicate references.
		RecordPayment(ctx context.Context, schoolID, invoiceID string, pay PayFunc) (Payment, Invoice, error)
		QueryPayments(ctx context.Context, schoolID string, filter *PaymentFilter, ordering []core.DBOrdering) ([]Payment, error)
		GetPayment(ctx context.Context, schoolID, id string) (Payment, error)
	}

	// StudentFinder is satisfied by *student.Service.
	StudentFinder interface {
		GetByID(ctx context.Context, schoolID, id string) (student.Student, error)
	}

	Service struct {
		repo            Repository
		students        StudentFinder
		mailSvc         core.EmailService
		logger          core.Logger
		defaultCurrency string
		appName         string
	}
)

func NewService(repo Repository, students StudentFinder, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:            repo,
		students:        students,
		mailSvc:         mailSvc,
		logger:          logger,
		defaultCurrency: conf.DefaultCurrency,
		appName:         conf.AppName,
	}
}

func (svc *Service) CreateInvoice(ctx context.Context, schoolID string, ni NewInvoice) (Invoice, error) {
	if _, err := svc.students.GetByID(ctx, schoolID, ni.StudentID); err != nil {
		if core.IsNotFound(err) {
			return Invoice{}, errStudentNotFound
		}
		return Invoice{}, errors.Wrap(err, "finding student")
	}

	now := core.Now()
	id := uuid.New().String()
	inv := Invoice{
		ID:          id,
		SchoolID:    schoolID,
		Number:      fmt.Sprintf("INV-%s-%s", now.Format("20060102"), strings.ToUpper(id[:8])),
		StudentID:   ni.StudentID,
		Description: ni.Description,
		Amount:      ni.Amount,
		Currency:    ni.Currency,
		DueDate:     ni.DueDate,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if inv.Currency == "" {
		inv.Currency = svc.defaultCurrency
	}

	inv, err := svc.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	return inv.withDerivedStatus(core.Today()), nil
}

// QueryInvoices lists invoices; an OVERDUE status filter matches unpaid invoices past their due date.
func (svc *Service) QueryInvoices(ctx context.Context, schoolID string, filter *InvoiceFilter, ordering []core.DBOrdering) ([]Invoice, error) {
	if filter == nil {
		filter = new(InvoiceFilter)
	}
	filter.Clean()
	filter.Statuses = nil
	switch filter.Status {
	case "":
	case StatusOverdue:
		filter.Statuses = []string{StatusPending, StatusPartial}
	default:
		filter.Statuses = []string{filter.Status}
	}

	invoices, err := svc.repo.QueryInvoices(ctx, schoolID, filter, InvoiceOrderingFields.Clean(ordering))
	if err != nil {
		return nil, err
	}

	today := core.Today()
	filtered := invoices[:0]
	for _, inv := range invoices {
		inv = inv.withDerivedStatus(today)
		if filter.Status == "" || inv.Status == filter.Status {
			filtered = append(filtered, inv)
		}
	}
	return filtered, nil
}

func (svc *Service) GetInvoice(ctx context.Context, schoolID, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoice(ctx, schoolID, id)
	if err != nil {
		return Invoice{}, err
	}
	return inv.withDerivedStatus(core.Today()), nil
}

// CancelInvoice cancels an invoice that received no payment.
func (svc *Service) CancelInvoice(ctx context.Context, schoolID, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoice(ctx, schoolID, id)
	if err != nil {
		return Invoice{}, errors.Wrap(err, "finding invoice")
	}
	if inv.AmountPaid > 0 {
		return Invoice{}, ErrHasPayments
	}
	inv.Status = StatusCancelled
	inv.UpdatedAt = core.Now()
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *Service) DeleteInvoice(ctx context.Context, schoolID, id string) error {
	inv, err := svc.repo.GetInvoice(ctx, schoolID, id)
	if err != nil {
		return errors.Wrap(err, "finding invoice")
	}
	if inv.AmountPaid > 0 {
		return ErrHasPayments
	}
	return svc.repo.DeleteInvoice(ctx, schoolID, id)
}

// RecordPayment pays (part of) an invoice and mails a receipt to the parent of the student.
// Once the payment is saved, a receipt failure is only logged.
func (svc *Service) RecordPayment(ctx context.Context, schoolID, invoiceID, recordedBy string, np NewPayment) (Payment, Invoice, error) {
	now := core.Now()
	pay := func(inv *Invoice) (Payment, error) {
		if inv.Status == StatusCancelled || inv.Status == StatusPaid {
			return Payment{}, ErrInvoiceClosed
		}
		if balance := inv.Balance(); np.Amount > balance {
			return Payment{}, core.NewFieldError("amount",
				fmt.Sprintf("amount exceeds the remaining balance of %s %s", FormatAmount(balance), inv.Currency))
		}

		inv.AmountPaid += np.Amount
		inv.settle()
		inv.UpdatedAt = now

		p := Payment{
			ID:         uuid.New().String(),
			SchoolID:   schoolID,
			InvoiceID:  inv.ID,
			StudentID:  inv.StudentID,
			Amount:     np.Amount,
			Currency:   inv.Currency,
			Method:     np.Method,
			Reference:  np.Reference,
			PaidAt:     np.PaidAt.UTC(),
			RecordedBy: recordedBy,
			CreatedAt:  now,
		}
		if np.PaidAt.IsZero() {
			p.PaidAt = now
		}
		return p, nil
	}

	p, inv, err := svc.repo.RecordPayment(ctx, schoolID, invoiceID, pay)
	if err != nil {
		return Payment{}, Invoice{}, err
	}

	if err = svc.sendReceipt(ctx, p, inv); err != nil {
		svc.logger.Error(fmt.Sprintf("billing: receipt of payment %s: %v", p.ID, err), err,
			map[string]interface{}{"payment_id": p.ID, "invoice_id": inv.ID})
	}
	return p, inv.withDerivedStatus(core.Today()), nil
}

func (svc *Service) sendReceipt(ctx context.Context, p Payment, inv Invoice) error {
	stud, err := svc.students.GetByID(ctx, inv.SchoolID, inv.StudentID)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	if stud.ParentEmail == "" {
		return nil
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: stud.ParentName, Address: stud.ParentEmail}},
		Subject:      fmt.Sprintf("%s: payment receipt for invoice %s", svc.appName, inv.Number),
		TemplateName: "payment_receipt",
		TemplateData: map[string]interface{}{
			"ParentName":    stud.ParentName,
			"StudentName":   stud.FullName(),
			"Amount":        FormatAmount(p.Amount),
			"Currency":      p.Currency,
			"InvoiceNumber": inv.Number,
			"Description":   inv.Description,
			"Method":        p.Method,
			"Balance":       FormatAmount(inv.Balance()),
		},
	})
	return nil
}

func (svc *Service) QueryPayments(ctx context.Context, schoolID string, filter *PaymentFilter, ordering []core.DBOrdering) ([]Payment, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryPayments(ctx, schoolID, filter, PaymentOrderingFields.Clean(ordering))
}

func (svc *Service) GetPayment(ctx context.Context, schoolID, id string) (Payment, error) {
	return svc.repo.GetPayment(ctx, schoolID, id)
}
