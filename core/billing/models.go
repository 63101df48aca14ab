package billing

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Invoice statuses. StatusOverdue is never stored: it is derived on read from the due date.
const (
	StatusPending   = "PENDING"
	StatusPartial   = "PARTIAL"
	StatusPaid      = "PAID"
	StatusCancelled = "CANCELLED"
	StatusOverdue   = "OVERDUE"
)

// Payment methods
const (
	MethodCash         = "CASH"
	MethodMobileMoney  = "MOBILE_MONEY"
	MethodBankTransfer = "BANK_TRANSFER"
	MethodCard         = "CARD"
)

var (
	Statuses = []string{StatusPending, StatusPartial, StatusPaid, StatusCancelled, StatusOverdue}
	Methods  = []string{MethodCash, MethodMobileMoney, MethodBankTransfer, MethodCard}

	InvoiceOrderingFields = core.OrderingFields{
		"number":     "number",
		"amount":     "amount",
		"due_date":   "due_date",
		"status":     "status",
		"created_at": "created_at",
	}

	PaymentOrderingFields = core.OrderingFields{
		"amount":     "amount",
		"method":     "method",
		"paid_at":    "paid_at",
		"created_at": "created_at",
	}
)

// FormatAmount renders an amount in minor units: 12550 -> "125.50".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// Invoice amounts are in minor units (cents).
type Invoice struct {
	ID          string    `json:"id" db:"id"`
	SchoolID    string    `json:"school_id" db:"school_id"`
	Number      string    `json:"number" db:"number"`
	StudentID   string    `json:"student_id" db:"student_id"`
	Description string    `json:"description" db:"description"`
	Amount      int64     `json:"amount" db:"amount"`
	AmountPaid  int64     `json:"amount_paid" db:"amount_paid"`
	Currency    string    `json:"currency" db:"currency"`
	DueDate     core.Date `json:"due_date" db:"due_date"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (inv Invoice) Balance() int64 {
	return inv.Amount - inv.AmountPaid
}

// IsOverdue reports whether inv is still owed after its due date.
func (inv Invoice) IsOverdue(today core.Date) bool {
	return (inv.Status == StatusPending || inv.Status == StatusPartial) && inv.DueDate.Before(today)
}

// withDerivedStatus returns inv as shown to clients.
func (inv Invoice) withDerivedStatus(today core.Date) Invoice {
	if inv.IsOverdue(today) {
		inv.Status = StatusOverdue
	}
	return inv
}

// settle sets the status after the amount paid changed.
func (inv *Invoice) settle() {
	switch {
	case inv.AmountPaid >= inv.Amount:
		inv.Status = StatusPaid
	case inv.AmountPaid > 0:
		inv.Status = StatusPartial
	default:
		inv.Status = StatusPending
	}
}

type NewInvoice struct {
	StudentID   string    `json:"student_id" validate:"required,uuid"`
	Description string    `json:"description" validate:"required,max=200"`
	Amount      int64     `json:"amount" validate:"required,min=1"`
	Currency    string    `json:"currency" validate:"omitempty,currency"` // defaults to the configured currency
	DueDate     core.Date `json:"due_date" validate:"required"`
}

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.StudentID = core.CleanString(ni.StudentID)
	ni.Description = core.CleanString(ni.Description)
	ni.Currency = core.CleanString(ni.Currency)
	return validate.Struct(ni)
}

type InvoiceFilter struct {
	StudentID string
	Status    string   // may be OVERDUE
	Statuses  []string // stored statuses, set from Status
	Search    string   // number or description
}

func (qf *InvoiceFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Status = core.CleanString(qf.Status)
	qf.Search = core.CleanString(qf.Search)
}

type Payment struct {
	ID         string    `json:"id"`
	SchoolID   string    `json:"school_id"`
	InvoiceID  string    `json:"invoice_id"`
	StudentID  string    `json:"student_id"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Method     string    `json:"method"`
	Reference  string    `json:"reference,omitempty"`
	PaidAt     time.Time `json:"paid_at"`
	RecordedBy string    `json:"recorded_by,omitempty"` // User ID
	CreatedAt  time.Time `json:"created_at"`
}

type NewPayment struct {
	Amount    int64     `json:"amount" validate:"required,min=1"`
	Method    string    `json:"method" validate:"required,oneof=CASH MOBILE_MONEY BANK_TRANSFER CARD"`
	Reference string    `json:"reference" validate:"omitempty,max=100"`
	PaidAt    time.Time `json:"paid_at"` // defaults to now
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Method = core.CleanString(np.Method)
	np.Reference = core.CleanString(np.Reference)
	return validate.Struct(np)
}

type PaymentFilter struct {
	InvoiceID string
	StudentID string
	Method    string
	PaidFrom  time.Time
	PaidTo    time.Time
}

func (qf *PaymentFilter) Clean() {
	qf.InvoiceID = core.CleanString(qf.InvoiceID)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Method = core.CleanString(qf.Method)
}
