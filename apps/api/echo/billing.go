package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/billing"
)

type (
	billingApi struct {
		auth     *authenticator
		svc      *billing.Service
		validate *validator.Validate
	}

	PaymentResponse struct {
		Payment billing.Payment `json:"payment"`
		Invoice billing.Invoice `json:"invoice"`
	}
)

// registerBillingAPI serves invoices and payments to school admins.
func registerBillingAPI(g *echo.Group, admin echo.MiddlewareFunc, auth *authenticator, svc *billing.Service, validate *validator.Validate) {
	api := billingApi{auth: auth, svc: svc, validate: validate}

	ig := g.Group("/invoices", admin)
	ig.POST("", api.createInvoice)
	ig.GET("", api.queryInvoices)
	ig.GET("/:id", api.retrieveInvoice)
	ig.POST("/:id/cancel", api.cancelInvoice)
	ig.DELETE("/:id", api.destroyInvoice)
	ig.GET("/:id/payments", api.queryInvoicePayments)
	ig.POST("/:id/payments", api.recordPayment)

	pg := g.Group("/payments", admin)
	pg.GET("", api.queryPayments)
	pg.GET("/:id", api.retrievePayment)
}

func (api *billingApi) createInvoice(ctx echo.Context) error {
	var data billing.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.CreateInvoice(ctx.Request().Context(), tenantID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating invoice")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *billingApi) queryInvoices(ctx echo.Context) error {
	filter := &billing.InvoiceFilter{
		StudentID: queryString(ctx, "student_id"),
		Status:    queryUpper(ctx, "status"),
		Search:    queryString(ctx, "search"),
	}

	invoices, err := api.svc.QueryInvoices(ctx.Request().Context(), tenantID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	if invoices == nil {
		invoices = []billing.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *billingApi) retrieveInvoice(ctx echo.Context) error {
	inv, err := api.svc.GetInvoice(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) cancelInvoice(ctx echo.Context) error {
	inv, err := api.svc.CancelInvoice(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) destroyInvoice(ctx echo.Context) error {
	if err := api.svc.DeleteInvoice(ctx.Request().Context(), tenantID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting invoice")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *billingApi) recordPayment(ctx echo.Context) error {
	var data billing.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	p, inv, err := api.svc.RecordPayment(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, PaymentResponse{Payment: p, Invoice: inv})
}

func (api *billingApi) queryInvoicePayments(ctx echo.Context) error {
	inv, err := api.svc.GetInvoice(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding invoice")
	}
	return api.listPayments(ctx, &billing.PaymentFilter{InvoiceID: inv.ID})
}

func (api *billingApi) queryPayments(ctx echo.Context) error {
	from, err := queryTime(ctx, "paid_from")
	if err != nil {
		return err
	}
	to, err := queryTime(ctx, "paid_to")
	if err != nil {
		return err
	}
	return api.listPayments(ctx, &billing.PaymentFilter{
		InvoiceID: queryString(ctx, "invoice_id"),
		StudentID: queryString(ctx, "student_id"),
		Method:    queryUpper(ctx, "method"),
		PaidFrom:  from,
		PaidTo:    to,
	})
}

func (api *billingApi) listPayments(ctx echo.Context, filter *billing.PaymentFilter) error {
	payments, err := api.svc.QueryPayments(ctx.Request().Context(), tenantID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []billing.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *billingApi) retrievePayment(ctx echo.Context) error {
	p, err := api.svc.GetPayment(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding payment")
	}
	return ctx.JSON(http.StatusOK, p)
}
