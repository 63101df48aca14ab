package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/grade"
)

type gradeApi struct {
	svc      *grade.Service
	validate *validator.Validate
}

// registerGradeAPI serves grades and report cards to staff.
func registerGradeAPI(g *echo.Group, staff echo.MiddlewareFunc, svc *grade.Service, validate *validator.Validate) {
	api := gradeApi{svc: svc, validate: validate}

	gg := g.Group("/grades", staff)
	gg.POST("", api.create)
	gg.GET("", api.query)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update)
	gg.DELETE("/:id", api.destroy)

	rg := g.Group("/reports", staff)
	rg.GET("/students/:id", api.studentReport)
	rg.GET("/classes/:id", api.classReport)
}

func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	gr, err := api.svc.Create(ctx.Request().Context(), tenantID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, gr)
}

func (api *gradeApi) query(ctx echo.Context) error {
	term, err := queryInt(ctx, "term")
	if err != nil {
		return err
	}
	filter := &grade.QueryFilter{
		StudentID: queryString(ctx, "student_id"),
		ClassID:   queryString(ctx, "class_id"),
		SubjectID: queryString(ctx, "subject_id"),
		TeacherID: queryString(ctx, "teacher_id"),
		Term:      term,
		Kind:      queryUpper(ctx, "kind"),
	}

	grades, err := api.svc.Query(ctx.Request().Context(), tenantID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []grade.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	gr, err := api.svc.GetByID(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding grade")
	}
	return ctx.JSON(http.StatusOK, gr)
}

func (api *gradeApi) update(ctx echo.Context) error {
	var data grade.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	gr, err := api.svc.Update(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, gr)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), tenantID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// studentReport builds the report card of a student: `?term=1&class_id=` (defaults to their class).
func (api *gradeApi) studentReport(ctx echo.Context) error {
	term, err := queryInt(ctx, "term")
	if err != nil {
		return err
	}

	card, err := api.svc.StudentReport(
		ctx.Request().Context(), tenantID(ctx), ctx.Param("id"), term, queryString(ctx, "class_id"),
	)
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, card)
}

func (api *gradeApi) classReport(ctx echo.Context) error {
	term, err := queryInt(ctx, "term")
	if err != nil {
		return err
	}

	report, err := api.svc.ClassReport(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"), term)
	if err != nil {
		return errors.Wrap(err, "building class report")
	}
	return ctx.JSON(http.StatusOK, report)
}
