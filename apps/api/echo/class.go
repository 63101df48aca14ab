package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/student"
)

type classApi struct {
	svc      *class.Service
	students *student.Service
	validate *validator.Validate
}

func registerClassAPI(
	g *echo.Group,
	admin, staff echo.MiddlewareFunc,
	svc *class.Service,
	students *student.Service,
	validate *validator.Validate,
) {
	api := classApi{svc: svc, students: students, validate: validate}

	cg := g.Group("/classes", staff)
	cg.POST("", api.create, admin)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/students", api.queryStudents)
	cg.PUT("/:id", api.update, admin)
	cg.PATCH("/:id/status", api.setStatus, admin)
	cg.DELETE("/:id", api.destroy, admin)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), tenantID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *classApi) query(ctx echo.Context) error {
	filter := &class.QueryFilter{
		Search:       queryString(ctx, "search"),
		Level:        queryUpper(ctx, "level"),
		AcademicYear: queryString(ctx, "academic_year"),
		Status:       queryUpper(ctx, "status"),
		TeacherID:    queryString(ctx, "teacher_id"),
	}

	classes, err := api.svc.Query(ctx.Request().Context(), tenantID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class")
	}
	return ctx.JSON(http.StatusOK, c)
}

// queryStudents lists the roster of a class.
func (api *classApi) queryStudents(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class")
	}

	filter := &student.QueryFilter{
		ClassID: c.ID,
		Search:  queryString(ctx, "search"),
		Status:  queryUpper(ctx, "status"),
	}
	students, err := api.students.Query(ctx.Request().Context(), c.SchoolID, filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) update(ctx echo.Context) error {
	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classApi) setStatus(ctx echo.Context) error {
	var data class.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.SetStatus(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting class status")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), tenantID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}
