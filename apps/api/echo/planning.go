package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/planning"
)

type planningApi struct {
	svc      *planning.Service
	validate *validator.Validate
}

func registerPlanningAPI(g *echo.Group, admin, staff echo.MiddlewareFunc, svc *planning.Service, validate *validator.Validate) {
	api := planningApi{svc: svc, validate: validate}

	rg := g.Group("/rooms", staff)
	rg.POST("", api.createRoom, admin)
	rg.GET("", api.queryRooms)
	rg.GET("/:id", api.retrieveRoom)
	rg.PUT("/:id", api.updateRoom, admin)
	rg.PATCH("/:id/status", api.setRoomStatus, admin)
	rg.DELETE("/:id", api.destroyRoom, admin)

	sg := g.Group("/schedule", staff)
	sg.POST("", api.createEntry, admin)
	sg.GET("", api.querySchedule)
	sg.GET("/:id", api.retrieveEntry)
	sg.PUT("/:id", api.updateEntry, admin)
	sg.DELETE("/:id", api.destroyEntry, admin)
}

// Rooms

func (api *planningApi) createRoom(ctx echo.Context) error {
	var data planning.NewRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.CreateRoom(ctx.Request().Context(), tenantID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating room")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *planningApi) queryRooms(ctx echo.Context) error {
	minCap, err := queryInt(ctx, "min_capacity")
	if err != nil {
		return err
	}
	filter := &planning.RoomFilter{
		Search:      queryString(ctx, "search"),
		Kind:        queryUpper(ctx, "kind"),
		Status:      queryUpper(ctx, "status"),
		MinCapacity: minCap,
	}

	rooms, err := api.svc.QueryRooms(ctx.Request().Context(), tenantID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying rooms")
	}
	if rooms == nil {
		rooms = []planning.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *planningApi) retrieveRoom(ctx echo.Context) error {
	r, err := api.svc.GetRoom(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding room")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *planningApi) updateRoom(ctx echo.Context) error {
	var data planning.UpdateRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRoom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.UpdateRoom(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating room")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *planningApi) setRoomStatus(ctx echo.Context) error {
	var data planning.UpdateRoomStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRoomStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.SetRoomStatus(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting room status")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *planningApi) destroyRoom(ctx echo.Context) error {
	if err := api.svc.DeleteRoom(ctx.Request().Context(), tenantID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting room")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Schedule

func (api *planningApi) createEntry(ctx echo.Context) error {
	var data planning.NewScheduleEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScheduleEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.CreateScheduleEntry(ctx.Request().Context(), tenantID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule entry")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *planningApi) querySchedule(ctx echo.Context) error {
	day, err := queryInt(ctx, "day_of_week")
	if err != nil {
		return err
	}
	filter := &planning.ScheduleFilter{
		ClassID:      queryString(ctx, "class_id"),
		TeacherID:    queryString(ctx, "teacher_id"),
		RoomID:       queryString(ctx, "room_id"),
		DayOfWeek:    day,
		AcademicYear: queryString(ctx, "academic_year"),
	}

	entries, err := api.svc.QuerySchedule(ctx.Request().Context(), tenantID(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying schedule")
	}
	if entries == nil {
		entries = []planning.ScheduleEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *planningApi) retrieveEntry(ctx echo.Context) error {
	e, err := api.svc.GetScheduleEntry(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule entry")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *planningApi) updateEntry(ctx echo.Context) error {
	var data planning.UpdateScheduleEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateScheduleEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.UpdateScheduleEntry(ctx.Request().Context(), tenantID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating schedule entry")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *planningApi) destroyEntry(ctx echo.Context) error {
	if err := api.svc.DeleteScheduleEntry(ctx.Request().Context(), tenantID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting schedule entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}
