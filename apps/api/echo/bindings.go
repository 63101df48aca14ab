package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-field`; each service keeps the whitelisted fields only.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func orderings(ctx echo.Context) []core.DBOrdering {
	ord := new(Ordering)
	ord.Bind(ctx)
	return ord.Orderings
}

func queryString(ctx echo.Context, name string, lower ...bool) string {
	return core.CleanString(ctx.QueryParam(name), lower...)
}

func queryUpper(ctx echo.Context, name string) string {
	return strings.ToUpper(queryString(ctx, name))
}

func queryInt(ctx echo.Context, name string) (int, error) {
	val := queryString(ctx, name)
	if val == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewFieldError(name, name+" must be a number")
	}
	return i, nil
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := queryString(ctx, name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewFieldError(name, name+" must be true or false")
	}
	return &b, nil
}

// queryTime accepts RFC 3339 timestamps and YYYY-MM-DD dates.
func queryTime(ctx echo.Context, name string) (time.Time, error) {
	val := queryString(ctx, name)
	if val == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, val); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, core.NewFieldError(name, name+" must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}

func queryStrings(ctx echo.Context, name string) []string {
	var values []string
	for _, v := range ctx.QueryParams()[name] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.ToUpper(core.CleanString(s)); s != "" {
				values = append(values, s)
			}
		}
	}
	return values
}

type SuccessResponse struct {
	Success string `json:"success"`
}
