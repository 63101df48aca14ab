package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/user"
)

const contextSchoolKey = "school"

// tenantMiddleware resolves the School of the request from the Host subdomain, or the
// tenant header when the Host carries none. Without any, requests fail when required.
func (s *Server) tenantMiddleware(required bool) echo.MiddlewareFunc {
	conf := s.deps.Conf.Server
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			sub := school.SubdomainFromHost(req.Host, conf.BaseDomain)
			if sub == "" {
				sub = core.CleanString(req.Header.Get(conf.TenantHeader), true /* lower */)
			}
			if sub == "" {
				if required {
					return errSchoolNotFound
				}
				return next(ctx)
			}

			sch, err := s.deps.SchoolSvc.Resolve(req.Context(), sub)
			if err != nil {
				if core.IsNotFound(err) {
					return errSchoolNotFound
				}
				return errors.Wrap(err, "resolving school")
			}
			if !sch.IsActive() {
				return errSchoolInactive
			}
			ctx.Set(contextSchoolKey, sch)
			return next(ctx)
		}
	}
}

// membershipMiddleware rejects tokens issued for another School than the tenant.
func membershipMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.Role == user.RoleSuperAdmin {
			return next(ctx)
		}
		if sch, ok := contextSchool(ctx); ok && claims.SchoolID == sch.ID {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// requireRoles lets through the roles whitelisted, and super admins.
func requireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role == user.RoleSuperAdmin || core.StringInSlice(claims.Role, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func contextSchool(ctx echo.Context) (school.School, bool) {
	sch, ok := ctx.Get(contextSchoolKey).(school.School)
	return sch, ok
}

// tenantID is the id of the School resolved by tenantMiddleware.
func tenantID(ctx echo.Context) string {
	sch, _ := contextSchool(ctx)
	return sch.ID
}
