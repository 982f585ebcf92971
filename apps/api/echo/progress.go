package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/access"
	"github.com/mwalimu/elimika/core/course"
	"github.com/mwalimu/elimika/core/progress"
)

type progressApi struct {
	svc       progress.Service
	accessSvc access.Service
	courseSvc course.Service
}

func registerProgressAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc progress.Service,
	accessSvc access.Service,
	courseSvc course.Service,
) {
	api := progressApi{svc: svc, accessSvc: accessSvc, courseSvc: courseSvc}

	g.PUT("/modules/:id/progress", api.setCompletion, jwt)
	g.GET("/courses/:id/progress", api.courseCompletion, jwt)
}

type SetProgressRequest struct {
	Completed bool `json:"completed"`
}

// setCompletion marks the module complete (or not) for the calling user.
// Re-marking a completed module is a no-op upsert.
func (api *progressApi) setCompletion(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data SetProgressRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetProgressRequest")
	}

	rctx := ctx.Request().Context()
	mod, err := api.courseSvc.GetModule(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	// access is checked at the boundary; the tracker trusts its caller
	if !claims.IsAdmin {
		acc, err := api.accessSvc.HasAccess(rctx, claims.Subject, mod.CourseID)
		if err != nil {
			return errors.Wrap(err, "checking access")
		}
		if !acc.Active {
			return core.NewForbiddenError(errors.New("active course access required"))
		}
	}

	prog, err := api.svc.SetModuleCompletion(rctx, claims.Subject, mod.ID, data.Completed)
	if err != nil {
		return errors.Wrap(err, "setting module completion")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *progressApi) courseCompletion(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	completion, err := api.svc.CourseCompletion(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course completion")
	}
	return ctx.JSON(http.StatusOK, completion)
}
