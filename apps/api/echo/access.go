package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/access"
)

type accessApi struct {
	svc access.Service
}

func registerAccessAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc access.Service) {
	api := accessApi{svc: svc}

	cg := g.Group("/courses/:id/access", jwt)
	cg.PUT("", api.grant, adminMiddleware())
	cg.GET("", api.check)
}

type GrantAccessRequest struct {
	UserID      string     `json:"user_id" validate:"required"`
	AccessUntil *time.Time `json:"access_until"`
}

func (gr *GrantAccessRequest) Validate() error {
	gr.UserID = core.CleanString(gr.UserID)
	return core.Validate.Struct(gr)
}

// grant upserts a course access grant; re-granting overwrites the expiry.
func (api *accessApi) grant(ctx echo.Context) error {
	var data GrantAccessRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GrantAccessRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	grant, err := api.svc.GrantAccess(ctx.Request().Context(), data.UserID, ctx.Param("id"), data.AccessUntil)
	if err != nil {
		return errors.Wrap(err, "granting access")
	}
	return ctx.JSON(http.StatusOK, grant)
}

// check reports the calling user's standing on the course.
func (api *accessApi) check(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	acc, err := api.svc.HasAccess(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "checking access")
	}
	return ctx.JSON(http.StatusOK, acc)
}
