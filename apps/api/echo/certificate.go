package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/assessment"
	"github.com/mwalimu/elimika/core/certificate"
)

type certificateApi struct {
	svc           certificate.Service
	assessmentSvc assessment.Service
}

func registerCertificateAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc certificate.Service, assessmentSvc assessment.Service) {
	api := certificateApi{svc: svc, assessmentSvc: assessmentSvc}

	g.POST("/courses/:id/certificate", api.issue, jwt)
	g.GET("/certificates", api.queryMine, jwt)
	g.DELETE("/certificates/:id", api.revoke, jwt, adminMiddleware())
	g.POST("/certificates/:id/approve", api.approvePending, jwt, adminMiddleware())
}

// registerVerifyAPI exposes the public, auth-free verification surface.
func registerVerifyAPI(app *echo.Echo, svc certificate.Service) {
	api := certificateApi{svc: svc}
	app.GET("/verify/:code", api.verify)
}

// issue certifies the calling user on the course, provided every
// required or final-exam test is passed. Idempotent on success.
func (api *certificateApi) issue(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rctx := ctx.Request().Context()
	passed, err := api.assessmentSvc.CoursePassed(rctx, claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "checking course pass state")
	}
	if !passed {
		return core.NewPreconditionError(errors.New("all required tests must be passed first"))
	}

	cert, err := api.svc.Issue(rctx, claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "issuing certificate")
	}
	return ctx.JSON(http.StatusCreated, cert)
}

func (api *certificateApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	certs, err := api.svc.QueryByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying certificates")
	}
	if certs == nil {
		certs = []certificate.Certificate{}
	}
	return ctx.JSON(http.StatusOK, certs)
}

// revoke invalidates the certificate; the row is kept so public
// verification reports it as revoked.
func (api *certificateApi) revoke(ctx echo.Context) error {
	cert, err := api.svc.Revoke(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificateApi) approvePending(ctx echo.Context) error {
	cert, err := api.svc.ApprovePending(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificateApi) verify(ctx echo.Context) error {
	verification, err := api.svc.Verify(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, verification)
}
