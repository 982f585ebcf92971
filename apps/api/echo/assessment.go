package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/access"
	"github.com/mwalimu/elimika/core/assessment"
)

type assessmentApi struct {
	svc       assessment.Service
	accessSvc access.Service
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc assessment.Service, accessSvc access.Service) {
	api := assessmentApi{svc: svc, accessSvc: accessSvc}

	g.POST("/courses/:id/tests", api.createTest, jwt, adminMiddleware())
	g.GET("/courses/:id/tests", api.queryCourseTests, jwt)

	tg := g.Group("/tests/:id", jwt)
	tg.GET("", api.retrieveTest, teacherOrAdminMiddleware())
	tg.GET("/questions", api.listQuestions)
	tg.GET("/attempts", api.attemptStatus)
	tg.POST("/submissions", api.submit)

	g.PUT("/submissions/:id/grade", api.finalizeGrade, jwt, adminMiddleware())
}

// accessContext assembles the engine's caller standing from the JWT
// claims and the Access Ledger.
func (api *assessmentApi) accessContext(ctx echo.Context, courseID string) (assessment.AccessContext, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return assessment.AccessContext{}, errors.Wrap(err, "getting context claims")
	}

	actx := assessment.AccessContext{UserID: claims.Subject, IsAdmin: claims.IsAdmin}
	if !actx.IsAdmin {
		acc, err := api.accessSvc.HasAccess(ctx.Request().Context(), claims.Subject, courseID)
		if err != nil {
			return assessment.AccessContext{}, errors.Wrap(err, "checking access")
		}
		actx.Access = acc
	}
	return actx, nil
}

func (api *assessmentApi) createTest(ctx echo.Context) error {
	var data assessment.NewTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.CreateTest(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *assessmentApi) queryCourseTests(ctx echo.Context) error {
	tests, err := api.svc.QueryCourseTests(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course tests")
	}
	if tests == nil {
		tests = []assessment.Test{}
	}
	return ctx.JSON(http.StatusOK, tests)
}

func (api *assessmentApi) retrieveTest(ctx echo.Context) error {
	t, err := api.svc.GetTest(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *assessmentApi) listQuestions(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	t, err := api.svc.GetTest(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	actx, err := api.accessContext(ctx, t.CourseID)
	if err != nil {
		return err
	}

	questions, err := api.svc.ListQuestions(rctx, actx, t.ID)
	if err != nil {
		return err
	}
	if questions == nil {
		questions = []assessment.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *assessmentApi) attemptStatus(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	status, err := api.svc.AttemptStatus(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, status)
}

type SubmitRequest struct {
	Answers []assessment.AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

func (sr *SubmitRequest) Validate() error { return core.Validate.Struct(sr) }

func (api *assessmentApi) submit(ctx echo.Context) error {
	var data SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	t, err := api.svc.GetTest(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	actx, err := api.accessContext(ctx, t.CourseID)
	if err != nil {
		return err
	}

	sub, err := api.svc.Submit(rctx, actx, t.ID, data.Answers)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

type FinalizeGradeRequest struct {
	Score int `json:"score" validate:"gte=0,lte=100"`
}

func (fr *FinalizeGradeRequest) Validate() error { return core.Validate.Struct(fr) }

func (api *assessmentApi) finalizeGrade(ctx echo.Context) error {
	var data FinalizeGradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FinalizeGradeRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.svc.FinalizeManualGrade(ctx.Request().Context(), ctx.Param("id"), data.Score)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}
