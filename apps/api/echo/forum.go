package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core/forum"
)

type forumApi struct {
	svc      *forum.Service
	validate *validator.Validate
}

func registerForumAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := forumApi{
		svc:      deps.ForumSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses/:id/threads", jwt)
	cg.GET("", api.listForCourse)
	cg.POST("", api.createThread)

	tg := g.Group("/threads", jwt)
	tg.GET("", api.listAll)
	tg.GET("/:id", api.retrieve)
	tg.POST("/:id/replies", api.createReply)

	g.PUT("/replies/:id/accept", api.acceptAnswer, jwt)
}

func (api *forumApi) listForCourse(ctx echo.Context) error {
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	page, err := api.svc.ListThreads(ctx.Request().Context(), courseID, bindPage(ctx))
	if err != nil {
		return errors.Wrap(err, "listing course threads")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *forumApi) listAll(ctx echo.Context) error {
	page, err := api.svc.ListAllThreads(ctx.Request().Context(), bindPage(ctx))
	if err != nil {
		return errors.Wrap(err, "listing threads")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *forumApi) createThread(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	var data forum.NewThread
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewThread")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	thread, err := api.svc.CreateThread(ctx.Request().Context(), courseID, uid, data)
	if err != nil {
		return errors.Wrap(err, "creating thread")
	}
	return ctx.JSON(http.StatusCreated, thread)
}

func (api *forumApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	detail, err := api.svc.GetThread(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting thread")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *forumApi) createReply(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	threadID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	var data forum.NewReply
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReply")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	reply, err := api.svc.CreateReply(ctx.Request().Context(), threadID, uid, data)
	if err != nil {
		return errors.Wrap(err, "creating reply")
	}
	return ctx.JSON(http.StatusCreated, ReplyResponse{Message: "Reply added successfully.", Reply: reply})
}

func (api *forumApi) acceptAnswer(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	replyID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := api.svc.ToggleAcceptedAnswer(ctx.Request().Context(), replyID, uid)
	if err != nil {
		return errors.Wrap(err, "toggling accepted answer")
	}

	msg := "Reply unmarked as accepted answer."
	if res.Reply.IsAcceptedAnswer {
		msg = "Reply marked as accepted answer."
	}
	return ctx.JSON(http.StatusOK, AcceptResponse{Message: msg, AcceptResult: res})
}

type (
	ReplyResponse struct {
		Message string      `json:"message"`
		Reply   forum.Reply `json:"reply"`
	}

	AcceptResponse struct {
		Message string `json:"message"`
		forum.AcceptResult
	}
)
