package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core/quiz"
)

type quizApi struct {
	svc      *quiz.Service
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := quizApi{
		svc:      deps.QuizSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses/:id/quizzes", jwt)
	cg.GET("", api.listForCourse)
	cg.POST("", api.create)

	qg := g.Group("/quizzes", jwt)
	qg.GET("/:id", api.retrieve)
	qg.POST("/:id/questions", api.addQuestion)
	qg.POST("/:id/submit", api.submit)

	g.GET("/submissions/:id", api.submission, jwt)
}

func (api *quizApi) listForCourse(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	quizzes, err := api.svc.ListForCourse(ctx.Request().Context(), courseID, uid)
	if err != nil {
		return errors.Wrap(err, "listing quizzes")
	}
	if quizzes == nil {
		quizzes = []quiz.Summary{}
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *quizApi) create(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	var data quiz.NewQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	qz, err := api.svc.Create(ctx.Request().Context(), courseID, uid, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, QuizResponse{Message: "Quiz created successfully.", Quiz: qz})
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	detail, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *quizApi) addQuestion(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	quizID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	var data quiz.NewQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	question, err := api.svc.AddQuestion(ctx.Request().Context(), quizID, uid, data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, QuestionResponse{Message: "Question added successfully.", Question: question})
}

func (api *quizApi) submit(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	quizID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	var data quiz.SubmitRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Submit(ctx.Request().Context(), quizID, uid, data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusOK, SubmitResponse{Message: "Quiz submitted successfully.", SubmitResult: res})
}

func (api *quizApi) submission(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), id, uid)
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

type (
	QuizResponse struct {
		Message string    `json:"message"`
		Quiz    quiz.Quiz `json:"quiz"`
	}

	QuestionResponse struct {
		Message  string        `json:"message"`
		Question quiz.Question `json:"question"`
	}

	SubmitResponse struct {
		Message string `json:"message"`
		quiz.SubmitResult
	}
)
