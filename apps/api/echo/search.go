package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/search"
)

var errSearchType = core.NewValidationError(
	errors.New("invalid search type"),
	core.FieldError{Field: "type", Error: "type must be one of all, materials, courses, threads"},
)

type searchApi struct {
	svc *search.Service
}

func registerSearchAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := searchApi{svc: deps.SearchSvc}

	sg := g.Group("/search", jwt)
	sg.GET("", api.search)
	sg.GET("/suggestions", api.suggestions)
}

func (api *searchApi) suggestions(ctx echo.Context) error {
	sugs, err := api.svc.Suggestions(ctx.Request().Context(), ctx.QueryParam("q"))
	if err != nil {
		return errors.Wrap(err, "getting suggestions")
	}
	return ctx.JSON(http.StatusOK, sugs)
}

func (api *searchApi) search(ctx echo.Context) error {
	typ := core.CleanString(ctx.QueryParam("type"), true /* lower */)
	if typ == "" {
		typ = search.TypeAll
	}
	if !search.ValidType(typ) {
		return errSearchType
	}

	res, err := api.svc.Search(ctx.Request().Context(), ctx.QueryParam("q"), typ, queryInt(ctx, "limit"), queryInt(ctx, "offset"))
	if err != nil {
		return errors.Wrap(err, "searching")
	}
	return ctx.JSON(http.StatusOK, res)
}
