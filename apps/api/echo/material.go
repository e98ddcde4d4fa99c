package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core/material"
)

type materialApi struct {
	svc      *material.Service
	validate *validator.Validate
}

func registerMaterialAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := materialApi{
		svc:      deps.MaterialSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses/:id/materials", jwt)
	cg.GET("", api.listForCourse)
	cg.POST("", api.upload)

	mg := g.Group("/materials", jwt)
	mg.GET("", api.listAll)
	mg.GET("/:id", api.retrieve)
	mg.DELETE("/:id", api.destroy)
	mg.POST("/:id/upvote", api.upvote)
	mg.GET("/:id/download", api.download)
}

func bindListFilter(ctx echo.Context) material.ListFilter {
	filter := material.ListFilter{
		Sort: ctx.QueryParam("sort"),
		Tag:  ctx.QueryParam("tag"),
		Page: bindPage(ctx),
	}
	filter.Clean()
	return filter
}

func (api *materialApi) listForCourse(ctx echo.Context) error {
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	page, err := api.svc.ListForCourse(ctx.Request().Context(), courseID, bindListFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "listing course materials")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *materialApi) listAll(ctx echo.Context) error {
	page, err := api.svc.ListAll(ctx.Request().Context(), bindListFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "listing materials")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *materialApi) upload(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	var data material.NewMaterial
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ff, err := openFormFile(ctx, "file")
	if err != nil {
		return err
	}
	defer ff.Close()

	mat, err := api.svc.Upload(ctx.Request().Context(), courseID, uid, data, material.File{
		Filename: ff.Filename,
		Size:     ff.Size,
		Content:  ff.File,
	})
	if err != nil {
		return errors.Wrap(err, "uploading material")
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api *materialApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	mat, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting material")
	}
	return ctx.JSON(http.StatusOK, mat)
}

func (api *materialApi) destroy(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id, uid); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Material deleted successfully."})
}

func (api *materialApi) upvote(ctx echo.Context) error {
	uid, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := api.svc.ToggleUpvote(ctx.Request().Context(), id, uid)
	if err != nil {
		return errors.Wrap(err, "toggling upvote")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *materialApi) download(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	dl, err := api.svc.Download(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "downloading material")
	}
	return ctx.Redirect(http.StatusFound, dl.URL)
}
