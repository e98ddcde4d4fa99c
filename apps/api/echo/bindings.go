package echoapi

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
)

// queryInt reads a non-negative integer query param, 0 when missing or malformed.
func queryInt(ctx echo.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(ctx.QueryParam(name)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// bindPage reads the `page` & `limit` query params. Services apply the defaults.
func bindPage(ctx echo.Context) core.Page {
	return core.Page{Number: queryInt(ctx, "page"), Limit: queryInt(ctx, "limit")}
}

// idParam parses a numeric path param; malformed ids cannot match anything.
func idParam(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}

type formFile struct {
	Filename string
	Size     int64
	File     multipart.File
}

// openFormFile opens the uploaded file of the multipart field name.
// A missing file is not an error: the caller's validation reports it.
func openFormFile(ctx echo.Context, name string) (formFile, error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return formFile{}, nil
		}
		return formFile{}, core.NewValidationError(err, core.FieldError{Field: name, Error: "invalid multipart upload"})
	}
	f, err := fh.Open()
	if err != nil {
		return formFile{}, errors.Wrap(err, "opening uploaded file")
	}
	return formFile{Filename: fh.Filename, Size: fh.Size, File: f}, nil
}

func (f formFile) Close() {
	if f.File != nil {
		_ = f.File.Close()
	}
}
