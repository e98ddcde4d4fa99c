package material

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
)

const (
	defaultCourseLimit = 20
	defaultGlobalLimit = 10
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound    = core.NewNotFoundError("Material not found.")
	ErrNotUploader = core.NewForbiddenError("Forbidden: You cannot delete this material.")
	ErrNotMember   = core.NewForbiddenError("Forbidden: You must be enrolled in this course.")

	errFileRequired = core.NewValidationError(
		errors.New("file is required"),
		core.FieldError{Field: "file", Error: "File upload failed or missing."},
	)
)

type (
	Repository interface {
		CreateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
		// SetTags creates missing tags and links them all to the material.
		SetTags(ctx context.Context, materialID int64, tags []string, exec ...core.DBExecutor) error
		GetMaterial(ctx context.Context, id int64, exec ...core.DBExecutor) (Material, error)
		ListMaterials(ctx context.Context, q Query) ([]Material, error)
		CountMaterials(ctx context.Context, q Query) (int, error)
		DeleteMaterial(ctx context.Context, id int64, exec ...core.DBExecutor) error

		HasUpvoted(ctx context.Context, materialID, userID int64, exec ...core.DBExecutor) (bool, error)
		AddUpvote(ctx context.Context, materialID, userID int64, exec ...core.DBExecutor) error
		RemoveUpvote(ctx context.Context, materialID, userID int64, exec ...core.DBExecutor) error
		// IncrementUpvotes adds delta to the upvote counter and returns the new count.
		IncrementUpvotes(ctx context.Context, materialID int64, delta int, exec ...core.DBExecutor) (int, error)
		IncrementDownloads(ctx context.Context, materialID int64) (Material, error)
	}

	// Members tells whether a user is enrolled in a course.
	Members interface {
		IsMember(ctx context.Context, courseID, userID int64) (bool, error)
	}

	Service struct {
		tx      core.Transactor
		repo    Repository
		files   core.FileStore
		members Members
		conf    core.UploadsConfig
		logger  core.Logger
	}
)

func NewService(
	tx core.Transactor,
	repo Repository,
	files core.FileStore,
	members Members,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		tx:      tx,
		repo:    repo,
		files:   files,
		members: members,
		conf:    conf.Uploads,
		logger:  logger,
	}
}

func (svc *Service) extAllowed(ext string) bool {
	for _, e := range svc.conf.MaterialAllowExts {
		if e == ext {
			return true
		}
	}
	return false
}

// readFile loads the upload in memory, rejecting files over the size limit and unexpected contents.
func (svc *Service) readFile(f File) ([]byte, string, string, error) {
	if f.Content == nil || f.Filename == "" {
		return nil, "", "", errFileRequired
	}
	fileErr := func(msg string) error {
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "file", Error: msg})
	}

	ext := fileExt(f.Filename)
	if !svc.extAllowed(ext) {
		return nil, "", "", fileErr("Error: File upload only supports the following filetypes - " +
			fmt.Sprint(svc.conf.MaterialAllowExts))
	}
	if f.Size > svc.conf.MaterialMaxBytes {
		return nil, "", "", fileErr(fmt.Sprintf("File too large. Max size is %dMB.", svc.conf.MaterialMaxBytes>>20))
	}

	data, err := io.ReadAll(io.LimitReader(f.Content, svc.conf.MaterialMaxBytes+1))
	if err != nil {
		return nil, "", "", errors.Wrap(err, "reading upload")
	}
	if int64(len(data)) > svc.conf.MaterialMaxBytes {
		return nil, "", "", fileErr(fmt.Sprintf("File too large. Max size is %dMB.", svc.conf.MaterialMaxBytes>>20))
	}
	if len(data) == 0 {
		return nil, "", "", errFileRequired
	}

	contentType, ok := matchContent(ext, data)
	if !ok {
		return nil, "", "", fileErr(fmt.Sprintf("File content (%s) does not match its extension (.%s).", contentType, ext))
	}
	return data, ext, contentType, nil
}

// Upload stores the file then records the material and its tags in one transaction.
// The stored object is removed again when the transaction fails.
func (svc *Service) Upload(ctx context.Context, courseID, userID int64, nm NewMaterial, f File) (Material, error) {
	ok, err := svc.members.IsMember(ctx, courseID, userID)
	if err != nil {
		return Material{}, errors.Wrap(err, "checking course membership")
	}
	if !ok {
		return Material{}, ErrNotMember
	}

	data, ext, contentType, err := svc.readFile(f)
	if err != nil {
		return Material{}, err
	}

	key := fmt.Sprintf("materials/%d/%s.%s", courseID, uuid.New().String(), ext)
	if err = svc.files.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Material{}, errors.Wrap(err, "storing file")
	}

	tags := NormalizeTags(nm.Tags)
	var mat Material
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		mat, err = svc.repo.CreateMaterial(ctx, Material{
			CourseID:         courseID,
			UploaderID:       userID,
			Title:            nm.Title,
			Description:      nm.Description,
			ObjectKey:        key,
			FileType:         ext,
			ContentType:      contentType,
			OriginalFilename: f.Filename,
			SizeBytes:        int64(len(data)),
			CreatedAt:        NowFunc().UTC(),
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating material")
		}
		if len(tags) > 0 {
			if err = svc.repo.SetTags(ctx, mat.ID, tags, exec); err != nil {
				return errors.Wrap(err, "tagging material")
			}
		}
		mat.Tags = tags
		return nil
	})
	if err != nil {
		if dErr := svc.files.Delete(ctx, key); dErr != nil {
			svc.logger.Error(fmt.Sprintf("removing orphan object %s: %v", key, dErr), dErr)
		}
		return Material{}, err
	}
	return mat, nil
}

func (svc *Service) list(ctx context.Context, courseID int64, filter ListFilter, defLimit int) (Page, error) {
	filter.Clean()
	page := core.NewPage(filter.Page.Number, filter.Page.Limit, defLimit)
	q := Query{
		CourseID:  courseID,
		Tag:       filter.Tag,
		Orderings: filter.Orderings(),
		Limit:     page.Limit,
		Offset:    page.Offset(),
	}

	items, err := svc.repo.ListMaterials(ctx, q)
	if err != nil {
		return Page{}, errors.Wrap(err, "listing materials")
	}
	total, err := svc.repo.CountMaterials(ctx, q)
	if err != nil {
		return Page{}, errors.Wrap(err, "counting materials")
	}
	if items == nil {
		items = []Material{}
	}
	return Page{Items: items, Pagination: page.Paginate(total)}, nil
}

func (svc *Service) ListForCourse(ctx context.Context, courseID int64, filter ListFilter) (Page, error) {
	return svc.list(ctx, courseID, filter, defaultCourseLimit)
}

func (svc *Service) ListAll(ctx context.Context, filter ListFilter) (Page, error) {
	return svc.list(ctx, 0, filter, defaultGlobalLimit)
}

func (svc *Service) Get(ctx context.Context, id int64) (Material, error) {
	return svc.repo.GetMaterial(ctx, id)
}

// ToggleUpvote adds the user's upvote, or removes it if it exists.
func (svc *Service) ToggleUpvote(ctx context.Context, id, userID int64) (UpvoteResult, error) {
	var res UpvoteResult
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetMaterial(ctx, id, exec); err != nil {
			return err
		}
		voted, err := svc.repo.HasUpvoted(ctx, id, userID, exec)
		if err != nil {
			return errors.Wrap(err, "checking upvote")
		}

		delta := 1
		res.Message = "Material upvoted successfully."
		if voted {
			delta = -1
			res.Message = "Vote removed."
			err = svc.repo.RemoveUpvote(ctx, id, userID, exec)
		} else {
			err = svc.repo.AddUpvote(ctx, id, userID, exec)
		}
		if err != nil {
			return errors.Wrap(err, "toggling upvote")
		}

		res.Upvotes, err = svc.repo.IncrementUpvotes(ctx, id, delta, exec)
		return errors.Wrap(err, "updating upvotes")
	})
	if err != nil {
		return UpvoteResult{}, err
	}
	return res, nil
}

// Download counts a download and returns a short-lived URL to the file.
func (svc *Service) Download(ctx context.Context, id int64) (Download, error) {
	mat, err := svc.repo.IncrementDownloads(ctx, id)
	if err != nil {
		return Download{}, err
	}
	url, err := svc.files.DownloadURL(ctx, mat.ObjectKey, mat.OriginalFilename)
	if err != nil {
		return Download{}, errors.Wrap(err, "presigning download")
	}
	return Download{URL: url, Filename: mat.OriginalFilename}, nil
}

// Delete removes a material of the user, then its file.
func (svc *Service) Delete(ctx context.Context, id, userID int64) error {
	mat, err := svc.repo.GetMaterial(ctx, id)
	if err != nil {
		return err
	}
	if mat.UploaderID != userID {
		return ErrNotUploader
	}
	if err = svc.repo.DeleteMaterial(ctx, id); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if err = svc.files.Delete(ctx, mat.ObjectKey); err != nil {
		svc.logger.Error(fmt.Sprintf("deleting object %s: %v", mat.ObjectKey, err), err)
	}
	return nil
}
