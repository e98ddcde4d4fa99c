package material

import (
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sonalink/sonalink/core"
)

// Sort orders of material listings.
const (
	SortRecent         = "recent"
	SortTop            = "top"
	SortMostDownloaded = "most_downloaded"
)

type Material struct {
	ID               int64       `json:"id" db:"id"`
	CourseID         int64       `json:"course_id" db:"course_id"`
	CourseCode       string      `json:"course_code,omitempty" db:"course_code"`
	CourseName       string      `json:"course_name,omitempty" db:"course_name"`
	UploaderID       int64       `json:"uploader_id" db:"uploader_id"`
	Title            string      `json:"title" db:"title"`
	Description      string      `json:"description" db:"description"`
	ObjectKey        string      `json:"-" db:"object_key"`
	FileType         string      `json:"file_type" db:"file_type"`
	ContentType      string      `json:"content_type" db:"content_type"`
	OriginalFilename string      `json:"original_filename" db:"original_filename"`
	SizeBytes        int64       `json:"size_bytes" db:"size_bytes"`
	Upvotes          int         `json:"upvotes" db:"upvotes"`
	Downloads        int         `json:"downloads" db:"downloads"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	Uploader         core.Author `json:"uploader" db:"uploader"`
	Tags             []string    `json:"tags" db:"-"`
}

// File is an uploaded file as received by the API.
type File struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// NewMaterial contains information needed to upload a Material.
type NewMaterial struct {
	Title       string `form:"title" validate:"required,notblank,max=255"`
	Description string `form:"description"`
	Tags        string `form:"tags"` // comma separated
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

type ListFilter struct {
	Sort string
	Tag  string
	Page core.Page
}

func (f *ListFilter) Clean() {
	f.Sort = core.CleanString(f.Sort, true /* lower */)
	f.Tag = core.CleanString(f.Tag, true /* lower */)
}

// Orderings maps the listing sort onto DB orderings, newest first by default.
func (f ListFilter) Orderings() []core.DBOrdering {
	switch f.Sort {
	case SortTop:
		return []core.DBOrdering{{Field: "upvotes"}, {Field: "created_at"}, {Field: "id"}}
	case SortMostDownloaded:
		return []core.DBOrdering{{Field: "downloads"}, {Field: "created_at"}, {Field: "id"}}
	default:
		return []core.DBOrdering{{Field: "created_at"}, {Field: "id"}}
	}
}

// Query is what repositories need to list materials. A zero CourseID lists every course.
type Query struct {
	CourseID  int64
	Tag       string
	Orderings []core.DBOrdering
	Limit     int
	Offset    int
}

type Page struct {
	Items      []Material      `json:"items"`
	Pagination core.Pagination `json:"pagination"`
}

type UpvoteResult struct {
	Message string `json:"message"`
	Upvotes int    `json:"upvotes"`
}

type Download struct {
	URL      string
	Filename string
}

// NormalizeTags splits comma separated tags, trims & lowers them and drops blanks and duplicates.
func NormalizeTags(raw string) []string {
	tags := make([]string, 0)
	seen := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		t = core.CleanString(t, true /* lower */)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
