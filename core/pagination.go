package core

const maxPageLimit = 100

// Page is a 1-indexed page request.
type Page struct {
	Number int
	Limit  int
}

// NewPage cleans raw page & limit query values, falling back to page 1 and defLimit.
func NewPage(number, limit, defLimit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = defLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	Limit       int `json:"limit"`
}

func (p Page) Paginate(totalItems int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (totalItems + p.Limit - 1) / p.Limit
	}
	return Pagination{
		CurrentPage: p.Number,
		TotalPages:  pages,
		TotalItems:  totalItems,
		Limit:       p.Limit,
	}
}
