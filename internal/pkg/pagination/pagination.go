package pagination

import (
	"strconv"

	"gorm.io/gorm"
)

type Params struct {
	Page    int
	PerPage int
}

// Result mirrors the paginator payload existing API clients read.
type Result[T any] struct {
	Data        []T   `json:"data"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

// New clamps page to >= 1; perPage <= 0 falls back to def.
func New(page, perPage, def int) Params {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = def
	}
	return Params{Page: page, PerPage: perPage}
}

// FromQuery parses ?page= with a fixed page size.
func FromQuery(rawPage string, perPage int) Params {
	page, _ := strconv.Atoi(rawPage)
	return New(page, perPage, perPage)
}

func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }

// Paginate counts q, then loads the requested page into a Result. q carries
// only filters; ordering and preloads go in scopes, which apply to the page
// query and not to the count.
func Paginate[T any](q *gorm.DB, p Params, scopes ...func(*gorm.DB) *gorm.DB) (*Result[T], error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	rows := make([]T, 0)
	if total > 0 {
		if err := q.Session(&gorm.Session{}).Scopes(scopes...).Offset(p.Offset()).Limit(p.PerPage).Find(&rows).Error; err != nil {
			return nil, err
		}
	}
	last := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if last < 1 {
		last = 1
	}
	return &Result[T]{
		Data:        rows,
		CurrentPage: p.Page,
		LastPage:    last,
		PerPage:     p.PerPage,
		Total:       total,
	}, nil
}
