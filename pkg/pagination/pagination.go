package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds pagination parameters extracted from a request. Pages are
// 1-based; Order is either "asc" or "desc".
type Params struct {
	Page     int
	PageSize int
	Order    string
}

// FromContext extracts pagination parameters from the echo context.
// defaultOrder is used when the order query parameter is absent or invalid.
func FromContext(c echo.Context, defaultOrder string) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}

	size, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	order := c.QueryParam("order")
	if order != "asc" && order != "desc" {
		order = defaultOrder
	}

	return Params{Page: page, PageSize: size, Order: order}
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Descending reports whether results should be ordered newest-first.
func (p Params) Descending() bool {
	return p.Order != "asc"
}

// HasNext reports whether more results exist after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset()+p.PageSize < total
}

// Response wraps a paginated API response.
type Response struct {
	Data     interface{} `json:"data"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	HasMore  bool        `json:"hasMore"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:     data,
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.HasNext(total),
	}
}
