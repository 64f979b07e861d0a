package pagination

import "encoding/json"

// PagedResult is one page of rows plus the total matching count.
type PagedResult[T any] struct {
	Page         int
	TotalRecords int64
	PageSize     int
	Data         []T
}

func NewPagedResult[T any](settings Settings, total int64, data []T) PagedResult[T] {
	if data == nil {
		data = []T{}
	}
	return PagedResult[T]{
		Page:         settings.Page,
		TotalRecords: total,
		PageSize:     settings.PageSize,
		Data:         data,
	}
}

// Records is the number of rows on this page.
func (r PagedResult[T]) Records() int {
	return len(r.Data)
}

// Pages is ceil(TotalRecords / PageSize), or 0 when PageSize is not positive.
func (r PagedResult[T]) Pages() int {
	if r.PageSize <= 0 {
		return 0
	}
	size := int64(r.PageSize)
	return int((r.TotalRecords + size - 1) / size)
}

type pagedResultJSON[T any] struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"pageSize"`
	TotalRecords int64 `json:"totalRecords"`
	Records      int   `json:"records"`
	Pages        int   `json:"pages"`
	Data         []T   `json:"data"`
}

func (r PagedResult[T]) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = []T{}
	}
	return json.Marshal(pagedResultJSON[T]{
		Page:         r.Page,
		PageSize:     r.PageSize,
		TotalRecords: r.TotalRecords,
		Records:      r.Records(),
		Pages:        r.Pages(),
		Data:         data,
	})
}
