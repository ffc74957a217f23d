package resource

import (
	"net/url"
	"strconv"

	"github.com/iliyamo/finance-tracker/internal/repository"
)

// Item wraps a single payload.
type Item[T any] struct {
	Data T `json:"data"`
}

func Wrap[T any](v T) Item[T] { return Item[T]{Data: v} }

type Links struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

type Meta struct {
	CurrentPage int    `json:"current_page"`
	From        *int   `json:"from"`
	LastPage    int    `json:"last_page"`
	Path        string `json:"path"`
	PerPage     int    `json:"per_page"`
	To          *int   `json:"to"`
	Total       int64  `json:"total"`
}

// Collection is the paginated envelope returned by every listing.
type Collection[T any] struct {
	Data  []T   `json:"data"`
	Links Links `json:"links"`
	Meta  Meta  `json:"meta"`
}

// Paginate builds the envelope for data, the serialized items of page.
// Links keep the other query parameters of the request.
func Paginate[M, T any](page repository.Page[M], data []T, path string, query url.Values) Collection[T] {
	if data == nil {
		data = []T{}
	}
	last := page.LastPage()
	link := func(n int) string {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(n))
		return path + "?" + q.Encode()
	}
	out := Collection[T]{
		Data: data,
		Links: Links{
			First: link(1),
			Last:  link(last),
		},
		Meta: Meta{
			CurrentPage: page.Page,
			LastPage:    last,
			Path:        path,
			PerPage:     page.PerPage,
			Total:       page.Total,
		},
	}
	if page.Page > 1 {
		prev := link(min(page.Page-1, last))
		out.Links.Prev = &prev
	}
	if page.Page < last {
		next := link(page.Page + 1)
		out.Links.Next = &next
	}
	if len(data) > 0 {
		from := (page.Page-1)*page.PerPage + 1
		to := from + len(data) - 1
		out.Meta.From, out.Meta.To = &from, &to
	}
	return out
}
