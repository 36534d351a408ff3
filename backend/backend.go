// Package backend is the typed REST surface of the Aqua Control API used by the dashboard.
package backend

import (
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/jrsteele09/aqua-control/roles"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultRoleTTL  = 24 * time.Hour
)

// API calls the backend for one session
type API struct {
	client *apiclient.Client
	roles  *roles.Cache
}

// New wraps client. Role lists are cached for roleTTL.
func New(client *apiclient.Client, roleTTL time.Duration) *API {
	if roleTTL <= 0 {
		roleTTL = DefaultRoleTTL
	}
	a := &API{client: client}
	a.roles = roles.NewCache(a.fetchRoles, roleTTL)
	return a
}

// Page is one page of a list endpoint
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}

// TotalPages is at least 1
func (p Page[T]) TotalPages() int {
	if p.Limit <= 0 || p.Total <= p.Limit {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}

func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

// PageQuery describes a paginated, searchable list request
type PageQuery struct {
	Page   int
	Limit  int
	Search string
}

func (q PageQuery) normalised() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

func (q PageQuery) values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

func pageOf[T any](env apiclient.Envelope[[]T], q PageQuery) Page[T] {
	return Page[T]{
		Items: env.Data,
		Total: env.Total(len(env.Data)),
		Page:  q.Page,
		Limit: q.Limit,
	}
}

func itemPath(collection, id string) string {
	return collection + "/" + url.PathEscape(id)
}
