// Package table keeps list-screen state in the URL: page, query and sort.
// Every function here is pure; the URL is the only source of truth.
package table

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	ParamPage  = "page"
	ParamQuery = "query"
	ParamSort  = "sort"
)

type Direction string

const (
	Unsorted   Direction = ""
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Next cycles unsorted, ascending, descending, unsorted.
func (d Direction) Next() Direction {
	switch d {
	case Unsorted:
		return Ascending
	case Ascending:
		return Descending
	default:
		return Unsorted
	}
}

type Sort struct {
	Field     string
	Direction Direction
}

func (s Sort) String() string {
	if s.Field == "" || s.Direction == Unsorted {
		return ""
	}
	return s.Field + "," + string(s.Direction)
}

func parseSort(raw string) Sort {
	field, dir, ok := strings.Cut(raw, ",")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return Sort{}
	}
	switch d := Direction(strings.ToLower(strings.TrimSpace(dir))); d {
	case Ascending, Descending:
		return Sort{Field: field, Direction: d}
	}
	return Sort{}
}

// State is the table query decoded from the URL. Page is one-based.
type State struct {
	Page  int
	Query string
	Sort  Sort
}

// Parse reads state from URL parameters. A missing or invalid page is 1.
func Parse(v url.Values) State {
	page, err := strconv.Atoi(v.Get(ParamPage))
	if err != nil || page < 1 {
		page = 1
	}
	return State{
		Page:  page,
		Query: v.Get(ParamQuery),
		Sort:  parseSort(v.Get(ParamSort)),
	}
}

// Values is the inverse of Parse. Page 1 is left implicit.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(s.Page))
	}
	if s.Query != "" {
		v.Set(ParamQuery, s.Query)
	}
	if sort := s.Sort.String(); sort != "" {
		v.Set(ParamSort, sort)
	}
	return v
}

// Wire converts the state to backend parameters with a zero-based page.
func (s State) Wire() url.Values {
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(ToWirePage(s.Page)))
	if s.Query != "" {
		v.Set(ParamQuery, s.Query)
	}
	if sort := s.Sort.String(); sort != "" {
		v.Set(ParamSort, sort)
	}
	return v
}

func ToWirePage(uiPage int) int { return uiPage - 1 }

func FromWirePage(wirePage int) int { return wirePage + 1 }

func clone(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// Search applies a submitted search. An unchanged query is a no-op; anything
// else sets or clears query and drops page.
func Search(v url.Values, query string) url.Values {
	query = strings.TrimSpace(query)
	if query == v.Get(ParamQuery) {
		return clone(v)
	}
	out := clone(v)
	if query == "" {
		out.Del(ParamQuery)
	} else {
		out.Set(ParamQuery, query)
	}
	out.Del(ParamPage)
	return out
}

// ClearSearch drops the query and, like any filter change, the page.
func ClearSearch(v url.Values) url.Values {
	out := clone(v)
	if out.Get(ParamQuery) == "" {
		return out
	}
	out.Del(ParamQuery)
	out.Del(ParamPage)
	return out
}

// ToggleSort advances field to its next direction and drops page. Sorting a
// different field starts it at ascending.
func ToggleSort(v url.Values, field string) url.Values {
	current := parseSort(v.Get(ParamSort))
	next := Sort{Field: field, Direction: Ascending}
	if current.Field == field {
		next.Direction = current.Direction.Next()
	}

	out := clone(v)
	if s := next.String(); s != "" {
		out.Set(ParamSort, s)
	} else {
		out.Del(ParamSort)
	}
	out.Del(ParamPage)
	return out
}

// SetPage only ever touches page.
func SetPage(v url.Values, page int) url.Values {
	out := clone(v)
	out.Set(ParamPage, strconv.Itoa(page))
	return out
}

// URL renders path with v as its query string.
func URL(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
