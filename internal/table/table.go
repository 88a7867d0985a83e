package table

import (
	"net/url"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
)

// Column describes one rendered column. Key doubles as the sort field.
type Column[T any] struct {
	Key      string
	Header   string
	Sortable bool
	Render   func(row T, index int) string
}

// Action is a per-row control. Destructive actions are posted to a URL that
// asks for confirmation before anything runs.
type Action[T any] struct {
	Name        string
	Icon        string
	Variant     string
	Destructive bool
	Href        func(row T) string
}

type HeaderCell struct {
	Key       string
	Title     string
	Sortable  bool
	Direction Direction
	SortURL   string
}

type RowAction struct {
	Name        string
	Icon        string
	Variant     string
	Destructive bool
	Href        string
}

type Row struct {
	Cells   []string
	Actions []RowAction
}

type PageLink struct {
	Page    int
	URL     string
	Current bool
}

// View is everything a list template needs.
type View struct {
	Path       string
	Self       string
	AddNewLink string
	Query      string
	Sort       string
	ClearURL   string
	Headers    []HeaderCell
	Rows       []Row
	HasActions bool
	Empty      bool
	ColSpan    int

	Start  int
	End    int
	Totals int

	Pager   Pager
	Pages   []PageLink
	PrevURL string
	NextURL string
}

// Config carries the screen-specific parts of a table.
type Config[T any] struct {
	Path       string
	AddNewLink string
	Columns    []Column[T]
	Actions    []Action[T]
}

// Build turns a backend envelope and the current URL into a view.
func Build[T any](cfg Config[T], params url.Values, env models.Envelope[[]T]) View {
	state := Parse(params)
	current := FromWirePage(env.Paging.Page)
	size := env.Paging.Size
	if size <= 0 {
		// no page size on the wire; the page holds what was sent
		size = len(env.Data)
	}
	start, end := Elements(current, size, env.Paging.Totals)

	v := View{
		Path:       cfg.Path,
		Self:       URL(cfg.Path, params),
		AddNewLink: cfg.AddNewLink,
		Query:      state.Query,
		Sort:       state.Sort.String(),
		ClearURL:   URL(cfg.Path, ClearSearch(params)),
		HasActions: len(cfg.Actions) > 0,
		Empty:      len(env.Data) == 0,
		ColSpan:    len(cfg.Columns),
		Start:      start,
		End:        end,
		Totals:     env.Paging.Totals,
		Pager:      NewPager(current, env.Paging.TotalPage),
	}
	if v.HasActions {
		v.ColSpan++
	}

	for _, c := range cfg.Columns {
		h := HeaderCell{Key: c.Key, Title: c.Header, Sortable: c.Sortable}
		if c.Sortable {
			if state.Sort.Field == c.Key {
				h.Direction = state.Sort.Direction
			}
			h.SortURL = URL(cfg.Path, ToggleSort(params, c.Key))
		}
		v.Headers = append(v.Headers, h)
	}

	for i, row := range env.Data {
		r := Row{Cells: make([]string, 0, len(cfg.Columns))}
		for _, c := range cfg.Columns {
			if c.Render != nil {
				r.Cells = append(r.Cells, c.Render(row, i))
			} else {
				r.Cells = append(r.Cells, "")
			}
		}
		for _, a := range cfg.Actions {
			ra := RowAction{Name: a.Name, Icon: a.Icon, Variant: a.Variant, Destructive: a.Destructive}
			if a.Href != nil {
				ra.Href = a.Href(row)
			}
			r.Actions = append(r.Actions, ra)
		}
		v.Rows = append(v.Rows, r)
	}

	for _, p := range v.Pager.Pages {
		v.Pages = append(v.Pages, PageLink{Page: p, URL: URL(cfg.Path, SetPage(params, p)), Current: p == current})
	}
	if !v.Pager.PrevDisabled {
		v.PrevURL = URL(cfg.Path, SetPage(params, current-1))
	}
	if !v.Pager.NextDisabled {
		v.NextURL = URL(cfg.Path, SetPage(params, current+1))
	}
	return v
}
