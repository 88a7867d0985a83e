package table

// Elements returns the one-based range of rows shown on page. With no rows
// the displayed start is 0; end never falls below start.
func Elements(page, size, totals int) (start, end int) {
	if totals <= 0 {
		return 0, 0
	}
	page, size = max(page, 1), max(size, 0)
	start = max(min((page-1)*size+1, totals), 1)
	end = max(min(page*size, totals), start)
	return start, end
}

// Pager is the page-button window around the current page.
type Pager struct {
	Current          int
	Total            int
	Pages            []int
	LeadingEllipsis  bool
	TrailingEllipsis bool
	PrevDisabled     bool
	NextDisabled     bool
}

// NewPager shows up to three pages around current, clamped to [1, total].
func NewPager(current, total int) Pager {
	p := Pager{
		Current:          current,
		Total:            total,
		LeadingEllipsis:  current > 3,
		TrailingEllipsis: current < total-2,
		PrevDisabled:     current <= 1 || total == 0,
		NextDisabled:     total == 0 || current >= total,
	}

	n := min(3, total)
	start := max(1, min(current-1, total-2))
	for i := 0; i < n; i++ {
		page := min(start+i, total)
		if page < 1 || (len(p.Pages) > 0 && p.Pages[len(p.Pages)-1] == page) {
			continue
		}
		p.Pages = append(p.Pages, page)
	}
	return p
}
