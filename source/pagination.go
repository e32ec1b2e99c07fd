package source

// pagination is a page window over a result of total records. perPage 0
// means a single unbounded page.
type pagination struct {
	page      int
	perPage   int
	total     int
	pageCount int
}

// settle records the total and clamps the page. An empty result has no
// pages but still reports page 1.
func (p *pagination) settle(total int) {
	p.total = max(total, 0)
	if p.perPage > 0 {
		p.pageCount = (p.total + p.perPage - 1) / p.perPage
	} else {
		p.pageCount = 1
	}
	p.page = max(min(p.page, p.pageCount), 1)
}

// offset is the 0-based position of the first record of the page.
func (p pagination) offset() int {
	if p.perPage == 0 {
		return 0
	}
	return (p.page - 1) * p.perPage
}

// first is the 1-based number of the first record on the page, 0 when the
// result is empty.
func (p pagination) first() int {
	if p.total == 0 {
		return 0
	}
	return p.offset() + 1
}

// last is the 1-based number of the last record on the page.
func (p pagination) last() int {
	if p.perPage == 0 {
		return p.total
	}
	return min(p.total, p.first()+p.perPage-1)
}
