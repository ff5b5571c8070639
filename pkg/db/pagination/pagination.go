package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 250
)

// Page is the limit/offset pair bound from query parameters.
type Page struct {
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// Normalize clamps the page to sane bounds. A zero or negative limit falls
// back to the default; offsets never go negative.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PageInfo describes the window a list response covers.
type PageInfo struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// BuildPageInfo derives PageInfo from a normalized page and the total row
// count of the unpaged query.
func BuildPageInfo(p Page, total int64) PageInfo {
	return PageInfo{
		Limit:   p.Limit,
		Offset:  p.Offset,
		Total:   total,
		HasMore: int64(p.Offset+p.Limit) < total,
	}
}
