package course

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	DefaultSort  = "-createdAt"

	// keeps (page-1)*limit far away from int64 overflow
	maxPage = 1_000_000
)

var sortableFields = map[string]struct{}{
	"createdAt": {},
	"updatedAt": {},
	"price":     {},
	"title":     {},
	"duration":  {},
	"reviews":   {},
	"level":     {},
}

// PriceFilter is either an exact match (Exact != nil) or an inclusive range.
type PriceFilter struct {
	Exact *float64
	Min   *float64
	Max   *float64
}

type Filter struct {
	Categories []string
	Levels     []string
	Authors    []string
	Price      *PriceFilter

	Page  int
	Limit int

	SortField string
	SortDesc  bool
}

func (f Filter) Skip() int64 {
	return int64(f.Page-1) * int64(f.Limit)
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func NewPagination(f Filter, total int64) Pagination {
	return Pagination{
		Page:  f.Page,
		Limit: f.Limit,
		Total: total,
		Pages: PageCount(total, f.Limit),
	}
}

// PageCount is ceil(total/limit); zero when there is nothing to page.
func PageCount(total int64, limit int) int64 {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}

// ParseFilter turns query string parameters into a Filter. It never fails:
// unusable values fall back to defaults or are dropped.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Categories: multiValue(q, "category", true),
		Levels:     multiValue(q, "level", false),
		Authors:    multiValue(q, "author", false),
		Price:      parsePrice(q["price"]),
		Page:       positiveInt(q.Get("page"), DefaultPage),
		Limit:      positiveInt(q.Get("limit"), DefaultLimit),
	}

	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Page > maxPage {
		f.Page = maxPage
	}

	f.SortField, f.SortDesc = parseSort(q.Get("sort"))

	return f
}

// multiValue collects a repeated and/or comma separated parameter.
func multiValue(q url.Values, key string, lower bool) []string {
	var out []string
	seen := map[string]struct{}{}

	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			v := strings.TrimSpace(part)
			if lower {
				v = strings.ToLower(v)
			}
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	return out
}

func parsePrice(raw []string) *PriceFilter {
	var tokens []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if p := strings.TrimSpace(part); p != "" {
				tokens = append(tokens, p)
			}
		}
	}

	if len(tokens) == 0 {
		return nil
	}

	if len(tokens) == 1 {
		v, err := strconv.ParseFloat(tokens[0], 64)
		if err != nil || !isFinite(v) {
			return nil
		}
		return &PriceFilter{Exact: &v}
	}

	var nums []float64
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || !isFinite(v) {
			continue
		}
		nums = append(nums, v)
	}

	if len(nums) < 2 {
		return nil
	}

	lo, hi := nums[0], nums[0]
	for _, n := range nums[1:] {
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}

	return &PriceFilter{Min: &lo, Max: &hi}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func parseSort(raw string) (field string, desc bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultSort
	}

	desc = strings.HasPrefix(raw, "-")
	field = strings.TrimPrefix(strings.TrimPrefix(raw, "-"), "+")

	if _, ok := sortableFields[field]; !ok {
		return "createdAt", true
	}

	return field, desc
}
