package utils

import (
	"sort"
	"strconv"
	"strings"

	"github.com/geocoder89/coursehub/internal/domain/course"
)

// BuildCourseFilterCacheKey is stable for equal filters regardless of the
// order the query parameters arrived in.
func BuildCourseFilterCacheKey(f course.Filter) string {
	p := ""
	if f.Price != nil {
		switch {
		case f.Price.Exact != nil:
			p = formatFloat(*f.Price.Exact)
		case f.Price.Min != nil && f.Price.Max != nil:
			p = formatFloat(*f.Price.Min) + "-" + formatFloat(*f.Price.Max)
		}
	}

	dir := "asc"
	if f.SortDesc {
		dir = "desc"
	}

	return "courses:filter:v1" +
		":category=" + sortedJoin(f.Categories) +
		":level=" + sortedJoin(f.Levels) +
		":author=" + sortedJoin(f.Authors) +
		":price=" + p +
		":page=" + strconv.Itoa(f.Page) +
		":limit=" + strconv.Itoa(f.Limit) +
		":sort=" + f.SortField + "." + dir
}

func sortedJoin(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
