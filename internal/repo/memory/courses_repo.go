package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/course"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CoursesRepo struct {
	mu    sync.RWMutex
	items map[string]course.Course
}

func NewCoursesRepo() *CoursesRepo {
	return &CoursesRepo{
		items: make(map[string]course.Course),
	}
}

func (r *CoursesRepo) Create(_ context.Context, c course.Course) (course.Course, error) {
	c.ID = primitive.NewObjectID().Hex()

	r.mu.Lock()
	r.items[c.ID] = c
	r.mu.Unlock()

	return c, nil
}

func (r *CoursesRepo) GetByID(_ context.Context, id string) (course.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (r *CoursesRepo) Update(_ context.Context, id string, req course.UpsertRequest) (course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}

	c.Apply(req)
	c.UpdatedAt = time.Now().UTC()
	r.items[id] = c

	return c, nil
}

func (r *CoursesRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return course.ErrNotFound
	}
	delete(r.items, id)

	return nil
}

func (r *CoursesRepo) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.items))
	r.items = make(map[string]course.Course)

	return n, nil
}

func (r *CoursesRepo) DeleteByAuthor(_ context.Context, authorID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, c := range r.items {
		if c.Author == authorID {
			delete(r.items, id)
			n++
		}
	}

	return n, nil
}

// List returns every course, newest first.
func (r *CoursesRepo) List(_ context.Context) ([]course.Course, error) {
	out := r.snapshot(func(course.Course) bool { return true })
	sortCourses(out, "createdAt", true)

	return out, nil
}

func (r *CoursesRepo) Filter(_ context.Context, f course.Filter) ([]course.Course, int64, error) {
	matched := r.snapshot(func(c course.Course) bool { return matches(c, f) })

	field := f.SortField
	if field == "" {
		field = "createdAt"
	}
	sortCourses(matched, field, f.SortDesc)

	total := int64(len(matched))

	start := f.Skip()
	if start > total {
		start = total
	}
	end := start + int64(f.Limit)
	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

func (r *CoursesRepo) snapshot(keep func(course.Course) bool) []course.Course {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]course.Course, 0, len(r.items))
	for _, c := range r.items {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c course.Course, f course.Filter) bool {
	if len(f.Categories) > 0 && !contains(f.Categories, c.Category) {
		return false
	}
	if len(f.Levels) > 0 && !contains(f.Levels, c.Level) {
		return false
	}
	if len(f.Authors) > 0 && !contains(f.Authors, c.Author) {
		return false
	}

	if p := f.Price; p != nil {
		switch {
		case p.Exact != nil:
			if c.Price != *p.Exact {
				return false
			}
		case p.Min != nil && p.Max != nil:
			if c.Price < *p.Min || c.Price > *p.Max {
				return false
			}
		}
	}

	return true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// sortCourses orders by field with the id as tiebreaker, like the store's
// compound sort.
func sortCourses(cs []course.Course, field string, desc bool) {
	sort.Slice(cs, func(i, j int) bool {
		c := compareField(cs[i], cs[j], field)
		if c == 0 {
			c = strings.Compare(cs[i].ID, cs[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareField(a, b course.Course, field string) int {
	switch field {
	case "price":
		return compareOrdered(a.Price, b.Price)
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "duration":
		return compareOrdered(a.Duration, b.Duration)
	case "reviews":
		return compareOrdered(a.Reviews, b.Reviews)
	case "level":
		return strings.Compare(a.Level, b.Level)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareOrdered[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
