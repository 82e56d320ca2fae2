package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/geocoder89/coursehub/internal/domain/user"
	"github.com/geocoder89/coursehub/internal/http/middlewares"
	"github.com/geocoder89/coursehub/internal/utils"
	"github.com/gin-gonic/gin"
)

type CourseStore interface {
	Create(ctx context.Context, c course.Course) (course.Course, error)
	GetByID(ctx context.Context, id string) (course.Course, error)
	List(ctx context.Context) ([]course.Course, error)
	Update(ctx context.Context, id string, req course.UpsertRequest) (course.Course, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	Filter(ctx context.Context, f course.Filter) ([]course.Course, int64, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type FilterCacheRecorder interface {
	FilterCache(hit bool)
}

// PageCache holds filter results per normalized filter key. A page read
// from the store is stored with the generation seen before the read, so a
// Clear that lands in between wins.
type PageCache interface {
	Get(key string) (FilterPage, bool)
	Generation() uint64
	SetIfGeneration(key string, page FilterPage, gen uint64) bool
	Clear()
}

// FilterPage is what the filter cache stores per normalized filter.
type FilterPage struct {
	Courses []course.Course
	Total   int64
}

type CoursesHandler struct {
	repo    CourseStore
	users   UserLookup
	cache   PageCache
	metrics FilterCacheRecorder
}

func NewCoursesHandler(repo CourseStore, users UserLookup, filterCache PageCache, metrics FilterCacheRecorder) *CoursesHandler {
	return &CoursesHandler{
		repo:    repo,
		users:   users,
		cache:   filterCache,
		metrics: metrics,
	}
}

func (h *CoursesHandler) CreateCourse(ctx *gin.Context) {
	var req course.UpsertRequest

	if !BindJSON(ctx, &req) {
		return
	}

	authorID, _ := middlewares.UserIDFromContext(ctx)

	cctx, cancel := opContext(ctx, 3*time.Second)
	defer cancel()

	// the token may outlive its user
	if _, err := h.users.GetByID(cctx, authorID); err != nil {
		if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrInvalidID) {
			RespondUnauthorized(ctx, "unknown_user", "User not found")
			return
		}
		RespondInternal(ctx, "Could not create course", err)
		return
	}

	created, err := h.repo.Create(cctx, course.NewFromRequest(req, authorID))
	if err != nil {
		RespondInternal(ctx, "Could not create course", err)
		return
	}
	h.invalidate()

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Course created successfully",
		"course":  created,
	})
}

func (h *CoursesHandler) EditCourse(ctx *gin.Context) {
	var req course.UpsertRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := opContext(ctx, 3*time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, ctx.Param("id"), req)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, "Course not found")
			return
		}
		RespondInternal(ctx, "Could not update course", err)
		return
	}
	h.invalidate()

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Course updated successfully",
		"course":  updated,
	})
}

func (h *CoursesHandler) GetAllCourses(ctx *gin.Context) {
	cctx, cancel := opContext(ctx, 5*time.Second)
	defer cancel()

	courses, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list courses", err)
		return
	}

	if len(courses) == 0 {
		ctx.JSON(http.StatusOK, gin.H{"message": "No courses found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Courses fetched successfully",
		"courses": courses,
		"count":   len(courses),
	})
}

func (h *CoursesHandler) GetCourse(ctx *gin.Context) {
	cctx, cancel := opContext(ctx, 2*time.Second)
	defer cancel()

	c, err := h.repo.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, "Course not found")
			return
		}
		RespondInternal(ctx, "Could not fetch course", err)
		return
	}

	respondVersioned(ctx, http.StatusOK, versionETag(c.ID, c.UpdatedAt), gin.H{
		"message": "Course fetched successfully",
		"course":  c,
	})
}

func (h *CoursesHandler) DeleteCourse(ctx *gin.Context) {
	cctx, cancel := opContext(ctx, 3*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, ctx.Param("id")); err != nil {
		if errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, "Course not found")
			return
		}
		RespondInternal(ctx, "Could not delete course", err)
		return
	}
	h.invalidate()

	ctx.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}

func (h *CoursesHandler) DeleteAllCourses(ctx *gin.Context) {
	cctx, cancel := opContext(ctx, 10*time.Second)
	defer cancel()

	deleted, err := h.repo.DeleteAll(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not delete courses", err)
		return
	}
	h.invalidate()

	ctx.JSON(http.StatusOK, gin.H{
		"message":      "All courses deleted successfully",
		"deletedCount": deleted,
	})
}

func (h *CoursesHandler) FilterCourses(ctx *gin.Context) {
	f := course.ParseFilter(ctx.Request.URL.Query())
	key := utils.BuildCourseFilterCacheKey(f)

	page, hit := h.cachedPage(key)

	if !hit {
		var gen uint64
		if h.cache != nil {
			gen = h.cache.Generation()
		}

		cctx, cancel := opContext(ctx, 5*time.Second)
		defer cancel()

		courses, total, err := h.repo.Filter(cctx, f)
		if err != nil {
			RespondInternal(ctx, "Could not filter courses", err)
			return
		}

		page = FilterPage{Courses: courses, Total: total}
		if h.cache != nil {
			h.cache.SetIfGeneration(key, page, gen)
		}
	}

	if h.metrics != nil {
		h.metrics.FilterCache(hit)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Courses filtered successfully",
		"count":      len(page.Courses),
		"courses":    page.Courses,
		"pagination": course.NewPagination(f, page.Total),
	})
}

func (h *CoursesHandler) cachedPage(key string) (FilterPage, bool) {
	if h.cache == nil {
		return FilterPage{}, false
	}
	return h.cache.Get(key)
}

func (h *CoursesHandler) invalidate() {
	if h.cache != nil {
		h.cache.Clear()
	}
}
