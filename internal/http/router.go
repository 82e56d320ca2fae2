package http

import (
	"time"

	"github.com/geocoder89/coursehub/internal/auth"
	"github.com/geocoder89/coursehub/internal/cache"
	"github.com/geocoder89/coursehub/internal/config"
	"github.com/geocoder89/coursehub/internal/domain/user"
	"github.com/geocoder89/coursehub/internal/http/handlers"
	"github.com/geocoder89/coursehub/internal/http/middlewares"
	"github.com/geocoder89/coursehub/internal/observability"
	"github.com/geocoder89/coursehub/internal/revocation"
	"github.com/geocoder89/coursehub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "coursehub"

type UserRepo interface {
	handlers.UserStore
	handlers.UserLookup
}

type CourseRepo interface {
	handlers.CourseStore
	handlers.AuthoredCourses
}

// Deps is everything the router wires into handlers. Prom, Gatherer, Checks
// and FilterCache are optional.
type Deps struct {
	Config   config.Config
	Users    UserRepo
	Courses  CourseRepo
	Tokens   *auth.Manager
	Denylist revocation.Denylist
	Hasher   security.Hasher
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Checks   map[string]handlers.PingFunc

	FilterCache handlers.PageCache
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.ErrorDetails(cfg.ExposeErrorDetails))
	r.Use(middlewares.SecurityHeaders(cfg.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(middlewares.DefaultMaxBody))
	r.Use(middlewares.RequireJSON())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger())

	// health
	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET(middlewares.DocsPath, handlers.SwaggerUI)
	r.GET(middlewares.DocsPath+"/openapi.yaml", handlers.OpenAPISpec)

	// wire up handlers
	filterCache := d.FilterCache
	if filterCache == nil {
		filterCache = cache.NewBounded[handlers.FilterPage](cfg.FilterCacheSize, cfg.FilterCacheTTL)
	}

	usersHandler := handlers.NewUsersHandler(handlers.UsersHandlerDeps{
		Users:        d.Users,
		Courses:      d.Courses,
		Hasher:       d.Hasher,
		Tokens:       d.Tokens,
		Revoker:      d.Denylist,
		CourseCache:  filterCache,
		SecureCookie: cfg.Env == "prod",
	})
	coursesHandler := handlers.NewCoursesHandler(d.Courses, d.Users, filterCache, d.Prom)

	authMw := middlewares.NewAuthMiddleware(d.Tokens, d.Denylist, d.Prom)
	anyRole := authMw.RequireRoles(user.AllRoles...)
	member := authMw.RequireRoles(user.RoleAdmin, user.RoleTeacher, user.RoleStudent)
	admin := authMw.RequireRoles(user.RoleAdmin)
	teacher := authMw.RequireRoles(user.RoleTeacher)
	adminOrTeacher := authMw.RequireRoles(user.RoleAdmin, user.RoleTeacher)

	limiter := middlewares.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	api := r.Group("/api/v1")

	// public
	api.POST("/signup", limiter.Middleware(middlewares.KeyByIP), usersHandler.SignUp)
	api.POST("/login", limiter.Middleware(middlewares.KeyByIP), usersHandler.Login)

	protected := api.Group("")
	protected.Use(authMw.RequireAuth())

	// users
	protected.POST("/logout", member, usersHandler.Logout)
	protected.PUT("/edit-info", member, usersHandler.EditInfo)
	protected.GET("/users", admin, usersHandler.ListUsers)
	protected.DELETE("/delete/:id", admin, usersHandler.DeleteUser)
	protected.DELETE("/delete-all", admin, usersHandler.DeleteAllUsers)

	// courses
	protected.GET("/courses", anyRole, coursesHandler.GetAllCourses)
	protected.GET("/courses/filter", anyRole, coursesHandler.FilterCourses)
	protected.GET("/course/:id", anyRole, coursesHandler.GetCourse)
	protected.POST("/create-course", teacher, coursesHandler.CreateCourse)
	protected.PUT("/edit/course/:id", teacher, coursesHandler.EditCourse)
	protected.DELETE("/delete/course/:id", adminOrTeacher, coursesHandler.DeleteCourse)
	protected.DELETE("/delete/courses", teacher, coursesHandler.DeleteAllCourses)

	return r
}
