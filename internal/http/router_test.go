package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/coursehub/internal/auth"
	"github.com/geocoder89/coursehub/internal/config"
	apphttp "github.com/geocoder89/coursehub/internal/http"
	"github.com/geocoder89/coursehub/internal/observability"
	"github.com/geocoder89/coursehub/internal/repo/memory"
	"github.com/geocoder89/coursehub/internal/revocation"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }

func (plainHasher) Compare(h, p string) error {
	if h != "h:"+p {
		return errors.New("mismatch")
	}
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTTTLHours:        1,
		RateLimitPerMinute: 100,
		FilterCacheTTL:     time.Minute,
	}
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	reg := prometheus.NewRegistry()

	return apphttp.NewRouter(apphttp.Deps{
		Config:   cfg,
		Users:    memory.NewUsersRepo(),
		Courses:  memory.NewCoursesRepo(),
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()),
		Denylist: revocation.NewMemoryDenylist(),
		Hasher:   plainHasher{},
		Prom:     observability.NewProm(reg),
		Gatherer: reg,
	})
}

type apiResponse struct {
	status int
	body   map[string]any
	raw    string
}

func (r apiResponse) message() string {
	m, _ := r.body["message"].(string)
	return m
}

func call(t *testing.T, r *gin.Engine, method, path, token, body string) apiResponse {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := apiResponse{status: w.Code, raw: w.Body.String()}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out.body); err != nil {
			t.Fatalf("decode %s %s: %v body=%s", method, path, err, w.Body.String())
		}
	}
	return out
}

func signupAndLogin(t *testing.T, r *gin.Engine, name, role string) string {
	t.Helper()

	body := `{"username":"` + name + `","fullname":"` + name + ` person","email":"` + name + `@example.com","password":"pw","retypePassword":"pw","role":"` + role + `"}`
	if res := call(t, r, http.MethodPost, "/api/v1/signup", "", body); res.status != http.StatusCreated {
		t.Fatalf("signup %s: %d %s", name, res.status, res.raw)
	}

	res := call(t, r, http.MethodPost, "/api/v1/login", "", `{"email":"`+name+`@example.com","password":"pw"}`)
	if res.status != http.StatusOK {
		t.Fatalf("login %s: %d %s", name, res.status, res.raw)
	}

	token, _ := res.body["token"].(string)
	if token == "" {
		t.Fatalf("login %s: no token in %s", name, res.raw)
	}
	return token
}

const courseBody = `{
	"title": "Concurrency in Go",
	"description": "Goroutines, channels and the sync package explained with many small examples.",
	"category": "technology",
	"price": 25,
	"level": "Intermediate",
	"duration": 6,
	"language": ["en"],
	"requirements": ["basic Go"],
	"sections": ["goroutines", "channels"]
}`

func TestRouterAccessControlFlow(t *testing.T) {
	r := setupRouter(t)

	adminToken := signupAndLogin(t, r, "root", "admin")
	teacherToken := signupAndLogin(t, r, "teach", "teacher")
	studentToken := signupAndLogin(t, r, "learner", "student")

	// only one admin
	res := call(t, r, http.MethodPost, "/api/v1/signup", "",
		`{"username":"root2","fullname":"root two","email":"root2@example.com","password":"pw","retypePassword":"pw","role":"admin"}`)
	if res.status != http.StatusForbidden {
		t.Fatalf("second admin: %d %s", res.status, res.raw)
	}

	res = call(t, r, http.MethodGet, "/api/v1/courses", "", "")
	if res.status != http.StatusUnauthorized || res.message() != "Authorization header missing" {
		t.Fatalf("anonymous: %d %s", res.status, res.raw)
	}

	res = call(t, r, http.MethodPost, "/api/v1/create-course", studentToken, courseBody)
	if res.status != http.StatusForbidden || res.message() != "User not authorized to access this resource" {
		t.Fatalf("student create: %d %s", res.status, res.raw)
	}

	res = call(t, r, http.MethodPost, "/api/v1/create-course", teacherToken, courseBody)
	if res.status != http.StatusCreated {
		t.Fatalf("teacher create: %d %s", res.status, res.raw)
	}
	created, _ := res.body["course"].(map[string]any)
	courseID, _ := created["id"].(string)

	res = call(t, r, http.MethodGet, "/api/v1/courses/filter?category=technology&price=20,30", studentToken, "")
	if res.status != http.StatusOK || res.body["count"] != float64(1) {
		t.Fatalf("filter: %d %s", res.status, res.raw)
	}

	res = call(t, r, http.MethodGet, "/api/v1/users", studentToken, "")
	if res.status != http.StatusForbidden {
		t.Fatalf("student users: %d", res.status)
	}

	res = call(t, r, http.MethodGet, "/api/v1/users", adminToken, "")
	if res.status != http.StatusOK || res.body["count"] != float64(3) {
		t.Fatalf("admin users: %d %s", res.status, res.raw)
	}
	if strings.Contains(res.raw, "h:pw") {
		t.Fatalf("password hash leaked: %s", res.raw)
	}

	res = call(t, r, http.MethodDelete, "/api/v1/delete/course/"+courseID, adminToken, "")
	if res.status != http.StatusOK || res.message() != "Course deleted successfully" {
		t.Fatalf("admin delete course: %d %s", res.status, res.raw)
	}

	res = call(t, r, http.MethodDelete, "/api/v1/delete/course/"+courseID, teacherToken, "")
	if res.status != http.StatusNotFound || res.message() != "Course not found" {
		t.Fatalf("delete again: %d %s", res.status, res.raw)
	}

	res = call(t, r, http.MethodPost, "/api/v1/logout", teacherToken, "")
	if res.status != http.StatusOK {
		t.Fatalf("logout: %d %s", res.status, res.raw)
	}

	res = call(t, r, http.MethodGet, "/api/v1/courses", teacherToken, "")
	if res.status != http.StatusUnauthorized || res.message() != "Token revoked" {
		t.Fatalf("after logout: %d %s", res.status, res.raw)
	}
}

func TestRouterGuestCanOnlyRead(t *testing.T) {
	r := setupRouter(t)

	guestToken := signupAndLogin(t, r, "visitor", "guest")

	res := call(t, r, http.MethodGet, "/api/v1/courses", guestToken, "")
	if res.status != http.StatusOK {
		t.Fatalf("guest courses: %d %s", res.status, res.raw)
	}

	res = call(t, r, http.MethodPut, "/api/v1/edit-info", guestToken, `{"fullname":"new name"}`)
	if res.status != http.StatusForbidden || res.message() != "User not authorized to access this resource" {
		t.Fatalf("guest edit-info: %d %s", res.status, res.raw)
	}

	res = call(t, r, http.MethodPost, "/api/v1/logout", guestToken, "")
	if res.status != http.StatusForbidden {
		t.Fatalf("guest logout: %d %s", res.status, res.raw)
	}

	// the token was not revoked by the refused logout
	res = call(t, r, http.MethodGet, "/api/v1/courses", guestToken, "")
	if res.status != http.StatusOK {
		t.Fatalf("guest courses after refused logout: %d %s", res.status, res.raw)
	}
}

func TestRouterOperationalRoutes(t *testing.T) {
	r := setupRouter(t)

	if res := call(t, r, http.MethodGet, "/healthz", "", ""); res.status != http.StatusOK {
		t.Fatalf("healthz: %d", res.status)
	}
	if res := call(t, r, http.MethodGet, "/readyz", "", ""); res.status != http.StatusOK {
		t.Fatalf("readyz: %d", res.status)
	}

	res := call(t, r, http.MethodGet, "/metrics", "", "")
	if res.status != http.StatusOK || !strings.Contains(res.raw, "coursehub_http_requests_total") {
		t.Fatalf("metrics: %d", res.status)
	}

	res = call(t, r, http.MethodGet, "/docs/openapi.yaml", "", "")
	if res.status != http.StatusOK || !strings.Contains(res.raw, "/courses/filter:") {
		t.Fatalf("openapi: %d", res.status)
	}
}
