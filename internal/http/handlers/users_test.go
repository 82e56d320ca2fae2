package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/coursehub/internal/auth"
	"github.com/geocoder89/coursehub/internal/domain/user"
	"github.com/geocoder89/coursehub/internal/http/handlers"
	"github.com/geocoder89/coursehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake implementations of the handler interfaces

type fakeUserStore struct {
	createFn     func(ctx context.Context, u user.User) (user.User, error)
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	getByIDFn    func(ctx context.Context, id string) (user.User, error)
	updateFn     func(ctx context.Context, id string, ch user.Changes) (user.User, error)
	deleteFn     func(ctx context.Context, id string) error
	deleteAllFn  func(ctx context.Context) (int64, error)
	listFn       func(ctx context.Context) ([]user.User, error)

	writes int
}

func (f *fakeUserStore) Create(ctx context.Context, u user.User) (user.User, error) {
	f.writes++
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	u.ID = primitive.NewObjectID().Hex()
	return u, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{ID: id}, nil
}

func (f *fakeUserStore) Update(ctx context.Context, id string, ch user.Changes) (user.User, error) {
	f.writes++
	if f.updateFn != nil {
		return f.updateFn(ctx, id, ch)
	}
	return user.User{ID: id}, nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id string) error {
	f.writes++
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeUserStore) DeleteAll(ctx context.Context) (int64, error) {
	f.writes++
	if f.deleteAllFn != nil {
		return f.deleteAllFn(ctx)
	}
	return 0, nil
}

func (f *fakeUserStore) List(ctx context.Context) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

type fakeAuthoredCourses struct {
	byAuthor  []string
	removed   int64
	deleteAll int
	err       error
}

func (f *fakeAuthoredCourses) DeleteByAuthor(_ context.Context, authorID string) (int64, error) {
	f.byAuthor = append(f.byAuthor, authorID)
	if f.err != nil {
		return 0, f.err
	}
	return f.removed, nil
}

func (f *fakeAuthoredCourses) DeleteAll(context.Context) (int64, error) {
	f.deleteAll++
	return f.removed, nil
}

// plainHasher keeps tests fast; bcrypt is covered in the security package.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "hashed:"+p {
		return errors.New("mismatch")
	}
	return nil
}

type fakeRevoker struct {
	jti   string
	until time.Time
	err   error
}

func (f *fakeRevoker) Revoke(_ context.Context, jti string, until time.Time) error {
	f.jti, f.until = jti, until
	return f.err
}

type countingInvalidator struct {
	cleared int
}

func (c *countingInvalidator) Clear() { c.cleared++ }

type usersFixture struct {
	store   *fakeUserStore
	courses *fakeAuthoredCourses
	revoker *fakeRevoker
	cache   *countingInvalidator
	tokens  *auth.Manager
	h       *handlers.UsersHandler
}

func newUsersFixture(store *fakeUserStore) *usersFixture {
	f := &usersFixture{
		store:   store,
		courses: &fakeAuthoredCourses{},
		revoker: &fakeRevoker{},
		cache:   &countingInvalidator{},
		tokens:  auth.NewManager("test-secret", 24*time.Hour),
	}

	f.h = handlers.NewUsersHandler(handlers.UsersHandlerDeps{
		Users:       f.store,
		Courses:     f.courses,
		Hasher:      plainHasher{},
		Tokens:      f.tokens,
		Revoker:     f.revoker,
		CourseCache: f.cache,
	})

	return f
}

// withIdentity fakes what RequireAuth leaves on the context.
func withIdentity(userID, role, jti string, exp time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUserID, userID)
		c.Set(middlewares.CtxRole, role)
		c.Set(middlewares.CtxTokenID, jti)
		c.Set(middlewares.CtxTokenExpiry, exp)
		c.Next()
	}
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body %q: %v", w.Body.String(), err)
	}
	return body.Message
}

const signupBody = `{"username":"Alice","fullname":"Alice L","email":"Alice@Example.com","password":"pw","retypePassword":"pw","role":"student"}`

func TestSignUpHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
		wantMsg    string
		wantWrites int
	}{
		{
			name:       "missing fields",
			body:       `{"username":"alice"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Validation failed",
		},
		{
			name:       "username too short",
			body:       strings.Replace(signupBody, `"Alice"`, `"Al"`, 1),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Validation failed",
		},
		{
			name:       "unknown role",
			body:       strings.Replace(signupBody, `"student"`, `"owner"`, 1),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Validation failed",
		},
		{
			name:       "passwords differ",
			body:       strings.Replace(signupBody, `"retypePassword":"pw"`, `"retypePassword":"other"`, 1),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Passwords do not match",
		},
		{
			name:       "admin already exists",
			body:       strings.Replace(signupBody, `"student"`, `"admin"`, 1),
			createErr:  user.ErrAdminExists,
			wantStatus: http.StatusForbidden,
			wantMsg:    "An admin already exists",
			wantWrites: 1,
		},
		{
			name:       "email taken",
			body:       signupBody,
			createErr:  user.ErrEmailTaken,
			wantStatus: http.StatusConflict,
			wantMsg:    "Email already in use",
			wantWrites: 1,
		},
		{
			name:       "username taken",
			body:       signupBody,
			createErr:  user.ErrUsernameTaken,
			wantStatus: http.StatusConflict,
			wantMsg:    "Username already in use",
			wantWrites: 1,
		},
		{
			name:       "store failure",
			body:       signupBody,
			createErr:  errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Could not create user",
			wantWrites: 1,
		},
		{
			name:       "created",
			body:       signupBody,
			wantStatus: http.StatusCreated,
			wantMsg:    "User created successfully",
			wantWrites: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stored user.User
			store := &fakeUserStore{
				createFn: func(_ context.Context, u user.User) (user.User, error) {
					stored = u
					if tt.createErr != nil {
						return user.User{}, tt.createErr
					}
					u.ID = primitive.NewObjectID().Hex()
					return u, nil
				},
			}
			fx := newUsersFixture(store)

			r := gin.New()
			r.POST("/signup", fx.h.SignUp)

			w := doJSON(r, http.MethodPost, "/signup", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("status: got %d want %d body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := messageOf(t, w); got != tt.wantMsg {
				t.Fatalf("message: got %q want %q", got, tt.wantMsg)
			}
			if store.writes != tt.wantWrites {
				t.Fatalf("writes: got %d want %d", store.writes, tt.wantWrites)
			}

			if tt.wantStatus == http.StatusCreated {
				if stored.Email != "alice@example.com" || stored.Username != "alice" {
					t.Fatalf("identity not normalized: %+v", stored)
				}
				if stored.PasswordHash != "hashed:pw" {
					t.Fatalf("password not hashed: %q", stored.PasswordHash)
				}
				if strings.Contains(w.Body.String(), "hashed:") {
					t.Fatalf("response leaks the hash: %s", w.Body.String())
				}
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	existing := user.User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     "alice",
		Email:        "alice@example.com",
		Role:         user.RoleTeacher,
		PasswordHash: "hashed:pw",
	}

	store := &fakeUserStore{
		getByEmailFn: func(_ context.Context, email string) (user.User, error) {
			if email == existing.Email {
				return existing, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "missing password", body: `{"email":"alice@example.com"}`, wantStatus: http.StatusBadRequest, wantMsg: "Validation failed"},
		{name: "unknown email", body: `{"email":"bob@example.com","password":"pw"}`, wantStatus: http.StatusNotFound, wantMsg: "User not found"},
		{name: "wrong password", body: `{"email":"alice@example.com","password":"nope"}`, wantStatus: http.StatusUnauthorized, wantMsg: "Wrong password, try again"},
		{name: "ok with mixed case email", body: `{"email":" Alice@Example.COM ","password":"pw"}`, wantStatus: http.StatusOK, wantMsg: "Login successful"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newUsersFixture(store)

			r := gin.New()
			r.POST("/login", fx.h.Login)

			w := doJSON(r, http.MethodPost, "/login", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("status: got %d want %d body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := messageOf(t, w); got != tt.wantMsg {
				t.Fatalf("message: got %q want %q", got, tt.wantMsg)
			}

			if tt.wantStatus != http.StatusOK {
				return
			}

			var body struct {
				Token string `json:"token"`
				User  struct {
					ID string `json:"id"`
				} `json:"user"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}

			claims, err := fx.tokens.VerifyAccessToken(body.Token)
			if err != nil {
				t.Fatalf("token should verify: %v", err)
			}
			if claims.UserID != existing.ID || claims.Role != existing.Role {
				t.Fatalf("claims mismatch: %+v", claims)
			}
			if body.User.ID != existing.ID {
				t.Fatalf("user mismatch: %+v", body.User)
			}

			cookies := w.Result().Cookies()
			if len(cookies) != 1 || cookies[0].Name != "token" || cookies[0].Value != body.Token || !cookies[0].HttpOnly {
				t.Fatalf("token cookie missing or wrong: %+v", cookies)
			}
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	t.Run("revokes the token", func(t *testing.T) {
		fx := newUsersFixture(&fakeUserStore{})

		r := gin.New()
		r.POST("/logout", withIdentity("u1", user.RoleStudent, "jti-1", exp), fx.h.Logout)

		w := doJSON(r, http.MethodPost, "/logout", "")

		if w.Code != http.StatusOK {
			t.Fatalf("status: got %d body=%s", w.Code, w.Body.String())
		}
		if fx.revoker.jti != "jti-1" || !fx.revoker.until.Equal(exp) {
			t.Fatalf("revoked %q until %v", fx.revoker.jti, fx.revoker.until)
		}

		cookies := w.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != "token" || cookies[0].MaxAge >= 0 {
			t.Fatalf("cookie should be cleared: %+v", cookies)
		}
	})

	t.Run("denylist failure", func(t *testing.T) {
		fx := newUsersFixture(&fakeUserStore{})
		fx.revoker.err = errors.New("redis down")

		r := gin.New()
		r.POST("/logout", withIdentity("u1", user.RoleStudent, "jti-1", exp), fx.h.Logout)

		w := doJSON(r, http.MethodPost, "/logout", "")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status: got %d", w.Code)
		}
	})
}

func TestEditInfoHandler(t *testing.T) {
	validID := primitive.NewObjectID().Hex()

	tests := []struct {
		name       string
		userID     string
		body       string
		updateErr  error
		wantStatus int
		wantMsg    string
		wantWrites int
	}{
		{name: "invalid id", userID: "nope", body: `{"fullname":"New Name"}`, wantStatus: http.StatusBadRequest, wantMsg: "Invalid user id"},
		{name: "no fields", userID: validID, body: `{}`, wantStatus: http.StatusBadRequest, wantMsg: "No fields to update"},
		{name: "blank fields only", userID: validID, body: `{"username":"  ","email":""}`, wantStatus: http.StatusBadRequest, wantMsg: "No fields to update"},
		{name: "short username", userID: validID, body: `{"username":"ab"}`, wantStatus: http.StatusBadRequest, wantMsg: "Validation failed"},
		{name: "bad email", userID: validID, body: `{"email":"not-an-email"}`, wantStatus: http.StatusBadRequest, wantMsg: "Validation failed"},
		{name: "password without retype", userID: validID, body: `{"password":"new"}`, wantStatus: http.StatusBadRequest, wantMsg: "Passwords do not match"},
		{name: "username taken", userID: validID, body: `{"username":"bobby"}`, updateErr: user.ErrUsernameTaken, wantStatus: http.StatusConflict, wantMsg: "Username already in use", wantWrites: 1},
		{name: "email taken", userID: validID, body: `{"email":"b@example.com"}`, updateErr: user.ErrEmailTaken, wantStatus: http.StatusConflict, wantMsg: "Email already in use", wantWrites: 1},
		{name: "gone", userID: validID, body: `{"fullname":"New Name"}`, updateErr: user.ErrNotFound, wantStatus: http.StatusNotFound, wantMsg: "User not found", wantWrites: 1},
		{name: "updated", userID: validID, body: `{"fullname":"New Name","password":"x","retypePassword":"x"}`, wantStatus: http.StatusOK, wantMsg: "User updated successfully", wantWrites: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got user.Changes
			store := &fakeUserStore{
				updateFn: func(_ context.Context, id string, ch user.Changes) (user.User, error) {
					got = ch
					if tt.updateErr != nil {
						return user.User{}, tt.updateErr
					}
					return user.User{ID: id}, nil
				},
			}
			fx := newUsersFixture(store)

			r := gin.New()
			r.PUT("/edit-info", withIdentity(tt.userID, user.RoleStudent, "j", time.Now().Add(time.Hour)), fx.h.EditInfo)

			req := httptest.NewRequest(http.MethodPut, "/edit-info", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status: got %d want %d body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if msg := messageOf(t, w); msg != tt.wantMsg {
				t.Fatalf("message: got %q want %q", msg, tt.wantMsg)
			}
			if store.writes != tt.wantWrites {
				t.Fatalf("writes: got %d want %d", store.writes, tt.wantWrites)
			}

			if tt.wantStatus == http.StatusOK {
				if got.Fullname == nil || *got.Fullname != "New Name" {
					t.Fatalf("fullname not applied: %+v", got)
				}
				if got.PasswordHash == nil || *got.PasswordHash != "hashed:x" {
					t.Fatalf("password not hashed: %+v", got)
				}
				if got.Username != nil || got.Email != nil {
					t.Fatalf("absent fields should stay nil: %+v", got)
				}
			}
		})
	}
}

func TestListUsersHandler(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		fx := newUsersFixture(&fakeUserStore{})

		r := gin.New()
		r.GET("/users", fx.h.ListUsers)

		w := doJSON(r, http.MethodGet, "/users", "")
		if w.Code != http.StatusNotFound || messageOf(t, w) != "No users found" {
			t.Fatalf("got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("some", func(t *testing.T) {
		fx := newUsersFixture(&fakeUserStore{
			listFn: func(context.Context) ([]user.User, error) {
				return []user.User{{ID: "1", PasswordHash: "secret"}, {ID: "2"}}, nil
			},
		})

		r := gin.New()
		r.GET("/users", fx.h.ListUsers)

		w := doJSON(r, http.MethodGet, "/users", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status: got %d", w.Code)
		}

		var body struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Count != 2 {
			t.Fatalf("count: got %d", body.Count)
		}
		if strings.Contains(w.Body.String(), "secret") {
			t.Fatalf("hash leaked: %s", w.Body.String())
		}
	})
}

func TestDeleteUserHandler(t *testing.T) {
	validID := primitive.NewObjectID().Hex()

	tests := []struct {
		name        string
		id          string
		getErr      error
		cascadeErr  error
		wantStatus  int
		wantCascade bool
		wantDeleted bool
	}{
		{name: "invalid id", id: "123", wantStatus: http.StatusBadRequest},
		{name: "missing", id: validID, getErr: user.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "deleted", id: validID, wantStatus: http.StatusOK, wantCascade: true, wantDeleted: true},
		{name: "cascade fails", id: validID, cascadeErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var deleted []string
			fx := newUsersFixture(&fakeUserStore{
				getByIDFn: func(_ context.Context, id string) (user.User, error) {
					return user.User{ID: id}, tt.getErr
				},
				deleteFn: func(_ context.Context, id string) error {
					deleted = append(deleted, id)
					return nil
				},
			})
			fx.courses.removed = 3
			fx.courses.err = tt.cascadeErr

			r := gin.New()
			r.DELETE("/delete/:id", fx.h.DeleteUser)

			w := doJSON(r, http.MethodDelete, "/delete/"+tt.id, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status: got %d want %d", w.Code, tt.wantStatus)
			}

			cascaded := len(fx.courses.byAuthor) == 1 && fx.courses.byAuthor[0] == tt.id && tt.cascadeErr == nil
			if cascaded != tt.wantCascade {
				t.Fatalf("cascade: got %v want %v", cascaded, tt.wantCascade)
			}
			if got := len(deleted) == 1; got != tt.wantDeleted {
				t.Fatalf("user deleted: got %v want %v", got, tt.wantDeleted)
			}
			if tt.wantCascade && fx.cache.cleared != 1 {
				t.Fatalf("course cache should be cleared")
			}
		})
	}
}

func TestDeleteAllUsersHandler(t *testing.T) {
	fx := newUsersFixture(&fakeUserStore{
		deleteAllFn: func(context.Context) (int64, error) { return 4, nil },
	})
	fx.courses.removed = 7

	r := gin.New()
	r.DELETE("/delete-all", fx.h.DeleteAllUsers)

	w := doJSON(r, http.MethodDelete, "/delete-all", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}

	var body struct {
		DeletedCount   int64 `json:"deletedCount"`
		CoursesDeleted int64 `json:"coursesDeleted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.DeletedCount != 4 || body.CoursesDeleted != 7 || fx.courses.deleteAll != 1 {
		t.Fatalf("unexpected result: %+v", body)
	}
}
