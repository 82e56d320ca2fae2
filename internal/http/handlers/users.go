package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/user"
	"github.com/geocoder89/coursehub/internal/http/middlewares"
	"github.com/geocoder89/coursehub/internal/security"
	"github.com/geocoder89/coursehub/internal/utils"
	"github.com/gin-gonic/gin"
)

const tokenCookieName = "token"

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, ch user.Changes) (user.User, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]user.User, error)
}

// AuthoredCourses is the part of the course store that user deletion needs.
type AuthoredCourses interface {
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID, role string) (string, error)
	TTL() time.Duration
}

type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
}

// Invalidator drops cached course reads after a write.
type Invalidator interface {
	Clear()
}

type UsersHandler struct {
	users        UserStore
	courses      AuthoredCourses
	hasher       security.Hasher
	tokens       TokenIssuer
	revoker      TokenRevoker
	courseCache  Invalidator
	secureCookie bool
}

type UsersHandlerDeps struct {
	Users        UserStore
	Courses      AuthoredCourses
	Hasher       security.Hasher
	Tokens       TokenIssuer
	Revoker      TokenRevoker
	CourseCache  Invalidator
	SecureCookie bool
}

func NewUsersHandler(d UsersHandlerDeps) *UsersHandler {
	h := &UsersHandler{
		users:        d.Users,
		courses:      d.Courses,
		hasher:       d.Hasher,
		tokens:       d.Tokens,
		revoker:      d.Revoker,
		courseCache:  d.CourseCache,
		secureCookie: d.SecureCookie,
	}
	if h.hasher == nil {
		h.hasher = security.BcryptHasher{}
	}
	return h
}

func opContext(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

func (h *UsersHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Password != req.RetypePassword {
		RespondBadRequest(ctx, "Passwords do not match", nil)
		return
	}

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user", err)
		return
	}

	cctx, cancel := opContext(ctx, 3*time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, user.NewFromSignUp(req, hash))

	if err != nil {
		switch {
		case errors.Is(err, user.ErrAdminExists):
			RespondForbidden(ctx, "admin_exists", "An admin already exists")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email already in use")
		case errors.Is(err, user.ErrUsernameTaken):
			RespondConflict(ctx, "username_taken", "Username already in use")
		default:
			RespondInternal(ctx, "Could not create user", err)
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    u,
	})
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := opContext(ctx, 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, user.Normalize(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not log in", err)
		return
	}

	if err := h.hasher.Compare(foundUser.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, "invalid_credentials", "Wrong password, try again")
		return
	}

	token, err := h.tokens.GenerateAccessToken(foundUser.ID, foundUser.Role)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	h.setTokenCookie(ctx, token, int(h.tokens.TTL().Seconds()))

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    foundUser,
		"token":   token,
	})
}

// Logout denies the presented token until it would have expired anyway.
func (h *UsersHandler) Logout(ctx *gin.Context) {
	jti, ok := middlewares.TokenIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "invalid_token", "Invalid token")
		return
	}

	until, ok := middlewares.TokenExpiryFromContext(ctx)
	if !ok || until.IsZero() {
		until = time.Now().Add(h.tokens.TTL())
	}

	cctx, cancel := opContext(ctx, 2*time.Second)
	defer cancel()

	if err := h.revoker.Revoke(cctx, jti, until); err != nil {
		RespondInternal(ctx, "Could not log out", err)
		return
	}

	h.setTokenCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *UsersHandler) EditInfo(ctx *gin.Context) {
	id, _ := middlewares.UserIDFromContext(ctx)
	if !utils.IsObjectID(id) {
		RespondBadRequest(ctx, "Invalid user id", nil)
		return
	}

	var req user.EditRequest

	if !BindJSON(ctx, &req) {
		return
	}

	ch := user.Changes{
		Username: req.Username,
		Fullname: req.Fullname,
		Email:    req.Email,
	}

	if req.Password != nil {
		if req.RetypePassword == nil || *req.RetypePassword != *req.Password {
			RespondBadRequest(ctx, "Passwords do not match", nil)
			return
		}

		hash, err := h.hasher.Hash(*req.Password)
		if err != nil {
			RespondInternal(ctx, "Could not update user", err)
			return
		}
		ch.PasswordHash = &hash
	}

	if ch.Empty() {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	cctx, cancel := opContext(ctx, 3*time.Second)
	defer cancel()

	updated, err := h.users.Update(cctx, id, ch)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrInvalidID):
			RespondBadRequest(ctx, "Invalid user id", nil)
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email already in use")
		case errors.Is(err, user.ErrUsernameTaken):
			RespondConflict(ctx, "username_taken", "Username already in use")
		default:
			RespondInternal(ctx, "Could not update user", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    updated,
	})
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := opContext(ctx, 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list users", err)
		return
	}

	if len(users) == 0 {
		RespondNotFound(ctx, "No users found")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Users fetched successfully",
		"users":   users,
		"count":   len(users),
	})
}

// DeleteUser removes every course the user authored and then the user, so a
// failed cascade leaves no course pointing at a missing author.
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsObjectID(id) {
		RespondBadRequest(ctx, "Invalid user id", nil)
		return
	}

	cctx, cancel := opContext(ctx, 5*time.Second)
	defer cancel()

	if _, err := h.users.GetByID(cctx, id); err != nil {
		respondDeleteUserError(ctx, err)
		return
	}

	removed, err := h.courses.DeleteByAuthor(cctx, id)
	if err != nil {
		RespondInternal(ctx, "Could not delete the user's courses", err)
		return
	}
	if removed > 0 {
		h.invalidateCourses()
	}

	if err := h.users.Delete(cctx, id); err != nil {
		respondDeleteUserError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":        "User deleted successfully",
		"coursesDeleted": removed,
	})
}

func respondDeleteUserError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrInvalidID):
		RespondBadRequest(ctx, "Invalid user id", nil)
	default:
		RespondInternal(ctx, "Could not delete user", err)
	}
}

func (h *UsersHandler) DeleteAllUsers(ctx *gin.Context) {
	cctx, cancel := opContext(ctx, 10*time.Second)
	defer cancel()

	// courses go first so none is left without an author
	removed, err := h.courses.DeleteAll(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not delete courses", err)
		return
	}
	h.invalidateCourses()

	deleted, err := h.users.DeleteAll(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not delete users", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":        "All users deleted successfully",
		"deletedCount":   deleted,
		"coursesDeleted": removed,
	})
}

func (h *UsersHandler) invalidateCourses() {
	if h.courseCache != nil {
		h.courseCache.Clear()
	}
}

func (h *UsersHandler) setTokenCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		tokenCookieName,
		value,
		maxAge,
		"/",
		"",
		h.secureCookie,
		true, // HttpOnly.
	)
}
