package user

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleGuest   = "guest"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent, RoleGuest}

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already in use")
	ErrUsernameTaken = errors.New("username already in use")
	ErrAdminExists   = errors.New("an admin already exists")
	ErrInvalidID     = errors.New("invalid user id")
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Fullname     string    `json:"fullname"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type SignUpRequest struct {
	Username       string `json:"username" binding:"required,min=3,max=20"`
	Fullname       string `json:"fullname" binding:"required,min=3,max=20"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
	RetypePassword string `json:"retypePassword" binding:"required"`
	Role           string `json:"role" binding:"required,oneof=admin teacher student guest"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// EditRequest is a partial update; nil means "leave as is".
type EditRequest struct {
	Username       *string `json:"username" binding:"omitempty,min=3,max=20"`
	Fullname       *string `json:"fullname" binding:"omitempty,min=3,max=20"`
	Email          *string `json:"email" binding:"omitempty,email"`
	Password       *string `json:"password" binding:"omitempty,min=1"`
	RetypePassword *string `json:"retypePassword"`
}

// Changes is what the store applies on an edit.
type Changes struct {
	Username     *string
	Fullname     *string
	Email        *string
	PasswordHash *string
}

func (c Changes) Empty() bool {
	return c.Username == nil && c.Fullname == nil && c.Email == nil && c.PasswordHash == nil
}

// Normalize trims and lowercases identifiers that must compare case-insensitively.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *SignUpRequest) Normalize() {
	r.Username = Normalize(r.Username)
	r.Email = Normalize(r.Email)
	r.Fullname = strings.TrimSpace(r.Fullname)
	r.Role = Normalize(r.Role)
}

func NewFromSignUp(req SignUpRequest, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		Username:     req.Username,
		Fullname:     req.Fullname,
		Email:        req.Email,
		Role:         req.Role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Normalize drops blank fields so that they count as absent.
func (r *EditRequest) Normalize() {
	r.Username = trimmedOrNil(r.Username, Normalize)
	r.Email = trimmedOrNil(r.Email, Normalize)
	r.Fullname = trimmedOrNil(r.Fullname, strings.TrimSpace)
	r.Password = trimmedOrNil(r.Password, func(s string) string { return s })
	r.RetypePassword = trimmedOrNil(r.RetypePassword, func(s string) string { return s })
}

func trimmedOrNil(p *string, fn func(string) string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := fn(*p)
	return &v
}
