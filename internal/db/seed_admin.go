package db

import (
	"context"
	"errors"

	"github.com/geocoder89/coursehub/internal/config"
	"github.com/geocoder89/coursehub/internal/domain/user"
	"github.com/geocoder89/coursehub/internal/security"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the configured admin once. An existing admin, even
// one with a different email, leaves the store untouched.
func EnsureAdminUser(ctx context.Context, store AdminStore, hasher security.Hasher, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := user.Normalize(cfg.AdminEmail)

	// check if the user exists
	_, err := store.GetByEmail(ctx, email)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := hasher.Hash(cfg.AdminPassword)

	if err != nil {
		return err
	}

	u := user.NewFromSignUp(user.SignUpRequest{
		Username: user.Normalize(cfg.AdminUsername),
		Fullname: cfg.AdminFullname,
		Email:    email,
		Role:     user.RoleAdmin,
	}, hash)

	_, err = store.Create(ctx, u)

	switch {
	case errors.Is(err, user.ErrAdminExists), errors.Is(err, user.ErrEmailTaken):
		return nil
	default:
		return err
	}
}
