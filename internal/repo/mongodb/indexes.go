package mongodb

import (
	"context"
	"fmt"
	"strings"

	"github.com/geocoder89/coursehub/internal/domain/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Index names double as conflict discriminators: a duplicate key error
// message names the index that rejected the write.
const (
	idxUserEmail    = "users_email_unique"
	idxUserUsername = "users_username_unique"
	idxSingleAdmin  = "users_single_admin"
)

// EnsureIndexes makes the store enforce uniqueness of email, username and the
// single admin, so signup and edit need no racy pre-checks.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(idxUserEmail).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(idxUserUsername).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
			Options: options.Index().
				SetName(idxSingleAdmin).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "role", Value: user.RoleAdmin}}),
		},
	}

	if _, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	courses := []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
	}

	if _, err := db.Collection(CoursesCollection).Indexes().CreateMany(ctx, courses); err != nil {
		return fmt.Errorf("create course indexes: %w", err)
	}

	return nil
}

// userConflict translates a duplicate key error into the domain conflict it
// represents. Other errors are returned unchanged.
func userConflict(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, idxSingleAdmin):
		return user.ErrAdminExists
	case strings.Contains(msg, idxUserEmail):
		return user.ErrEmailTaken
	case strings.Contains(msg, idxUserUsername):
		return user.ErrUsernameTaken
	}

	return err
}
