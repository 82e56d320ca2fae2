package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UsersRepo struct {
	coll *mongo.Collection
	obs  Observer
}

func NewUsersRepo(db *mongo.Database, obs Observer) *UsersRepo {
	return &UsersRepo{
		coll: db.Collection(UsersCollection),
		obs:  observerOrNoop(obs),
	}
}

// Create inserts u in a single write. Conflicts come back as
// user.ErrAdminExists, user.ErrEmailTaken or user.ErrUsernameTaken.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	doc := userDocFrom(u)

	err := r.obs.ObserveDB(ctx, "users.create", func(ctx context.Context) error {
		res, err := r.coll.InsertOne(ctx, doc)
		if err != nil {
			return err
		}

		oid, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
		}
		doc.ID = oid
		return nil
	})

	if err != nil {
		return user.User{}, r.rankConflict(ctx, u, userConflict(err))
	}

	return doc.toDomain(), nil
}

// rankConflict applies signup precedence on top of whichever index the
// server happened to reject first: a second admin, then email, then username.
func (r *UsersRepo) rankConflict(ctx context.Context, u user.User, err error) error {
	if !errors.Is(err, user.ErrEmailTaken) && !errors.Is(err, user.ErrUsernameTaken) {
		return err
	}

	if u.Role == user.RoleAdmin {
		if n, cerr := r.count(ctx, "users.count_admins", bson.M{"role": user.RoleAdmin}); cerr == nil && n > 0 {
			return user.ErrAdminExists
		}
	}

	if errors.Is(err, user.ErrUsernameTaken) {
		if n, cerr := r.count(ctx, "users.count_email", bson.M{"email": u.Email}); cerr == nil && n > 0 {
			return user.ErrEmailTaken
		}
	}

	return err
}

func (r *UsersRepo) count(ctx context.Context, op string, filter bson.M) (int64, error) {
	var n int64

	err := r.obs.ObserveDB(ctx, op, func(ctx context.Context) error {
		var err error
		n, err = r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		return err
	})

	return n, err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email", bson.M{"email": email})
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return user.User{}, user.ErrInvalidID
	}

	return r.findOne(ctx, "users.get_by_id", bson.M{"_id": oid})
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M) (user.User, error) {
	var doc userDoc

	err := r.obs.ObserveDB(ctx, op, func(ctx context.Context) error {
		return r.coll.FindOne(ctx, filter).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return doc.toDomain(), nil
}

// Update applies ch and returns the stored result.
func (r *UsersRepo) Update(ctx context.Context, id string, ch user.Changes) (user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return user.User{}, user.ErrInvalidID
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if ch.Username != nil {
		set["username"] = *ch.Username
	}
	if ch.Fullname != nil {
		set["fullname"] = *ch.Fullname
	}
	if ch.Email != nil {
		set["email"] = *ch.Email
	}
	if ch.PasswordHash != nil {
		set["password"] = *ch.PasswordHash
	}

	var doc userDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	err = r.obs.ObserveDB(ctx, "users.update", func(ctx context.Context) error {
		return r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, userConflict(err)
	}

	return doc.toDomain(), nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return user.ErrInvalidID
	}

	var deleted int64
	err = r.obs.ObserveDB(ctx, "users.delete", func(ctx context.Context) error {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})

	if err != nil {
		return err
	}

	// if nothing was deleted the id never resolved
	if deleted == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (r *UsersRepo) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64

	err := r.obs.ObserveDB(ctx, "users.delete_all", func(ctx context.Context) error {
		res, err := r.coll.DeleteMany(ctx, bson.M{})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})

	return deleted, err
}

// List returns every user without password hashes.
func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	opts := options.Find().
		SetProjection(bson.M{"password": 0}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	out := make([]user.User, 0)

	err := r.obs.ObserveDB(ctx, "users.list", func(ctx context.Context) error {
		cur, err := r.coll.Find(ctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var doc userDoc
			if err := cur.Decode(&doc); err != nil {
				return err
			}
			out = append(out, doc.toDomain())
		}
		return cur.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}
