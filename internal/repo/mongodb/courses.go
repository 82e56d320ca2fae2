package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/course"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

type CoursesRepo struct {
	coll *mongo.Collection
	obs  Observer
}

func NewCoursesRepo(db *mongo.Database, obs Observer) *CoursesRepo {
	return &CoursesRepo{
		coll: db.Collection(CoursesCollection),
		obs:  observerOrNoop(obs),
	}
}

func (r *CoursesRepo) Create(ctx context.Context, c course.Course) (course.Course, error) {
	author, err := primitive.ObjectIDFromHex(c.Author)
	if err != nil {
		return course.Course{}, fmt.Errorf("invalid author id %q: %w", c.Author, err)
	}

	doc := courseDocFrom(c, author)

	err = r.obs.ObserveDB(ctx, "courses.create", func(ctx context.Context) error {
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
		return course.Course{}, err
	}

	return doc.toDomain(), nil
}

func (r *CoursesRepo) GetByID(ctx context.Context, id string) (course.Course, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// a malformed id cannot resolve to anything
		return course.Course{}, course.ErrNotFound
	}

	var doc courseDoc

	err = r.obs.ObserveDB(ctx, "courses.get_by_id", func(ctx context.Context) error {
		return r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, err
	}

	return doc.toDomain(), nil
}

// Update overwrites the editable fields; author, reviews and createdAt stay.
func (r *CoursesRepo) Update(ctx context.Context, id string, req course.UpsertRequest) (course.Course, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return course.Course{}, course.ErrNotFound
	}

	var patch course.Course
	patch.Apply(req)

	set := bson.M{
		"title":         patch.Title,
		"description":   patch.Description,
		"category":      patch.Category,
		"price":         patch.Price,
		"paymentMethod": patch.PaymentMethod,
		"level":         patch.Level,
		"duration":      patch.Duration,
		"language":      nonNil(patch.Language),
		"requirements":  nonNil(patch.Requirements),
		"sections":      nonNil(patch.Sections),
		"isPublished":   patch.IsPublished,
		"couponCodes":   nonNil(patch.CouponCodes),
		"updatedAt":     time.Now().UTC(),
	}

	var doc courseDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	err = r.obs.ObserveDB(ctx, "courses.update", func(ctx context.Context) error {
		return r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, err
	}

	return doc.toDomain(), nil
}

func (r *CoursesRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return course.ErrNotFound
	}

	n, err := r.deleteMany(ctx, "courses.delete", bson.M{"_id": oid})
	if err != nil {
		return err
	}

	if n == 0 {
		return course.ErrNotFound
	}

	return nil
}

func (r *CoursesRepo) DeleteAll(ctx context.Context) (int64, error) {
	return r.deleteMany(ctx, "courses.delete_all", bson.M{})
}

// DeleteByAuthor removes the courses of a user who is going away.
func (r *CoursesRepo) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return 0, nil
	}

	return r.deleteMany(ctx, "courses.delete_by_author", bson.M{"author": oid})
}

func (r *CoursesRepo) deleteMany(ctx context.Context, op string, filter bson.M) (int64, error) {
	var deleted int64

	err := r.obs.ObserveDB(ctx, op, func(ctx context.Context) error {
		res, err := r.coll.DeleteMany(ctx, filter)
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})

	return deleted, err
}

func (r *CoursesRepo) List(ctx context.Context) ([]course.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	return r.find(ctx, "courses.list", bson.M{}, opts)
}

// Filter returns one page of matching courses and the total match count.
// Count and page fetch are independent and run concurrently.
func (r *CoursesRepo) Filter(ctx context.Context, f course.Filter) ([]course.Course, int64, error) {
	query := filterDocument(f)

	opts := options.Find().
		SetSort(sortDocument(f)).
		SetSkip(f.Skip()).
		SetLimit(int64(f.Limit))

	var (
		page  []course.Course
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.obs.ObserveDB(gctx, "courses.count", func(ctx context.Context) error {
			n, err := r.coll.CountDocuments(ctx, query)
			total = n
			return err
		})
	})

	g.Go(func() error {
		var err error
		page, err = r.find(gctx, "courses.filter", query, opts)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return page, total, nil
}

func (r *CoursesRepo) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]course.Course, error) {
	out := make([]course.Course, 0)

	err := r.obs.ObserveDB(ctx, op, func(ctx context.Context) error {
		cur, err := r.coll.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var doc courseDoc
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
