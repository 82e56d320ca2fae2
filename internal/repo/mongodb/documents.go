package mongodb

import (
	"context"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/course"
	"github.com/geocoder89/coursehub/internal/domain/user"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UsersCollection   = "users"
	CoursesCollection = "courses"
)

// Observer wraps a logical store operation; *observability.Prom implements it.
type Observer interface {
	ObserveDB(ctx context.Context, op string, fn func(ctx context.Context) error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func observerOrNoop(obs Observer) Observer {
	if obs == nil {
		return noopObserver{}
	}
	return obs
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Fullname  string             `bson:"fullname"`
	Email     string             `bson:"email"`
	Role      string             `bson:"role"`
	Password  string             `bson:"password,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d userDoc) toDomain() user.User {
	return user.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Fullname:     d.Fullname,
		Email:        d.Email,
		Role:         d.Role,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func userDocFrom(u user.User) userDoc {
	return userDoc{
		Username:  u.Username,
		Fullname:  u.Fullname,
		Email:     u.Email,
		Role:      u.Role,
		Password:  u.PasswordHash,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type courseDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Title         string             `bson:"title"`
	Description   string             `bson:"description"`
	Category      string             `bson:"category"`
	Author        primitive.ObjectID `bson:"author"`
	Price         float64            `bson:"price"`
	PaymentMethod string             `bson:"paymentMethod"`
	Level         string             `bson:"level"`
	Duration      int                `bson:"duration"`
	Language      []string           `bson:"language"`
	Requirements  []string           `bson:"requirements"`
	Sections      []string           `bson:"sections"`
	IsPublished   bool               `bson:"isPublished"`
	CouponCodes   []string           `bson:"couponCodes"`
	Reviews       int                `bson:"reviews"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func (d courseDoc) toDomain() course.Course {
	return course.Course{
		ID:            d.ID.Hex(),
		Title:         d.Title,
		Description:   d.Description,
		Category:      d.Category,
		Author:        d.Author.Hex(),
		Price:         d.Price,
		PaymentMethod: d.PaymentMethod,
		Level:         d.Level,
		Duration:      d.Duration,
		Language:      nonNil(d.Language),
		Requirements:  nonNil(d.Requirements),
		Sections:      nonNil(d.Sections),
		IsPublished:   d.IsPublished,
		CouponCodes:   nonNil(d.CouponCodes),
		Reviews:       d.Reviews,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func courseDocFrom(c course.Course, author primitive.ObjectID) courseDoc {
	return courseDoc{
		Title:         c.Title,
		Description:   c.Description,
		Category:      c.Category,
		Author:        author,
		Price:         c.Price,
		PaymentMethod: c.PaymentMethod,
		Level:         c.Level,
		Duration:      c.Duration,
		Language:      nonNil(c.Language),
		Requirements:  nonNil(c.Requirements),
		Sections:      nonNil(c.Sections),
		IsPublished:   c.IsPublished,
		CouponCodes:   nonNil(c.CouponCodes),
		Reviews:       c.Reviews,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
