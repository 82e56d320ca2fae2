package course

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("course not found")

var Categories = []string{
	"sport", "technology", "cooking", "business", "finance", "design",
	"marketing", "lifestyle", "health", "music", "other",
}

var Levels = []string{"Beginner", "Intermediate", "Advanced"}

var Languages = []string{"en", "fr", "gr", "es", "it", "id", "jp", "ch", "rs"}

var PaymentMethods = []string{"usdt", "credit card", "paypal", "bank transfer"}

const (
	DefaultCategory      = "other"
	DefaultPaymentMethod = "paypal"
)

type Course struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Author        string    `json:"author"`
	Price         float64   `json:"price"`
	PaymentMethod string    `json:"paymentMethod"`
	Level         string    `json:"level"`
	Duration      int       `json:"duration"`
	Language      []string  `json:"language"`
	Requirements  []string  `json:"requirements"`
	Sections      []string  `json:"sections"`
	IsPublished   bool      `json:"isPublished"`
	CouponCodes   []string  `json:"couponCodes"`
	Reviews       int       `json:"reviews"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UpsertRequest is the body of both create and edit. Author is accepted so
// that clients sending it are not rejected, but it is always overwritten.
type UpsertRequest struct {
	Title         string   `json:"title" binding:"required,max=100"`
	Description   string   `json:"description" binding:"required,min=50,max=300"`
	Category      string   `json:"category" binding:"omitempty,oneof=sport technology cooking business finance design marketing lifestyle health music other"`
	Author        string   `json:"author"`
	Price         *float64 `json:"price" binding:"required,gte=0"`
	PaymentMethod string   `json:"paymentMethod" binding:"omitempty,oneof=usdt 'credit card' paypal 'bank transfer'"`
	Level         string   `json:"level" binding:"required,oneof=Beginner Intermediate Advanced"`
	Duration      int      `json:"duration" binding:"required,min=1"`
	Language      []string `json:"language" binding:"required,min=1,dive,oneof=en fr gr es it id jp ch rs"`
	Requirements  []string `json:"requirements" binding:"required,min=1,dive,required"`
	Sections      []string `json:"sections" binding:"required,min=2,dive,required"`
	IsPublished   bool     `json:"isPublished"`
	CouponCodes   []string `json:"couponCodes" binding:"omitempty,dive,min=3,max=15"`
}

// Normalize applies schema defaults and casing before validation.
func (r *UpsertRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	if r.Category == "" {
		r.Category = DefaultCategory
	}

	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))
	if r.PaymentMethod == "" {
		r.PaymentMethod = DefaultPaymentMethod
	}

	seen := make(map[string]struct{}, len(r.Language))
	langs := make([]string, 0, len(r.Language))
	for _, l := range r.Language {
		l = strings.ToLower(strings.TrimSpace(l))
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		langs = append(langs, l)
	}
	r.Language = langs
}

// NewFromRequest builds a course owned by authorID; any author in the body is ignored.
func NewFromRequest(req UpsertRequest, authorID string) Course {
	now := time.Now().UTC()

	c := Course{
		Author:    authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.Apply(req)

	return c
}

// Apply copies the editable fields from req. Author, reviews and timestamps stay.
func (c *Course) Apply(req UpsertRequest) {
	c.Title = req.Title
	c.Description = req.Description
	c.Category = req.Category
	if req.Price != nil {
		c.Price = *req.Price
	}
	c.PaymentMethod = req.PaymentMethod
	c.Level = req.Level
	c.Duration = req.Duration
	c.Language = req.Language
	c.Requirements = req.Requirements
	c.Sections = req.Sections
	c.IsPublished = req.IsPublished
	c.CouponCodes = req.CouponCodes
	if c.CouponCodes == nil {
		c.CouponCodes = []string{}
	}
}
