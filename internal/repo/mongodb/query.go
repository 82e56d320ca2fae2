package mongodb

import (
	"github.com/geocoder89/coursehub/internal/domain/course"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// filterDocument translates a parsed course filter into a find/count filter.
// One value means equality, several mean $in.
func filterDocument(f course.Filter) bson.M {
	q := bson.M{}

	if v, ok := matchStrings(f.Categories); ok {
		q["category"] = v
	}

	if v, ok := matchStrings(f.Levels); ok {
		q["level"] = v
	}

	if len(f.Authors) > 0 {
		ids := make([]primitive.ObjectID, 0, len(f.Authors))
		for _, a := range f.Authors {
			oid, err := primitive.ObjectIDFromHex(a)
			if err != nil {
				continue
			}
			ids = append(ids, oid)
		}

		// an author filter made only of malformed ids matches nothing
		switch len(ids) {
		case 1:
			q["author"] = ids[0]
		default:
			q["author"] = bson.M{"$in": ids}
		}
	}

	if p := f.Price; p != nil {
		switch {
		case p.Exact != nil:
			q["price"] = *p.Exact
		case p.Min != nil && p.Max != nil:
			q["price"] = bson.M{"$gte": *p.Min, "$lte": *p.Max}
		}
	}

	return q
}

func matchStrings(values []string) (interface{}, bool) {
	switch len(values) {
	case 0:
		return nil, false
	case 1:
		return values[0], true
	default:
		return bson.M{"$in": values}, true
	}
}

// sortDocument orders by the requested field with _id as tiebreaker so that
// page windows do not overlap when the field has duplicates.
func sortDocument(f course.Filter) bson.D {
	dir := 1
	if f.SortDesc {
		dir = -1
	}

	field := f.SortField
	if field == "" {
		field = "createdAt"
	}

	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}
