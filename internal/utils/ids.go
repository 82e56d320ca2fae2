package utils

import "go.mongodb.org/mongo-driver/bson/primitive"

// IsObjectID reports whether s is a 24 hex character document id.
func IsObjectID(s string) bool {
	return primitive.IsValidObjectID(s)
}
