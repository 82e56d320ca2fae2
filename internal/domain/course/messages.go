package course

import "strings"

// FieldMessage maps a failed validation rule to the message clients see.
// field is the JSON path (e.g. "language[1]"), rule the validator tag.
func (r *UpsertRequest) FieldMessage(field, rule, param string) (string, bool) {
	name, _, _ := strings.Cut(field, "[")

	switch name {
	case "title":
		if rule == "max" {
			return "Title cannot exceed 100 characters", true
		}
		return "Title is required", true
	case "description":
		return "Description must be between 50-300 characters", true
	case "category":
		return "Invalid category", true
	case "price":
		if rule == "gte" {
			return "Price cannot be negative", true
		}
		return "Price must be a number", true
	case "paymentMethod":
		return "Invalid payment method", true
	case "level":
		return "Invalid level", true
	case "duration":
		return "Duration must be at least 1", true
	case "language":
		if name != field {
			return "Invalid language code", true
		}
		return "At least one language is required", true
	case "requirements":
		if name != field {
			return "Requirements cannot contain empty entries", true
		}
		return "At least one requirement is required", true
	case "sections":
		if name != field {
			return "Sections cannot contain empty entries", true
		}
		return "At least two sections are required", true
	case "couponCodes":
		return "Coupon codes must be between 3-15 characters", true
	}

	return "", false
}
