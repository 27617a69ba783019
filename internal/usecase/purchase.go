package usecase

import (
	"time"
)

// earlierPurchaseDate picks the earlier of two optional purchase dates.
func earlierPurchaseDate(a, b *time.Time) *time.Time {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	case b.Before(*a):
		v := *b
		return &v
	default:
		v := *a
		return &v
	}
}
