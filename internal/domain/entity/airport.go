package entity

import (
	"time"

	"gorm.io/gorm"
)

// Airport is reference data used to enrich legs that arrive without city
// names.
type Airport struct {
	ID        uint
	Code      string
	Name      string
	CityName  string
	Country   string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}
