package entity

import (
	"time"
)

// BoardingPass is an opaque binary attachment owned by whichever trip
// currently holds the slot it was uploaded for.
type BoardingPass struct {
	ID          string    `bson:"_id,omitempty"`
	UserID      string    `bson:"userId"`
	TripID      string    `bson:"tripId"`
	Slot        LegSlot   `bson:"slot"`
	Filename    string    `bson:"filename"`
	ContentType string    `bson:"contentType"`
	Data        []byte    `bson:"data"`
	UploadedAt  time.Time `bson:"uploadedAt"`
}
