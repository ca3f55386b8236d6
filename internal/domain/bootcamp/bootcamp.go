package bootcamp

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is a GeoJSON point plus the address parts the geocoder resolved.
type Location struct {
	Type             string    `bson:"type" json:"type"`
	Coordinates      []float64 `bson:"coordinates" json:"coordinates"` // [lng, lat]
	FormattedAddress string    `bson:"formattedAddress,omitempty" json:"formattedAddress,omitempty"`
	City             string    `bson:"city,omitempty" json:"city,omitempty"`
	Zipcode          string    `bson:"zipcode,omitempty" json:"zipcode,omitempty"`
}

type Bootcamp struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Website       string             `bson:"website,omitempty" json:"website,omitempty"`
	Location      *Location          `bson:"location,omitempty" json:"location,omitempty"`
	Photo         string             `bson:"photo,omitempty" json:"photo,omitempty"`
	AverageRating *float64           `bson:"averageRating,omitempty" json:"averageRating,omitempty"`
	User          primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// Summary is the slice of a bootcamp inlined into populated responses.
type Summary struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
}

type CreateRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=50"`
	Description string `json:"description" binding:"required,max=500"`
	Website     string `json:"website" binding:"omitempty,url"`
	Address     string `json:"address" binding:"required"`
}

// Partial update; nil fields are left untouched.
type UpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=50"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Website     *string `json:"website" binding:"omitempty,url"`
	Address     *string `json:"address"`
}
