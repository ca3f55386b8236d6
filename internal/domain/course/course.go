package course

import (
	"time"

	"github.com/openlearnhq/campdir/internal/domain/bootcamp"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Course struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Weeks       int                `bson:"weeks,omitempty" json:"weeks,omitempty"`
	Tuition     float64            `bson:"tuition" json:"tuition"`
	Bootcamp    primitive.ObjectID `bson:"bootcamp" json:"bootcamp"`
	User        primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`

	// Filled in when the bootcamp relation is populated; never stored.
	BootcampInfo *bootcamp.Summary `bson:"-" json:"bootcampInfo,omitempty"`
}

type CreateRequest struct {
	Title       string `json:"title" binding:"required,min=2,max=120"`
	Description string `json:"description" binding:"required,max=1000"`
	Weeks       int    `json:"weeks" binding:"omitempty,min=1,max=520"`
	// Pointer so a free course passes required: 0 is a legitimate tuition.
	Tuition *float64 `json:"tuition" binding:"required,min=0"`
}

type UpdateRequest struct {
	Title       *string  `json:"title" binding:"omitempty,min=2,max=120"`
	Description *string  `json:"description" binding:"omitempty,max=1000"`
	Weeks       *int     `json:"weeks" binding:"omitempty,min=1,max=520"`
	Tuition     *float64 `json:"tuition" binding:"omitempty,min=0"`
}
