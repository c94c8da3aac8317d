package model

import "time"

type Notification struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string     `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	Type      string     `json:"type" bson:"type" validate:"required,max=64"`
	Title     string     `json:"title" bson:"title" validate:"required,max=200"`
	Body      string     `json:"body,omitempty" bson:"body,omitempty" validate:"max=2000"`
	Link      string     `json:"link,omitempty" bson:"link,omitempty" validate:"max=500"`
	Read      bool       `json:"read" bson:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}

type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int64
}
