package model

import "time"

// Image holds either the payload itself (inline storage) or the key of the
// object that carries it (object storage). Exactly one of the two is set.
type Image struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	ImageData   []byte    `json:"image_data,omitempty"`
	ObjectKey   string    `gorm:"size:128;index" json:"-"`
	Size        int64     `gorm:"not null" json:"size"`
	ContentType string    `gorm:"size:64;not null" json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
