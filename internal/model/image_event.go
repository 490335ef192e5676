package model

import "time"

const (
	ImageEventUploaded = "image.uploaded"
	ImageEventDeleted  = "image.deleted"
)

type ImageEvent struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	EventID    string    `gorm:"size:36;not null;uniqueIndex" json:"event_id"`
	Type       string    `gorm:"size:32;not null;index" json:"type"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	ImageID    uint      `gorm:"not null" json:"image_id"`
	Size       int64     `json:"size"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time `json:"-"`
}
