package model

import "time"

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:64;not null" json:"name"`
	Email           string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash    string    `gorm:"size:255;not null" json:"-"`
	PhotosUploaded  int       `gorm:"not null;default:0" json:"photos_uploaded"`
	PhotosRemaining int       `gorm:"not null;default:0" json:"photos_remaining"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Quota is the pair of complementary upload counters kept on a user row.
type Quota struct {
	Uploaded  int `json:"photos_uploaded"`
	Remaining int `json:"photos_remaining"`
}
