package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User is an account that can sign in
type User struct {
	BaseModel
	Username     string `json:"username" gorm:"type:varchar(150);uniqueIndex;not null"`
	Email        string `json:"email" gorm:"type:varchar(254)"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	ProfileImage string `json:"profile_image"`
	PasswordHash string `json:"-" gorm:"not null"`
}

// RefreshToken tracks an issued refresh credential by its JWT ID so it can be
// rotated and revoked. The ID is the token's jti.
type RefreshToken struct {
	BaseModel
	UserID    string     `gorm:"type:varchar(26);index;not null"`
	ExpiresAt time.Time  `gorm:"not null"`
	RevokedAt *time.Time `gorm:"index"`
}

// Active reports whether the token can still be exchanged
func (r *RefreshToken) Active(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}

// Post is a piece of content created through the authenticated API
type Post struct {
	BaseModel
	OwnerID string `json:"owner_id" gorm:"type:varchar(26);index;not null"`
	Owner   User   `json:"-" gorm:"foreignKey:OwnerID"`
	Title   string `json:"title" gorm:"not null"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Post{},
	)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
