// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles. Admins may delete or edit content they do not own.
const (
	RoleBasic = "basic"
	RoleAdmin = "admin"
)

// User represents a registered account.
//
// The Gossips/Comments/LikedGossips/LikedComments id sets are maintained
// reference indices (see integrity.Engine); they are stored as rows in the
// authored_refs and liked_refs tables and loaded on demand, not as columns.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FirstName string         `gorm:"not null" json:"first_name"`
	LastName  string         `gorm:"not null" json:"last_name"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Avatar    string         `json:"avatar,omitempty"`
	About     string         `json:"about"`
	Role      string         `gorm:"not null;default:basic" json:"role"`
	Verified  bool           `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Populated by the user repository for profile views.
	Gossips       []uint `gorm:"-" json:"gossips"`
	Comments      []uint `gorm:"-" json:"comments"`
	LikedGossips  []uint `gorm:"-" json:"liked_gossips"`
	LikedComments []uint `gorm:"-" json:"liked_comments"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
