// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// Role distinguishes students from wellness staff.
type Role string

const (
	// RoleStudent is the default role for self-registered accounts.
	RoleStudent Role = "student"
	// RoleWellnessTeam grants staff capabilities: reviewing bookings,
	// moderating posts and managing events and library content.
	RoleWellnessTeam Role = "wellness_team"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleWellnessTeam
}

// User represents a MindBridge account.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	FirstName   string    `gorm:"size:150" json:"first_name"`
	LastName    string    `gorm:"size:150" json:"last_name"`
	Role        Role      `gorm:"type:varchar(20);not null;default:'student';index" json:"role"`
	PhoneNumber string    `gorm:"size:20" json:"phone_number"`
	StudentID   *string   `gorm:"size:50;uniqueIndex" json:"student_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// IsWellnessTeam reports whether the user holds the staff role.
func (u *User) IsWellnessTeam() bool {
	return u != nil && u.Role == RoleWellnessTeam
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// DisplayName is the short name used in greetings.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
