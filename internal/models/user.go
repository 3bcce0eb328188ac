// Package models contains the persistent entities and API payloads of the marketplace.
package models

import "time"

// User is a registered marketplace member.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"size:100;not null" json:"full_name"`
	Username     string    `gorm:"size:50;not null;uniqueIndex:ux_users_username_ci,expression:LOWER(username)" json:"username"`
	Email        string    `gorm:"size:254;not null;uniqueIndex:ux_users_email_ci,expression:LOWER(email)" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Phone        *string   `gorm:"size:20" json:"phone,omitempty"`
	City         *string   `gorm:"size:80" json:"city,omitempty"`
	IsVerified   bool      `gorm:"not null;default:false" json:"is_verified"`
	IsBlocked    bool      `gorm:"not null;default:false" json:"is_blocked"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	RegisteredAt time.Time `gorm:"not null;index" json:"registered_at"`
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// AdminUserSummary is the moderation view of a user.
type AdminUserSummary struct {
	ID           uint      `json:"id"`
	FullName     string    `json:"full_name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsVerified   bool      `json:"is_verified"`
	IsBlocked    bool      `json:"is_blocked"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewAdminUserSummary projects a user for the admin console.
func NewAdminUserSummary(u User) AdminUserSummary {
	return AdminUserSummary{
		ID:           u.ID,
		FullName:     u.FullName,
		Username:     u.Username,
		Email:        u.Email,
		IsVerified:   u.IsVerified,
		IsBlocked:    u.IsBlocked,
		RegisteredAt: u.RegisteredAt,
	}
}
