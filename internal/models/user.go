// Package models defines the persisted entities.
package models

import "time"

// User is a bot user with tier and quota state.
type User struct {
	UserID       int64  `gorm:"primaryKey"`
	Username     string `gorm:"size:64"`
	IsVIP        bool   `gorm:"column:is_vip;default:false"`
	IsOwner      bool   `gorm:"default:false"`
	MessageCount int64  `gorm:"default:0"`
	CreatedAt    time.Time
}

// Privileged reports whether the user is exempt from the daily quota.
func (u *User) Privileged() bool {
	return u.IsOwner || u.IsVIP
}

// TableName overrides the gorm default.
func (User) TableName() string {
	return "users"
}
