package model

import "time"

// User represents a student enrolled in the container program.
// Counters are mutated only by the lifecycle engine.
type User struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	Handle      string `gorm:"uniqueIndex;size:64;not null" json:"handle"`
	DisplayName string `gorm:"size:128;not null" json:"displayName"`
	Email       string `gorm:"size:128" json:"email"`

	TotalCheckouts int `gorm:"not null;default:0" json:"totalCheckouts"`
	TotalReturns   int `gorm:"not null;default:0" json:"totalReturns"`
	OnTimeReturns  int `gorm:"not null;default:0" json:"onTimeReturns"`
	LateReturns    int `gorm:"not null;default:0" json:"lateReturns"`
	CurrentStreak  int `gorm:"not null;default:0" json:"currentStreak"`
	LongestStreak  int `gorm:"not null;default:0" json:"longestStreak"`
	// Points may go negative from late penalties.
	Points int `gorm:"not null;default:0" json:"points"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
