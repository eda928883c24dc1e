package model

import (
	"fmt"
	"time"
)

// ContainerStatus is the closed set of physical container states.
type ContainerStatus string

const (
	ContainerAvailable   ContainerStatus = "available"
	ContainerCheckedOut  ContainerStatus = "checked_out"
	ContainerWashing     ContainerStatus = "washing"
	ContainerMaintenance ContainerStatus = "maintenance"
)

// ParseContainerStatus validates a raw status string against the closed set.
// Free-form status strings are rejected.
func ParseContainerStatus(raw string) (ContainerStatus, error) {
	switch s := ContainerStatus(raw); s {
	case ContainerAvailable, ContainerCheckedOut, ContainerWashing, ContainerMaintenance:
		return s, nil
	}
	return "", fmt.Errorf("unrecognized container status: %q", raw)
}

// CanTransitionTo reports whether moving from s to next is a legal
// physical-state transition.
func (s ContainerStatus) CanTransitionTo(next ContainerStatus) bool {
	switch s {
	case ContainerAvailable:
		return next == ContainerCheckedOut || next == ContainerMaintenance
	case ContainerCheckedOut:
		return next == ContainerWashing
	case ContainerWashing:
		return next == ContainerAvailable || next == ContainerMaintenance
	case ContainerMaintenance:
		return next == ContainerAvailable
	}
	return false
}

// Container represents one physical reusable container.
type Container struct {
	ID int64 `gorm:"primaryKey" json:"id"`
	// Code is the human-readable identifier printed on the lid, e.g. DU-2026-001.
	Code string `gorm:"uniqueIndex;size:32;not null" json:"code"`
	// Tag is the RFID/QR tag identity.
	Tag             string          `gorm:"uniqueIndex;size:64;not null" json:"tag"`
	Status          ContainerStatus `gorm:"size:20;not null;default:'available'" json:"status"`
	TotalUses       int             `gorm:"not null;default:0" json:"totalUses"`
	CurrentLocation string          `gorm:"size:64" json:"currentLocation"`
	LastWashDate    *time.Time      `json:"lastWashDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
