package model

import "time"

// CheckoutStatus is the closed set of loan-record states.
type CheckoutStatus string

const (
	CheckoutReserved  CheckoutStatus = "reserved"
	CheckoutPickedUp  CheckoutStatus = "picked_up"
	CheckoutReturned  CheckoutStatus = "returned"
	CheckoutCancelled CheckoutStatus = "cancelled"
)

// ActiveCheckoutStatuses are the states that count as an open loan. A user
// may hold at most one checkout in these states.
var ActiveCheckoutStatuses = []CheckoutStatus{CheckoutReserved, CheckoutPickedUp}

// CanTransitionTo reports whether moving from s to next is legal. The
// machine is forward-only: reserved → picked_up → returned, with
// reserved → cancelled as the only side exit.
func (s CheckoutStatus) CanTransitionTo(next CheckoutStatus) bool {
	switch s {
	case CheckoutReserved:
		return next == CheckoutPickedUp || next == CheckoutCancelled
	case CheckoutPickedUp:
		return next == CheckoutReturned
	}
	return false
}

// Checkout is a single loan record spanning reservation through return or
// cancellation.
type Checkout struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID int64  `gorm:"index;not null" json:"userId"`
	// ContainerID stays nil until pickup binds a physical container.
	ContainerID *int64 `gorm:"index" json:"containerId,omitempty"`

	PickupLocation string    `gorm:"size:64;not null" json:"pickupLocation"`
	PickupZone     int       `gorm:"not null" json:"pickupZone"`
	PickupTimeSlot time.Time `gorm:"index;not null" json:"pickupTimeSlot"`

	ExpectedReturnDate time.Time  `gorm:"not null" json:"expectedReturnDate"`
	ActualPickupTime   *time.Time `json:"actualPickupTime,omitempty"`
	ActualReturnDate   *time.Time `json:"actualReturnDate,omitempty"`
	ReturnLocation     string     `gorm:"size:64" json:"returnLocation,omitempty"`

	Status CheckoutStatus `gorm:"index;size:20;not null" json:"status"`
	IsLate bool           `gorm:"not null;default:false" json:"isLate"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Associations
	User      User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Container *Container `json:"-"`
}
