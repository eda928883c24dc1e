// Package lifecycle owns the checkout and container state machines and is
// the only component that mutates more than one entity per action. Every
// operation runs as a single datastore transaction: preconditions are
// validated against locked rows and either all mutations commit or none do.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"greenbox-backend/config"
	"greenbox-backend/internal/model"
	"greenbox-backend/internal/parse"
	"greenbox-backend/internal/points"
	"greenbox-backend/internal/slots"
)

// LoanDuration is the fixed time a container may be kept after its pickup
// slot before the return counts as late.
const LoanDuration = 24 * time.Hour

// Coordinator defines the engine operations exposed to the API layer.
type Coordinator interface {
	Reserve(ctx context.Context, userID int64, locationID string, desiredTime time.Time) (*model.Checkout, error)
	PickUp(ctx context.Context, checkoutID, containerCode string) (*model.Checkout, error)
	Return(ctx context.Context, checkoutID, returnLocation string) (*model.Checkout, error)
	Cancel(ctx context.Context, checkoutID string, requesterID int64) error

	Availability(ctx context.Context, locationID string, day time.Time) ([]slots.Slot, error)
	SetContainerStatus(ctx context.Context, containerCode string, status model.ContainerStatus) (*model.Container, error)

	CheckoutByID(ctx context.Context, id string) (*model.Checkout, error)
	UserByID(ctx context.Context, id int64) (*model.User, error)
	ContainerByCode(ctx context.Context, code string) (*model.Container, error)

	DB() *gorm.DB
}

// gormCoordinator implements Coordinator on a gorm-backed datastore.
type gormCoordinator struct {
	db  *gorm.DB
	cfg *config.Config
	now func() time.Time
}

// NewGormCoordinator creates a coordinator. now may be nil, in which case
// the wall clock is used; tests inject a fixed clock.
func NewGormCoordinator(db *gorm.DB, cfg *config.Config, now func() time.Time) Coordinator {
	if now == nil {
		now = time.Now
	}
	return &gormCoordinator{db: db, cfg: cfg, now: now}
}

// DB exposes the underlying handle for read-only collaborators.
func (c *gormCoordinator) DB() *gorm.DB {
	return c.db
}

// storage wraps an unexpected persistence failure. Domain errors pass
// through untouched so callers can classify with errors.Is.
func storage(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// lockForUpdate applies a row lock on dialects that support it. SQLite has
// a single writer and rejects FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// slotLockKey derives the advisory-lock key for one (location, slot) pair.
func slotLockKey(locationID string, slot time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(locationID))
	return int64(h.Sum64()) ^ slot.Unix()
}

// lockSlot serializes reservations for one slot for the rest of the
// transaction. Under READ COMMITTED a FOR UPDATE lock on the committed
// checkouts cannot block a concurrent insert (and an empty slot has no
// rows to lock at all), so the slot itself is locked. SQLite's single
// writer already serializes whole transactions.
func lockSlot(tx *gorm.DB, locationID string, slot time.Time) error {
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", slotLockKey(locationID, slot)).Error
}

// Reserve books a pickup slot and creates a checkout in reserved state.
// Slot occupancy is check-and-incremented inside the transaction so two
// requests cannot both take the last unit of capacity.
func (c *gormCoordinator) Reserve(ctx context.Context, userID int64, locationID string, desiredTime time.Time) (*model.Checkout, error) {
	loc, ok := c.cfg.LocationByID(locationID)
	if !ok || loc.Disabled {
		return nil, ErrInvalidLocation
	}

	slotStart, err := slots.SlotFor(loc, desiredTime)
	if err != nil {
		return nil, err
	}

	var checkout *model.Checkout
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", userID, ErrNotFound)
			}
			return storage(err)
		}

		var active int64
		if err := tx.Model(&model.Checkout{}).
			Where("user_id = ? AND status IN ?", userID, model.ActiveCheckoutStatuses).
			Count(&active).Error; err != nil {
			return storage(err)
		}
		if active > 0 {
			return ErrAlreadyActive
		}

		if err := lockSlot(tx, loc.ID, slotStart); err != nil {
			return storage(err)
		}

		var committed []model.Checkout
		if err := tx.
			Where("pickup_location = ? AND pickup_time_slot = ? AND status IN ?",
				loc.ID, slotStart, model.ActiveCheckoutStatuses).
			Find(&committed).Error; err != nil {
			return storage(err)
		}

		if len(committed) >= slots.Capacity(loc) {
			return ErrCapacityExceeded
		}
		perZone := make([]int, loc.Zones)
		for _, b := range committed {
			if b.PickupZone >= 0 && b.PickupZone < loc.Zones {
				perZone[b.PickupZone]++
			}
		}
		zone, ok := slots.PickZone(perZone, len(committed), loc.ZoneCapacity)
		if !ok {
			return ErrCapacityExceeded
		}

		checkout = &model.Checkout{
			ID:                 uuid.NewString(),
			UserID:             userID,
			PickupLocation:     loc.ID,
			PickupZone:         zone,
			PickupTimeSlot:     slotStart,
			ExpectedReturnDate: slotStart.Add(LoanDuration),
			Status:             model.CheckoutReserved,
		}
		if err := tx.Create(checkout).Error; err != nil {
			return storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return checkout, nil
}

// PickUp binds an available container to a reserved checkout. The
// container row is check-and-flipped inside the transaction; of two
// concurrent pickups of the same container the loser gets
// ErrContainerUnavailable.
func (c *gormCoordinator) PickUp(ctx context.Context, checkoutID, containerCode string) (*model.Checkout, error) {
	if _, err := parse.ParseCode(containerCode); err != nil {
		return nil, fmt.Errorf("container %q: %w", containerCode, ErrNotFound)
	}

	var checkout model.Checkout
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&checkout, "id = ?", checkoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storage(err)
		}
		if !checkout.Status.CanTransitionTo(model.CheckoutPickedUp) {
			return ErrNotReserved
		}

		var container model.Container
		if err := lockForUpdate(tx).First(&container, "code = ?", containerCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("container %q: %w", containerCode, ErrNotFound)
			}
			return storage(err)
		}
		if container.Status != model.ContainerAvailable {
			return ErrContainerUnavailable
		}

		var user model.User
		if err := lockForUpdate(tx).First(&user, checkout.UserID).Error; err != nil {
			return storage(err)
		}

		now := c.now()
		checkout.Status = model.CheckoutPickedUp
		checkout.ActualPickupTime = &now
		checkout.ContainerID = &container.ID

		container.Status = model.ContainerCheckedOut
		container.TotalUses++
		container.CurrentLocation = checkout.PickupLocation

		user.TotalCheckouts++

		if err := tx.Save(&checkout).Error; err != nil {
			return storage(err)
		}
		if err := tx.Save(&container).Error; err != nil {
			return storage(err)
		}
		if err := tx.Save(&user).Error; err != nil {
			return storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

// Return closes a picked_up checkout, routes the container to washing and
// applies the points and streak deltas to the user. Lateness is computed
// here, against the injected clock; nothing expires checkouts in the
// background.
func (c *gormCoordinator) Return(ctx context.Context, checkoutID, returnLocation string) (*model.Checkout, error) {
	if returnLocation != "" {
		if loc, ok := c.cfg.LocationByID(returnLocation); !ok || loc.Disabled {
			return nil, ErrInvalidLocation
		}
	}

	var checkout model.Checkout
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&checkout, "id = ?", checkoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storage(err)
		}
		if !checkout.Status.CanTransitionTo(model.CheckoutReturned) {
			return ErrNotPickedUp
		}

		var container model.Container
		if err := lockForUpdate(tx).First(&container, *checkout.ContainerID).Error; err != nil {
			return storage(err)
		}

		var user model.User
		if err := lockForUpdate(tx).First(&user, checkout.UserID).Error; err != nil {
			return storage(err)
		}

		now := c.now()
		outcome := points.ForReturn(checkout.ExpectedReturnDate, now)

		checkout.Status = model.CheckoutReturned
		checkout.ActualReturnDate = &now
		checkout.IsLate = outcome.Late
		checkout.ReturnLocation = returnLocation
		if checkout.ReturnLocation == "" {
			checkout.ReturnLocation = checkout.PickupLocation
		}

		container.Status = model.ContainerWashing
		container.CurrentLocation = checkout.ReturnLocation

		user.TotalReturns++
		if outcome.Late {
			user.LateReturns++
		} else {
			user.OnTimeReturns++
		}
		user.CurrentStreak, user.LongestStreak = points.NextStreak(user.CurrentStreak, user.LongestStreak, outcome.Late)
		user.Points += outcome.Points

		if err := tx.Save(&checkout).Error; err != nil {
			return storage(err)
		}
		if err := tx.Save(&container).Error; err != nil {
			return storage(err)
		}
		if err := tx.Save(&user).Error; err != nil {
			return storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

// Cancel voids a reserved checkout and releases its slot capacity unit.
// Only the owner may cancel, and only before pickup.
func (c *gormCoordinator) Cancel(ctx context.Context, checkoutID string, requesterID int64) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var checkout model.Checkout
		if err := lockForUpdate(tx).First(&checkout, "id = ?", checkoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storage(err)
		}
		if checkout.UserID != requesterID {
			return ErrForbidden
		}
		if !checkout.Status.CanTransitionTo(model.CheckoutCancelled) {
			return ErrNotReserved
		}

		// Occupancy is derived from active checkouts, so flipping the
		// status releases the capacity unit in the same write.
		checkout.Status = model.CheckoutCancelled
		if err := tx.Save(&checkout).Error; err != nil {
			return storage(err)
		}
		return nil
	})
}

// Availability lists the day's pickup slots for a location, annotated with
// remaining capacity. Read-only; repeated calls without an intervening
// mutation return identical results.
func (c *gormCoordinator) Availability(ctx context.Context, locationID string, day time.Time) ([]slots.Slot, error) {
	loc, ok := c.cfg.LocationByID(locationID)
	if !ok || loc.Disabled {
		return nil, ErrInvalidLocation
	}

	open, close, err := slots.Window(loc, day)
	if err != nil {
		return nil, err
	}

	var booked []model.Checkout
	if err := c.db.WithContext(ctx).
		Where("pickup_location = ? AND status IN ? AND pickup_time_slot >= ? AND pickup_time_slot < ?",
			loc.ID, model.ActiveCheckoutStatuses, open.UTC(), close.UTC()).
		Find(&booked).Error; err != nil {
		return nil, storage(err)
	}

	committed := make(map[int64]int, len(booked))
	for _, b := range booked {
		committed[b.PickupTimeSlot.Unix()]++
	}
	return slots.Grid(loc, day, committed)
}

// SetContainerStatus is the administrative status-set used by facility
// staff (container washed, pulled for maintenance, back in service). The
// checkout flow never calls this.
func (c *gormCoordinator) SetContainerStatus(ctx context.Context, containerCode string, status model.ContainerStatus) (*model.Container, error) {
	// checked_out is entered only through pickup, never set by staff.
	if status == model.ContainerCheckedOut {
		return nil, fmt.Errorf("%w: %s is not an administrative status", ErrInvalidTransition, status)
	}

	var container model.Container
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&container, "code = ?", containerCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storage(err)
		}
		if !container.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, container.Status, status)
		}

		if container.Status == model.ContainerWashing && status == model.ContainerAvailable {
			washed := c.now()
			container.LastWashDate = &washed
		}
		container.Status = status

		if err := tx.Save(&container).Error; err != nil {
			return storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &container, nil
}

// CheckoutByID fetches a single checkout.
func (c *gormCoordinator) CheckoutByID(ctx context.Context, id string) (*model.Checkout, error) {
	var checkout model.Checkout
	if err := c.db.WithContext(ctx).First(&checkout, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storage(err)
	}
	return &checkout, nil
}

// UserByID fetches a single user with counters.
func (c *gormCoordinator) UserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := c.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storage(err)
	}
	return &user, nil
}

// ContainerByCode fetches a single container.
func (c *gormCoordinator) ContainerByCode(ctx context.Context, code string) (*model.Container, error) {
	var container model.Container
	if err := c.db.WithContext(ctx).First(&container, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storage(err)
	}
	return &container, nil
}
