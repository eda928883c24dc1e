// Package slots computes pickup-slot availability and zone assignment as
// pure functions of location configuration and committed reservation
// counts. Persisted occupancy is owned by the lifecycle engine; this
// package only does the grid arithmetic.
package slots

import (
	"errors"
	"fmt"
	"time"

	"greenbox-backend/config"
)

// ErrOutOfHours marks a request for a pickup time outside the location's
// operating hours.
var ErrOutOfHours = errors.New("requested time is outside operating hours")

// Slot is one bookable pickup window. Full slots are still listed but
// marked unselectable; windows outside operating hours are omitted
// entirely.
type Slot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Available  int       `json:"available"`
	Total      int       `json:"total"`
	Selectable bool      `json:"selectable"`
}

// Capacity is the total number of reservations a single slot accepts,
// across all zones.
func Capacity(loc config.Location) int {
	return loc.Zones * loc.ZoneCapacity
}

// AssignZone spreads consecutive bookings for one slot across the
// location's zones in round-robin order. It is a pure function of the
// committed count so concurrent callers inside a transaction see a stable
// assignment.
func AssignZone(committed, zones int) int {
	if zones <= 0 {
		return 0
	}
	return committed % zones
}

// PickZone chooses the pickup zone for the next booking of a slot given
// the per-zone occupancy. The rotation starts at the round-robin zone and
// advances past zones already at capacity; cancellations can leave the
// rotation index pointing at a full zone while another has room. The
// second return is false only when every zone is full.
func PickZone(perZone []int, committed, zoneCapacity int) (int, bool) {
	zones := len(perZone)
	if zones == 0 {
		return 0, false
	}
	start := AssignZone(committed, zones)
	for i := 0; i < zones; i++ {
		zone := (start + i) % zones
		if perZone[zone] < zoneCapacity {
			return zone, true
		}
	}
	return 0, false
}

// Window computes the concrete opening window for the day containing t,
// in the location's timezone.
func Window(loc config.Location, t time.Time) (time.Time, time.Time, error) {
	tz, err := time.LoadLocation(loc.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("location %s has invalid timezone %q: %w", loc.ID, loc.Timezone, err)
	}

	day := t.In(tz)
	open, err := atClock(day, loc.Open, tz)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("location %s has invalid open time: %w", loc.ID, err)
	}
	close, err := atClock(day, loc.Close, tz)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("location %s has invalid close time: %w", loc.ID, err)
	}
	if !close.After(open) {
		return time.Time{}, time.Time{}, fmt.Errorf("location %s closes before it opens", loc.ID)
	}
	return open, close, nil
}

func atClock(day time.Time, clock string, tz *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, tz), nil
}

// SlotFor discretizes a desired pickup time to the start of its slot, in
// UTC. Times outside operating hours, including a final partial window that
// would run past closing, yield ErrOutOfHours.
func SlotFor(loc config.Location, desired time.Time) (time.Time, error) {
	open, close, err := Window(loc, desired)
	if err != nil {
		return time.Time{}, err
	}

	if desired.Before(open) || !desired.Before(close) {
		return time.Time{}, ErrOutOfHours
	}

	slotDur := time.Duration(loc.SlotMinutes) * time.Minute
	offset := desired.Sub(open)
	start := open.Add(offset - offset%slotDur)
	if start.Add(slotDur).After(close) {
		return time.Time{}, ErrOutOfHours
	}
	return start.UTC(), nil
}

// Grid builds the availability grid for the day containing day. committed
// maps slot-start unix seconds to the number of reservations already
// holding a unit of that slot's capacity.
func Grid(loc config.Location, day time.Time, committed map[int64]int) ([]Slot, error) {
	open, close, err := Window(loc, day)
	if err != nil {
		return nil, err
	}

	slotDur := time.Duration(loc.SlotMinutes) * time.Minute
	total := Capacity(loc)

	var grid []Slot
	for start := open; !start.Add(slotDur).After(close); start = start.Add(slotDur) {
		available := total - committed[start.Unix()]
		if available < 0 {
			available = 0
		}
		grid = append(grid, Slot{
			Start:      start.UTC(),
			End:        start.Add(slotDur).UTC(),
			Available:  available,
			Total:      total,
			Selectable: available > 0,
		})
	}
	return grid, nil
}
