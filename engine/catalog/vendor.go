package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
)

const (
	VendorOpen   = "open"
	VendorClosed = "closed"
)

// Vendor is a street food vendor sighting.
type Vendor struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"                 validate:"required"`
	Type       string    `json:"type"                 validate:"required"`
	Location   string    `json:"location"             validate:"required"`
	Hours      string    `json:"hours"                validate:"required,hours"`
	Menu       string    `json:"menu,omitempty"`
	ReportedAt time.Time `json:"reportedAt"`
}

var hoursPattern = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*(AM|PM)\s*-\s*(\d{1,2})(?::(\d{2}))?\s*(AM|PM)$`)

// ParseHours reads "11 AM - 3 PM" style opening hours into fractional hours
// of the day.
func ParseHours(hours string) (start, end float64, err error) {
	m := hoursPattern.FindStringSubmatch(strings.TrimSpace(hours))
	if m == nil {
		return 0, 0, fmt.Errorf("hours must look like '11 AM - 3 PM', got %q", hours)
	}
	if start, err = clockHour(m[1], m[2], m[3]); err != nil {
		return 0, 0, err
	}
	if end, err = clockHour(m[4], m[5], m[6]); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func clockHour(h, mins, meridiem string) (float64, error) {
	hour, _ := strconv.Atoi(h)
	if hour < 1 || hour > 12 {
		return 0, fmt.Errorf("hour %d is out of range", hour)
	}
	minute := 0
	if mins != "" {
		minute, _ = strconv.Atoi(mins)
		if minute > 59 {
			return 0, fmt.Errorf("minute %d is out of range", minute)
		}
	}
	pm := strings.EqualFold(meridiem, "PM")
	switch {
	case pm && hour < 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}
	return float64(hour) + float64(minute)/60, nil
}

// IsOpen reports whether hours cover the wall-clock time of at, bounds
// included. Hours ending before they start run past midnight.
func IsOpen(hours string, at time.Time) bool {
	start, end, err := ParseHours(hours)
	if err != nil {
		return false
	}
	now := float64(at.Hour()) + float64(at.Minute())/60
	if end < start {
		return now >= start || now <= end
	}
	return now >= start && now <= end
}

// VendorStatus is "open" or "closed" for the vendor at the given time.
func VendorStatus(v Vendor, at time.Time) string {
	if IsOpen(v.Hours, at) {
		return VendorOpen
	}
	return VendorClosed
}

func VendorSchema(clock func() time.Time) *query.Schema[Vendor] {
	if clock == nil {
		clock = time.Now
	}
	return query.MustSchema(func(v Vendor) string { return v.ID },
		query.StringField("type", query.RoleFilter, func(v Vendor) string { return v.Type }),
		query.StringField("status", query.RoleFilter, func(v Vendor) string { return VendorStatus(v, clock()) }),
		query.StringField("name", query.RoleSearch, func(v Vendor) string { return v.Name }),
		query.StringField("location", query.RoleSearch, func(v Vendor) string { return v.Location }),
		query.TimeField("reportedAt", query.RoleSort, func(v Vendor) time.Time { return v.ReportedAt }),
	)
}

func SeedVendors(now time.Time) []Vendor {
	return []Vendor{
		{
			ID:         seedID("vendors", 1),
			Name:       "Maria's Tacos",
			Type:       "tacos",
			Location:   "5th St & Broadway",
			Hours:      "11 AM - 3 PM",
			Menu:       "Carne asada, al pastor",
			ReportedAt: now,
		},
		{
			ID:         seedID("vendors", 2),
			Name:       "Burger Bus",
			Type:       "burgers",
			Location:   "Central Park West",
			Hours:      "10 AM - 5 PM",
			Menu:       "Cheeseburger, fries",
			ReportedAt: now.Add(-time.Hour),
		},
	}
}

const VendorSlot = "streetFoodVendors"

var vendorKind = Kind{
	Name:    "vendors",
	Slot:    VendorSlot,
	Columns: []string{"id", "name", "type", "location", "hours", "reportedAt"},
	open: func(ctx context.Context, deps Deps) (List, error) {
		return openLocal(ctx, deps, localDef[Vendor]{
			kind:     "vendors",
			slot:     VendorSlot,
			position: collection.Prepend,
			clocked:  true,
			defaults: query.Descriptor{SortKey: "reportedAt", SortDirection: query.Desc},
			schema:   func(d Deps) *query.Schema[Vendor] { return VendorSchema(d.Clock) },
			seed:     SeedVendors,
			prepare: func(v *Vendor, _ collection.Collection[Vendor], now time.Time) {
				if v.ID == "" {
					v.ID = NewID()
				}
				if v.ReportedAt.IsZero() {
					v.ReportedAt = now
				}
				v.Hours = strings.TrimSpace(v.Hours)
			},
		}, Validator())
	},
}
