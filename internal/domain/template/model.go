package template

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Template is a patient's recurring visit plan. Weeks rotate in
// WeekIndex order, anchored at EffectiveDate; GeneratedThrough is the
// materialization watermark and only ever moves forward.
type Template struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	EffectiveDate    time.Time  `json:"effective_date"`
	Active           bool       `json:"active"`
	GeneratedThrough *time.Time `json:"generated_through,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type Week struct {
	ID         uuid.UUID `json:"id"`
	TemplateID uuid.UUID `json:"template_id"`
	WeekIndex  int       `json:"week_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event is one recurring slot in a template week. Times are local
// wall-clock "HH:MM"; DayOfWeek follows time.Weekday (0 = Sunday).
type Event struct {
	ID              uuid.UUID       `json:"id"`
	WeekID          uuid.UUID       `json:"week_id"`
	DayOfWeek       int             `json:"day_of_week"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	AuthorizationID uuid.UUID       `json:"authorization_id"`
	StaffID         *uuid.UUID      `json:"staff_id,omitempty"`
	PlannedUnits    decimal.Decimal `json:"planned_units"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ParseClock validates an "HH:MM" wall-clock string and returns minutes
// past midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Overlaps reports whether [s1,e1) and [s2,e2), in minutes past
// midnight, intersect. Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}
