package services

import (
	"time"

	"juicestand/internal/aggregate"
	"juicestand/internal/core"
)

// Calendar decides what "today" is and how weeks and the dashboard window
// are laid out.
type Calendar struct {
	Location     *time.Location
	WeekStart    time.Weekday
	TrailingDays int
	Now          func() time.Time
}

func DefaultCalendar() Calendar {
	return Calendar{
		Location:     time.UTC,
		WeekStart:    time.Monday,
		TrailingDays: aggregate.DefaultTrailingDays,
		Now:          time.Now,
	}
}

// Today returns the current calendar day in the configured location.
func (c Calendar) Today() core.Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return core.DateOf(now().In(loc))
}

func (c Calendar) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Calendar) trailingDays() int {
	if c.TrailingDays < 1 {
		return aggregate.DefaultTrailingDays
	}
	return c.TrailingDays
}
