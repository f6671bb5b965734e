package services

import (
	"time"

	"github.com/sobercast/sobercast/streak"
)

// calendar resolves "today" in the community timezone.
type calendar struct {
	loc *time.Location
	now func() time.Time
}

func newCalendar(loc *time.Location) calendar {
	if loc == nil {
		loc = time.UTC
	}
	return calendar{loc: loc, now: time.Now}
}

func (c calendar) today() streak.Day {
	return streak.DayOf(c.now(), c.loc)
}
