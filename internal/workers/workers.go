package workers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// AbsenceSweeper marks students without a record on a day as absent.
type AbsenceSweeper interface {
	SweepAbsences(date string) (int, error)
}

// SchoolDay reports whether attendance is taken on t's weekday.
func SchoolDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// NextRun returns the first instant after now whose local time of day is at.
func NextRun(now time.Time, at time.Duration, loc *time.Location) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	next := midnight.Add(at)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc).Add(at)
	}
	return next
}

// SweepAbsences runs the sweep for the day of at, skipping weekends.
func SweepAbsences(s AbsenceSweeper, at time.Time) error {
	date := at.Format("2006-01-02")
	if !SchoolDay(at) {
		log.Info().Str("date", date).Msg("Worker: no classes, absence sweep skipped")
		return nil
	}

	n, err := s.SweepAbsences(date)
	if err != nil {
		return err
	}
	log.Info().Str("date", date).Int("marked_absent", n).Msg("Worker: absence sweep done")
	return nil
}
