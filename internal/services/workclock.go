// Package services – work clock
//
// Per-appointment elapsed-work accounting with pause semantics. All
// arithmetic is in whole seconds; `now` is injected by the engine so that
// the start/pause pair of a segment always reads the same clock source.
//
// State variables (on domain.Appointment):
//   - StartedAt: beginning of the running segment; nil while paused or idle.
//   - TotalWorkedSeconds: accumulated finished segments; never decreases.
//   - IsPaused / PausedAt: pause marker.
package services

import (
	"time"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// clockStart begins the first work segment. It refuses to run twice: a
// started or paused appointment has no start edge left.
func clockStart(a *domain.Appointment, now time.Time) error {
	if a.StartedAt != nil || a.IsPaused {
		return ErrIllegalTransition
	}
	t := now.UTC()
	a.StartedAt = &t
	a.IsPaused = false
	return nil
}

// clockPause closes the running segment, folding its duration into
// TotalWorkedSeconds. StartedAt is cleared so that a paused appointment
// never reports a live segment.
func clockPause(a *domain.Appointment, now time.Time) error {
	if a.StartedAt == nil || a.IsPaused {
		return ErrIllegalTransition
	}
	elapsed := int64(now.UTC().Sub(*a.StartedAt) / time.Second)
	if elapsed > 0 {
		a.TotalWorkedSeconds += elapsed
	}
	t := now.UTC()
	a.StartedAt = nil
	a.IsPaused = true
	a.PausedAt = &t
	return nil
}

// clockResume opens a new segment after a pause.
func clockResume(a *domain.Appointment, now time.Time) error {
	if !a.IsPaused {
		return ErrIllegalTransition
	}
	t := now.UTC()
	a.StartedAt = &t
	a.IsPaused = false
	a.PausedAt = nil
	return nil
}

// clockFinalize closes the running segment (if any) and clears the clock.
func clockFinalize(a *domain.Appointment, now time.Time) {
	if !a.IsPaused && a.StartedAt != nil {
		elapsed := int64(now.UTC().Sub(*a.StartedAt) / time.Second)
		if elapsed > 0 {
			a.TotalWorkedSeconds += elapsed
		}
	}
	a.StartedAt = nil
	a.IsPaused = false
	a.PausedAt = nil
}

// LiveElapsed reports the total worked duration in seconds, including the
// currently running segment when the appointment is not paused.
func LiveElapsed(a *domain.Appointment, now time.Time) int64 {
	total := a.TotalWorkedSeconds
	if !a.IsPaused && a.StartedAt != nil {
		if live := int64(now.UTC().Sub(*a.StartedAt) / time.Second); live > 0 {
			total += live
		}
	}
	return total
}
