// Package ordering computes the display order of a queue.
//
// The order is derived on every read from the stored positions and the current time.
// Nothing here touches storage or blocks.
package ordering

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"clinic-queue/internal/domain/entity"
)

// IsLate reports whether an entry is overdue: not arrived and its scheduled time has passed.
func IsLate(e entity.QueueEntry, now time.Time) bool {
	return e.Position.State != entity.StatusArrived && e.Appointment.ScheduledAt.Before(now)
}

// Compare orders two entries for display.
//
//  1. lower priority value first, always
//  2. routine entries only: an entry that is not late goes before a late one
//     (so arrived goes before late)
//  3. position ascending
//
// Appointment id breaks the remaining ties so views spanning several doctors are still total.
func Compare(a, b entity.QueueEntry, now time.Time) int {
	if c := cmp.Compare(a.Position.Priority, b.Position.Priority); c != 0 {
		return c
	}

	if a.Position.Priority == entity.PriorityRoutine {
		aLate, bLate := IsLate(a, now), IsLate(b, now)
		if aLate != bLate {
			if aLate {
				return 1
			}
			return -1
		}
	}

	if c := cmp.Compare(a.Position.Position, b.Position.Position); c != 0 {
		return c
	}
	return strings.Compare(a.Position.AppointmentID.String(), b.Position.AppointmentID.String())
}

// Sort returns a sorted copy of entries. The input slice is left untouched.
func Sort(entries []entity.QueueEntry, now time.Time) []entity.QueueEntry {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b entity.QueueEntry) int {
		return Compare(a, b, now)
	})
	return sorted
}
