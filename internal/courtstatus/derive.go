package courtstatus

import (
	"fmt"
	"strings"
	"time"

	"github.com/codr1/courtside/internal/models"
)

const (
	defaultBlockReason = "maintenance"
	defaultBlockNotes  = "Court temporarily unavailable"

	messageCourtClosed      = "Court Closed"
	messageNoReservations   = "No Reservations Today"
	messageNoMoreToday      = "No More Reservations Today"
	messageAvailableNow     = "Available Now"
	messageUnableToLoad     = "Unable to load status"
	messageOpensAtFormat    = "Court Opens at %s"
	messageOpensTomorrowFmt = "Opens Tomorrow at %s"
)

// ComputeStatus derives the court's status from one day's reservations. now must
// already be expressed in the business timezone; only its wall-clock hour is read.
func ComputeStatus(reservations []models.Reservation, now time.Time, hours BusinessHours) DerivedStatus {
	active := make([]models.Reservation, 0, len(reservations))
	for _, res := range reservations {
		if res.Status.IsActive() {
			active = append(active, res)
		}
	}

	status := DerivedStatus{
		HasAnyReservationsToday: len(active) > 0,
		LastUpdated:             now,
	}
	hour := now.Hour()

	switch {
	case hour < hours.Open:
		status.FacilityStatus = FacilityClosed
		status.Current = placeholderSlot(fmt.Sprintf(messageOpensAtFormat, formatHour(hours.Open)))
		if first, ok := firstOfDay(active); ok {
			status.Next = slotFromReservation(first)
		} else {
			status.Next = placeholderSlot(messageNoReservations)
		}
		return status

	case hour >= hours.Close:
		status.FacilityStatus = FacilityClosed
		status.Current = placeholderSlot(messageCourtClosed)
		status.Next = placeholderSlot(fmt.Sprintf(messageOpensTomorrowFmt, formatHour(hours.Open)))
		return status
	}

	var current *models.Reservation
	for i := range active {
		if active[i].Covers(hour) {
			current = &active[i]
			break
		}
	}

	var next *models.Reservation
	for i := range active {
		res := &active[i]
		if res.TimeSlot <= hour {
			continue
		}
		if res == current {
			continue
		}
		if next == nil || res.TimeSlot < next.TimeSlot {
			next = res
		}
	}

	if len(active) == 0 {
		status.FacilityStatus = FacilityAvailable
	} else {
		status.FacilityStatus = FacilityOpen
	}

	if current != nil {
		status.Current = slotFromReservation(*current)
	} else {
		status.Current = placeholderSlot(messageAvailableNow)
	}

	switch {
	case next != nil:
		status.Next = slotFromReservation(*next)
	case len(active) == 0:
		status.Next = placeholderSlot(messageNoReservations)
	default:
		status.Next = placeholderSlot(messageNoMoreToday)
	}

	return status
}

// FallbackStatus is what callers see when the day's reservations could not be
// fetched: a displayable, available court with the failure recorded.
func FallbackStatus(now time.Time, err error) DerivedStatus {
	status := DerivedStatus{
		Current:        placeholderSlot(messageUnableToLoad),
		Next:           placeholderSlot(messageUnableToLoad),
		FacilityStatus: FacilityAvailable,
		LastUpdated:    now,
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}

// firstOfDay picks the earliest-starting reservation, preferring real bookings
// over blocks; a block is only returned when nothing else is on the schedule.
func firstOfDay(active []models.Reservation) (models.Reservation, bool) {
	var booking, block *models.Reservation
	for i := range active {
		res := &active[i]
		if res.IsBlocked() {
			if block == nil || res.TimeSlot < block.TimeSlot {
				block = res
			}
			continue
		}
		if booking == nil || res.TimeSlot < booking.TimeSlot {
			booking = res
		}
	}
	switch {
	case booking != nil:
		return *booking, true
	case block != nil:
		return *block, true
	default:
		return models.Reservation{}, false
	}
}

func placeholderSlot(message string) SlotInfo {
	return SlotInfo{
		TimeRange: message,
		Players:   []PlayerInfo{},
	}
}

func slotFromReservation(res models.Reservation) SlotInfo {
	slot := SlotInfo{
		Exists:        true,
		ReservationID: res.ID,
		TimeRange:     formatTimeRange(res.TimeSlot, res.EndTimeSlot),
		Players:       []PlayerInfo{},
	}

	if res.IsBlocked() {
		reason := strings.TrimSpace(res.BlockReason)
		if reason == "" {
			reason = defaultBlockReason
		}
		notes := strings.TrimSpace(res.BlockNotes)
		if notes == "" {
			notes = defaultBlockNotes
		}
		slot.IsBlocked = true
		slot.BlockInfo = &BlockInfo{Reason: reason, Notes: notes}
		return slot
	}

	for _, player := range res.Players {
		name := strings.TrimSpace(player.Name)
		if name == "" {
			continue
		}
		color := AvatarColor(name)
		slot.Players = append(slot.Players, PlayerInfo{
			Name:        name,
			IsGuest:     player.IsGuest,
			Initials:    Initials(name),
			AvatarColor: color,
			TextColor:   TextColor(color),
		})
	}
	return slot
}

func formatTimeRange(start, end int) string {
	return formatHour(start) + " - " + formatHour(end)
}

// formatHour renders a whole hour on a 12-hour clock; 24 wraps to midnight.
func formatHour(hour int) string {
	hour = ((hour % 24) + 24) % 24
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, suffix)
}
