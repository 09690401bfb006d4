// Package appointments holds the appointment status lifecycle, the stats fold
// and the in-memory list a dashboard works from.
package appointments

import "kairon/internal/models"

// transitionMap lists the statuses reachable from each status. The backend is
// authoritative; the client uses this only to decide which actions to offer.
var transitionMap = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled, models.StatusNoShow},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled, models.StatusNoShow},
	models.StatusCompleted: nil,
	models.StatusCancelled: nil,
	models.StatusNoShow:    nil,
}

func CanTransition(from, to models.AppointmentStatus) bool {
	for _, status := range transitionMap[from] {
		if status == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status. Unknown statuses are not terminal.
func IsTerminal(status models.AppointmentStatus) bool {
	next, ok := transitionMap[status]
	return ok && len(next) == 0
}

// AvailableActions returns the target statuses a UI should offer for an appointment.
func AvailableActions(status models.AppointmentStatus) []models.AppointmentStatus {
	return append([]models.AppointmentStatus(nil), transitionMap[status]...)
}

// ReasonRequired is a UI convention: cancelling asks for a reason.
func ReasonRequired(to models.AppointmentStatus) bool {
	return to == models.StatusCancelled
}
