// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package topics

import "github.com/campusbus/extrabus/models"

// transitions lists the statuses reachable from each status.
var transitions = map[string][]string{
	models.StatusActive:             {models.StatusProcessing, models.StatusRejected},
	models.StatusProcessing:         {models.StatusDriverAssigned, models.StatusPendingCoordinator},
	models.StatusPendingCoordinator: {models.StatusDriverAssigned, models.StatusApproved, models.StatusRejected},
	models.StatusDriverAssigned:     {models.StatusApproved, models.StatusRejected, models.StatusCompleted},
}

// CanTransition reports whether a topic may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	switch status {
	case models.StatusApproved, models.StatusRejected, models.StatusCompleted:
		return true
	}
	return false
}

// ValidStatus reports whether status is a known topic status.
func ValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok || IsTerminal(status)
}
