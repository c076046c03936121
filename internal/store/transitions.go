package store

import "github.com/souzalb/tv-senai/internal/models"

// Ticket status is a strict forward progression: waiting -> called -> completed.
var transitionMap = map[string][]string{
	"call":     {models.StatusWaiting},
	"complete": {models.StatusCalled},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
