package service

import "github.com/noah-isme/class-points-api/internal/models"

// ComputeStreak counts consecutive full-submission days in chronological order.
func ComputeStreak(days []models.DayScore) models.StreakState {
	var state models.StreakState
	for _, day := range days {
		if day.FullSubmission {
			state.Current++
			if state.Current > state.Max {
				state.Max = state.Current
			}
		} else {
			state.Current = 0
		}
	}
	return state
}
