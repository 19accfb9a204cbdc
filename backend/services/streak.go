package services

import "philosofium/backend/models"

// AdvanceStreak applies one triggering event on day today.
// It reports whether the streak changed; a second event on the same day is a no-op.
func AdvanceStreak(s *models.Streak, today, yesterday string) bool {
	if s.LastDate == today {
		return false
	}
	if s.LastDate != "" && s.LastDate == yesterday {
		s.Count++
	} else {
		s.Count = 1
	}
	if s.Count > s.Longest {
		s.Longest = s.Count
	}
	s.LastDate = today
	return true
}

// NormalizeDailyGoal resets today's progress when the goal was last reset on another day
// and repairs corrupted targets. It reports whether anything changed.
func NormalizeDailyGoal(g *models.DailyGoal, today string) bool {
	changed := false
	if g.LessonsTarget < 1 {
		g.LessonsTarget = 1
		changed = true
	}
	if g.LoginsTarget < 1 {
		g.LoginsTarget = 1
		changed = true
	}
	if g.LastResetAt != today {
		g.LessonsCompletedToday = 0
		g.LoginsCompletedToday = 0
		g.LastResetAt = today
		changed = true
	}
	return changed
}

// CreditLogin counts at most one login per day.
func CreditLogin(g *models.DailyGoal) bool {
	if g.LoginsCompletedToday >= 1 {
		return false
	}
	g.LoginsCompletedToday = 1
	return true
}

func CreditLesson(g *models.DailyGoal) {
	g.LessonsCompletedToday++
}
