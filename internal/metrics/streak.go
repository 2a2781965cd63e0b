package metrics

import "ads-guardrail/internal/domain"

// CollectStreaks returns every maximal run of adjacent days for which
// predicate holds. days must already be ordered by date.
func CollectStreaks(days []domain.DayEvaluation, predicate func(domain.DayEvaluation) bool) []domain.Streak {
	var streaks []domain.Streak
	start := -1

	for i, d := range days {
		if predicate(d) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			streaks = append(streaks, newStreak(days, start, i-1))
			start = -1
		}
	}
	if start >= 0 {
		streaks = append(streaks, newStreak(days, start, len(days)-1))
	}

	return streaks
}

// LongStreaks keeps the streaks that are at least minLength days long.
func LongStreaks(streaks []domain.Streak, minLength int) []domain.Streak {
	var out []domain.Streak
	for _, s := range streaks {
		if s.Length >= minLength {
			out = append(out, s)
		}
	}
	return out
}

func newStreak(days []domain.DayEvaluation, first, last int) domain.Streak {
	return domain.Streak{
		StartDate: days[first].Date,
		EndDate:   days[last].Date,
		Length:    last - first + 1,
	}
}
