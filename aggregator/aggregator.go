package aggregator

import (
	"sort"

	"municipal-sentinel/models"
)

// StatsResult holds the dashboard headline numbers.
type StatsResult struct {
	Total       int     `json:"total"`
	Critical    int     `json:"critical"`
	AvgSeverity float64 `json:"avg_severity"`
}

// Stats computes totals over the current store snapshot. Recomputed on
// every call so it always reflects the latest state; O(n) is fine at the
// store's expected scale.
func Stats(reports []models.Report) StatsResult {
	res := StatsResult{Total: len(reports)}
	if len(reports) == 0 {
		return res
	}

	severitySum := 0
	for _, r := range reports {
		if r.PriorityIndex > models.CriticalPriorityThreshold {
			res.Critical++
		}
		severitySum += r.SeverityScore
	}
	res.AvgSeverity = float64(severitySum) / float64(len(reports))
	return res
}

// LeaderboardEntry is a reporter's contribution count.
type LeaderboardEntry struct {
	Reporter string `json:"reporter_id"`
	Count    int    `json:"count"`
}

// Leaderboard groups reports by reporter, ordered by descending count.
// Ties keep the order reporters first appeared in the store.
func Leaderboard(reports []models.Report) []LeaderboardEntry {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, r := range reports {
		if _, ok := counts[r.Reporter]; !ok {
			firstSeen[r.Reporter] = i
		}
		counts[r.Reporter]++
	}

	entries := make([]LeaderboardEntry, 0, len(counts))
	for reporter, cnt := range counts {
		entries = append(entries, LeaderboardEntry{Reporter: reporter, Count: cnt})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return firstSeen[entries[i].Reporter] < firstSeen[entries[j].Reporter]
	})
	return entries
}

// Filter returns the reports whose defect type is in types AND whose
// status is in statuses. An empty set matches everything on that
// dimension.
func Filter(reports []models.Report, types, statuses []string) []models.Report {
	typeSet := toSet(types)
	statusSet := toSet(statuses)

	out := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if len(typeSet) > 0 {
			if _, ok := typeSet[r.DefectType]; !ok {
				continue
			}
		}
		if len(statusSet) > 0 {
			if _, ok := statusSet[r.Status]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
