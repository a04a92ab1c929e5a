package links

import (
	"math"
	"sort"
)

// buildLinkStats derives the per-link dashboard summary from the link's
// visit rows. Rows are ordered by count descending with country ascending
// as the tie-break, so top-5 selection is deterministic.
func buildLinkStats(link Link, visits []Visit) LinkStats {
	sortVisits(visits)

	var totalVisits int64
	for _, v := range visits {
		totalVisits += v.Count
	}

	top := make([]CountryClicks, 0, 5)
	for _, v := range visits {
		if len(top) == 5 {
			break
		}
		top = append(top, CountryClicks{Country: v.Country, Clicks: v.Count})
	}

	stats := make([]CountryStat, 0, len(visits))
	for _, v := range visits {
		stats = append(stats, CountryStat{
			Country:    v.Country,
			Count:      v.Count,
			Percentage: percentage(v.Count, totalVisits),
		})
	}

	return LinkStats{
		Link:                 link,
		TotalVisits:          totalVisits,
		UniqueCountriesCount: len(visits),
		Top5Countries:        top,
		CountryStats:         stats,
	}
}

// percentage returns count/total as a percentage rounded to two decimals.
// A zero total yields 0.00 rather than dividing by zero.
func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*100*100) / 100
}

func sortVisits(visits []Visit) {
	sort.SliceStable(visits, func(i, j int) bool {
		if visits[i].Count != visits[j].Count {
			return visits[i].Count > visits[j].Count
		}
		return visits[i].Country < visits[j].Country
	})
}

func toCountryClicks(visits []Visit) []CountryClicks {
	out := make([]CountryClicks, 0, len(visits))
	for _, v := range visits {
		out = append(out, CountryClicks{Country: v.Country, Clicks: v.Count})
	}
	return out
}
