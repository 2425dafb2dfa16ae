package features

import (
	"math"
	"sort"

	"FinCast/internal/domain/models"
)

// CleanSeries sorts by date, collapses duplicate dates to the last close,
// forward-fills missing or non-positive closes and drops the leading points
// that have no earlier valid close to fill from.
func CleanSeries(points []models.PricePoint) []models.PricePoint {
	if len(points) == 0 {
		return nil
	}
	sorted := make([]models.PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]models.PricePoint, 0, len(sorted))
	last := 0.0
	for _, p := range sorted {
		close := p.Close
		if !valid(close) {
			if last == 0 {
				continue
			}
			close = last
		}
		last = close
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1].Close = close
			continue
		}
		out = append(out, models.PricePoint{Date: p.Date, Close: close})
	}
	return out
}

func valid(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
