package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport derives per-run deltas and moving averages over window
// from runs ordered oldest first.
func BuildTrendReport(projectKey string, runs []Run, window time.Duration) (TrendReport, error) {
	if len(runs) == 0 {
		return TrendReport{}, fmt.Errorf("no runs recorded for project %q", projectKey)
	}

	points := make([]TrendPoint, 0, len(runs))
	for i, current := range runs {
		point := TrendPoint{
			Timestamp:         current.Timestamp,
			RunID:             current.ID,
			FilesProcessed:    current.FilesProcessed,
			SymbolsAfterDedup: current.SymbolsAfterDedup,
			CompactedTokens:   current.CompactedTokens,
			CompressionRatio:  round2(current.CompressionRatio),
		}
		if i > 0 {
			prev := runs[i-1]
			point.DeltaFiles = current.FilesProcessed - prev.FilesProcessed
			point.DeltaSymbols = current.SymbolsAfterDedup - prev.SymbolsAfterDedup
			point.DeltaTokens = current.CompactedTokens - prev.CompactedTokens
			if prev.CompactedTokens > 0 {
				point.TokenGrowthPct = round2(float64(point.DeltaTokens) / float64(prev.CompactedTokens) * 100)
			}
		}

		avgRatio, avgDuration := movingAverages(runs, i, window)
		point.AvgCompression = round2(avgRatio)
		point.AvgDurationMillis = round2(avgDuration)
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		ProjectKey:    projectKey,
		Since:         runs[0].Timestamp,
		Until:         runs[len(runs)-1].Timestamp,
		Window:        window.String(),
		RunCount:      len(points),
		Points:        points,
	}, nil
}

func movingAverages(runs []Run, index int, window time.Duration) (float64, float64) {
	if window <= 0 {
		return runs[index].CompressionRatio, float64(runs[index].Duration.Milliseconds())
	}

	cutoff := runs[index].Timestamp.Add(-window)
	var ratioTotal float64
	var durationTotal int64
	count := 0
	for i := index; i >= 0; i-- {
		if runs[i].Timestamp.Before(cutoff) {
			break
		}
		ratioTotal += runs[i].CompressionRatio
		durationTotal += runs[i].Duration.Milliseconds()
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return ratioTotal / float64(count), float64(durationTotal) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
