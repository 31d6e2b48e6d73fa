package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"ambiance/internal/data/history"
)

func RenderTrendTSV(report history.TrendReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tRun\tFiles\tSymbols\tTokens\tRatio\tDeltaFiles\tDeltaSymbols\tDeltaTokens\tTokenGrowthPct\tAvgRatio\tAvgDurationMs\tWindowHours\n")
	for _, point := range report.Points {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%d\t%d\t%d\t%.2f\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.RunID,
			point.FilesProcessed,
			point.SymbolsAfterDedup,
			point.CompactedTokens,
			point.CompressionRatio,
			point.DeltaFiles,
			point.DeltaSymbols,
			point.DeltaTokens,
			point.TokenGrowthPct,
			point.AvgCompression,
			point.AvgDurationMillis,
			point.WindowHours,
		))
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
