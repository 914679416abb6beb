package spend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/memory/spend"
)

func TestAccumulateSumsAcrossTurns(t *testing.T) {
	dir := t.TempDir()
	rates := spend.Rates{InputPerMillion: 1.0, OutputPerMillion: 4.0}

	_, err := spend.Accumulate(dir, spend.Usage{InputTokens: 500, OutputTokens: 100}, rates)
	require.NoError(t, err)

	total, err := spend.Accumulate(dir, spend.Usage{InputTokens: 300, OutputTokens: 200}, rates)
	require.NoError(t, err)

	require.Equal(t, int64(800), total.TotalInputTokens)
	require.Equal(t, int64(300), total.TotalOutputTokens)
	require.InDelta(t, 0.0020, total.TotalCostUSD, 1e-9)
}

func TestAccumulateZeroRateOmitsCost(t *testing.T) {
	dir := t.TempDir()
	total, err := spend.Accumulate(dir, spend.Usage{InputTokens: 1_000_000}, spend.Rates{})
	require.NoError(t, err)
	require.Equal(t, 0.0, total.TotalCostUSD)
}

func TestReadMissingFileReturnsZeroTotals(t *testing.T) {
	dir := t.TempDir()
	total, err := spend.Read(dir)
	require.NoError(t, err)
	require.Equal(t, spend.Totals{}, total)
}
