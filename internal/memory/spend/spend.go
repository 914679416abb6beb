// Package spend accumulates per-session LLM token usage and USD cost into
// a spend.json sidecar file, created on first recorded usage.
package spend

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const fileName = "spend.json"

// Rates gives the cost per million tokens for each usage category. A zero
// rate means cost for that category is omitted rather than approximated.
type Rates struct {
	InputPerMillion       float64
	OutputPerMillion      float64
	CachedInputPerMillion float64
}

// Usage is one LLM call's token counts.
type Usage struct {
	InputTokens       int64
	OutputTokens      int64
	CachedInputTokens int64
}

// Totals is the on-disk cumulative spend record for a session.
type Totals struct {
	TotalInputTokens       int64     `json:"total_input_tokens"`
	TotalOutputTokens      int64     `json:"total_output_tokens"`
	TotalCachedInputTokens int64     `json:"total_cached_input_tokens"`
	TotalCostUSD           float64   `json:"total_cost_usd"`
	LastUpdated            time.Time `json:"last_updated"`
}

func path(dir string) string { return filepath.Join(dir, fileName) }

// Read loads the current totals for a session, returning a zero Totals if
// spend.json does not yet exist.
func Read(dir string) (Totals, error) {
	raw, err := os.ReadFile(path(dir))
	if os.IsNotExist(err) {
		return Totals{}, nil
	}
	if err != nil {
		return Totals{}, err
	}
	var t Totals
	if err := json.Unmarshal(raw, &t); err != nil {
		return Totals{}, err
	}
	return t, nil
}

// Accumulate reads the current totals, adds usage priced at rates, and
// writes the result back atomically (write-temp, rename-over), returning
// the updated totals. Cost for any category whose rate is 0 is omitted
// from that category's contribution, not approximated.
func Accumulate(dir string, usage Usage, rates Rates) (Totals, error) {
	t, err := Read(dir)
	if err != nil {
		return Totals{}, err
	}

	t.TotalInputTokens += usage.InputTokens
	t.TotalOutputTokens += usage.OutputTokens
	t.TotalCachedInputTokens += usage.CachedInputTokens

	cost := 0.0
	if rates.InputPerMillion != 0 {
		cost += float64(usage.InputTokens) / 1e6 * rates.InputPerMillion
	}
	if rates.OutputPerMillion != 0 {
		cost += float64(usage.OutputTokens) / 1e6 * rates.OutputPerMillion
	}
	if rates.CachedInputPerMillion != 0 {
		cost += float64(usage.CachedInputTokens) / 1e6 * rates.CachedInputPerMillion
	}
	t.TotalCostUSD += cost
	t.LastUpdated = time.Now().UTC()

	if err := write(dir, t); err != nil {
		return Totals{}, err
	}
	return t, nil
}

func write(dir string, t Totals) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	tmp := path(dir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path(dir))
}
