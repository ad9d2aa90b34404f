package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/persistence"
)

// scalerRow mirrors the unexported quantileEntry wire shape internal/
// insights/features.LoadRobustScaler/LoadQuantileTransformer read, so a
// file this subcommand writes loads there without either package needing
// to export its internal fit representation.
type scalerRow struct {
	InstrumentID string    `json:"instrument_id"`
	FeatureID    string    `json:"feature_id"`
	Quantiles    []float64 `json:"quantiles"`
	Median       float64   `json:"median"`
	IQR          float64   `json:"iqr"`
}

type scalerFile struct {
	Levels []float64   `json:"levels"`
	Data   []scalerRow `json:"data"`
}

// insightsUpdatePayload decodes just the fields of a persisted
// InsightsUpdate event this subcommand needs, out of the generic
// persistence.Store row's raw JSON payload.
type insightsUpdatePayload struct {
	Type_      string `json:"Type_"`
	Instrument struct {
		ID string `json:"ID"`
	} `json:"Instrument"`
	FeatureID string          `json:"FeatureID"`
	Value     decimal.Decimal `json:"Value"`
}

var scalerLevels = []float64{0.01, 0.1, 0.25, 0.5, 0.75, 0.9, 0.99}

// runScaler fits a RobustScaler/QuantileTransformer file from every
// InsightsUpdate event already persisted by a prior "insights" or
// "simulation" run, one fit per (instrument, feature) pair observed.
func runScaler(args []string) error {
	fs := flag.NewFlagSet("scaler", flag.ExitOnError)
	cf := registerCommon(fs)
	out := fs.String("out", "./data/scaler.json", "output path for the fitted scaler JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	b, err := bootstrap(ctx, cf)
	if err != nil {
		return err
	}
	defer b.store.Close()

	samples, err := collectFeatureSamples(ctx, b.store)
	if err != nil {
		return fmt.Errorf("collect samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("no persisted insights_update events found; run \"arkin insights\" or \"arkin simulation\" first")
	}

	file := scalerFile{Levels: scalerLevels}
	for key, values := range samples {
		sort.Float64s(values)
		file.Data = append(file.Data, scalerRow{
			InstrumentID: key.instrument,
			FeatureID:    key.feature,
			Quantiles:    quantilesOf(values, scalerLevels),
			Median:       percentile(values, 0.5),
			IQR:          percentile(values, 0.75) - percentile(values, 0.25),
		})
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode scaler file: %w", err)
	}

	fmt.Printf("fitted scaler for %d (instrument, feature) pairs to %s\n", len(file.Data), *out)
	return nil
}

type sampleKey struct {
	instrument string
	feature    string
}

func collectFeatureSamples(ctx context.Context, store *persistence.Store) (map[sampleKey][]float64, error) {
	evs, err := store.LoadEventsSince(ctx, core.NilID)
	if err != nil {
		return nil, err
	}
	out := make(map[sampleKey][]float64)
	for _, ev := range evs {
		raw, ok := ev.(interface{ RawPayload() json.RawMessage })
		if !ok {
			continue
		}
		var row insightsUpdatePayload
		if err := json.Unmarshal(raw.RawPayload(), &row); err != nil {
			continue
		}
		if row.Type_ != "insights_update" {
			continue
		}
		v, _ := row.Value.Float64()
		key := sampleKey{instrument: row.Instrument.ID, feature: row.FeatureID}
		out[key] = append(out[key], v)
	}
	return out, nil
}

// percentile linearly interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func quantilesOf(sorted []float64, levels []float64) []float64 {
	out := make([]float64, len(levels))
	for i, l := range levels {
		out[i] = percentile(sorted, l)
	}
	return out
}
