package features

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/insights"
)

// InferenceClient is the forecaster plug-in point: a named model is given
// a feature vector and returns one prediction. ONNX and CatBoost model
// servers are both reached through this same narrow interface; only the
// concrete client differs.
type InferenceClient interface {
	Predict(ctx context.Context, model string, features map[string]float64) (float64, error)
}

// HTTPInferenceClient calls an out-of-process model server (ONNX runtime
// or CatBoost serving) over HTTP, the same request/response shape the
// teacher uses for its PyPortfolioOpt microservice client
// (trader-go/internal/modules/optimization/pypfopt_client.go): POST JSON,
// get back a {success, prediction, error} envelope.
type HTTPInferenceClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPInferenceClient builds a client against the ML inference endpoint
// configured via config.Config.MLEndpointURL.
func NewHTTPInferenceClient(baseURL string, log zerolog.Logger) *HTTPInferenceClient {
	return &HTTPInferenceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     log.With().Str("client", "inference").Logger(),
	}
}

type predictRequest struct {
	Model    string             `json:"model"`
	Features map[string]float64 `json:"features"`
}

type predictResponse struct {
	Success    bool     `json:"success"`
	Prediction *float64 `json:"prediction"`
	Error      *string  `json:"error"`
}

// Predict sends the feature vector to the configured model endpoint and
// returns its scalar prediction.
func (c *HTTPInferenceClient) Predict(ctx context.Context, model string, feats map[string]float64) (float64, error) {
	body, err := json.Marshal(predictRequest{Model: model, Features: feats})
	if err != nil {
		return 0, fmt.Errorf("marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call inference endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read inference response: %w", err)
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("parse inference response: %w", err)
	}
	if !out.Success || out.Prediction == nil {
		msg := "unknown error"
		if out.Error != nil {
			msg = *out.Error
		}
		return 0, fmt.Errorf("inference failed: %s", msg)
	}
	return *out.Prediction, nil
}

// ForecastID returns the feature id for a named model's prediction.
func ForecastID(model string) insights.FeatureID {
	return insights.FeatureID(fmt.Sprintf("forecast.%s", model))
}

// NewForecast builds a feature that reads the last value of each input
// feature, calls the inference client with that vector, and publishes the
// scalar prediction. A failed or erroring call is treated as "no value
// yet" rather than propagated, so one unavailable model server degrades
// gracefully instead of stalling the whole pipeline tick.
func NewForecast(model string, inputs []insights.FeatureID, client InferenceClient, log zerolog.Logger) insights.Feature {
	id := ForecastID(model)
	return insights.NewDerivedFeature(id, inputs, func(ctx context.Context, state *insights.State, instrument *core.Instrument, eventTime time.Time) (core.Decimal, bool) {
		vector := make(map[string]float64, len(inputs))
		for _, in := range inputs {
			v, _, ok := state.Last(instrument.ID, in)
			if !ok {
				return core.Zero, false
			}
			f, _ := v.Float64()
			vector[string(in)] = f
		}
		prediction, err := client.Predict(ctx, model, vector)
		if err != nil {
			log.Warn().Err(err).Str("model", model).Str("instrument", instrument.Symbol).Msg("inference call failed")
			return core.Zero, false
		}
		return core.NewDecimalFromFloat(prediction), true
	})
}
