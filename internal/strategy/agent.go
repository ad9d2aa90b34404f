package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/arkin-go/core/internal/core"
)

// AgentInferenceClient is the recurrent-model inference boundary used by
// AgentAlgorithm: one call consumes an observation plus the instrument's
// carried hidden/cell state and returns a discrete action index alongside
// the updated state. Grounded on
// original_source/arkin-strategies/src/strategies/agent.rs's ONNX
// LSTM-policy session (obs, lstm_hidden_in, lstm_cell_in ->
// action, lstm_hidden_out, lstm_cell_out), with the ONNX runtime call
// itself abstracted behind this interface so the strategy logic doesn't
// depend on a specific model-serving transport.
type AgentInferenceClient interface {
	Act(ctx context.Context, model string, instrument core.ID, observation []float64, hidden, cell []float64) (action int, newHidden, newCell []float64, err error)
}

// agentInstrumentState is the per-instrument carry between ticks: the
// model's recurrent hidden/cell state and the last emitted action weight,
// appended back into the next observation (agent.rs "current_weight").
type agentInstrumentState struct {
	hidden, cell  []float64
	currentWeight core.Decimal
}

// AgentAlgorithm wraps a recurrent policy model behind the Algorithm
// interface: each instrument carries its own hidden/cell state across
// calls, and the model's discrete action index is mapped through a fixed
// action-space table of target weights.
type AgentAlgorithm struct {
	client      AgentInferenceClient
	model       string
	actionSpace []core.Decimal
	inputs      []string // feature ids read from State, in model input order
	hiddenSize  int
	layers      int

	mu    sync.Mutex
	state map[core.ID]*agentInstrumentState

	// observations accumulates the latest value seen for each input feature
	// id per instrument, since one InsightsUpdate only reports a single
	// feature and the model needs the full vector.
	observations map[core.ID]map[string]float64
}

// NewAgentAlgorithm builds an Agent strategy. actionSpace maps a model's
// discrete action index to a target position weight (agent.rs
// "action_space: Vec<Decimal>"); layers/hiddenSize size the zeroed initial
// LSTM state for an instrument seen for the first time.
func NewAgentAlgorithm(client AgentInferenceClient, model string, actionSpace []core.Decimal, inputs []string, layers, hiddenSize int) *AgentAlgorithm {
	return &AgentAlgorithm{
		client:       client,
		model:        model,
		actionSpace:  actionSpace,
		inputs:       inputs,
		hiddenSize:   hiddenSize,
		layers:       layers,
		state:        make(map[core.ID]*agentInstrumentState),
		observations: make(map[core.ID]map[string]float64),
	}
}

func (a *AgentAlgorithm) instrumentState(id core.ID) *agentInstrumentState {
	st, ok := a.state[id]
	if !ok {
		st = &agentInstrumentState{
			hidden: make([]float64, a.layers*a.hiddenSize),
			cell:   make([]float64, a.layers*a.hiddenSize),
		}
		a.state[id] = st
	}
	return st
}

func (a *AgentAlgorithm) OnInsightsUpdate(ctx context.Context, instrument *core.Instrument, featureID string, value core.Decimal, eventTime time.Time) (core.Side, core.Decimal, bool) {
	wanted := false
	for _, in := range a.inputs {
		if in == featureID {
			wanted = true
			break
		}
	}
	if !wanted {
		return "", core.Zero, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	obs, ok := a.observations[instrument.ID]
	if !ok {
		obs = make(map[string]float64, len(a.inputs))
		a.observations[instrument.ID] = obs
	}
	f, _ := value.Float64()
	obs[featureID] = f
	if len(obs) < len(a.inputs) {
		return "", core.Zero, false // wait until every input feature has reported this round
	}

	st := a.instrumentState(instrument.ID)
	observation := make([]float64, len(a.inputs)+1)
	for i, in := range a.inputs {
		observation[i] = obs[in]
	}
	currentWeight, _ := st.currentWeight.Float64()
	observation[len(a.inputs)] = currentWeight

	action, newHidden, newCell, err := a.client.Act(ctx, a.model, instrument.ID, observation, st.hidden, st.cell)
	if err != nil || action < 0 || action >= len(a.actionSpace) {
		return "", core.Zero, false
	}
	st.hidden, st.cell = newHidden, newCell
	weight := a.actionSpace[action]
	st.currentWeight = weight

	clear(obs)

	side := core.SideBuy
	if weight.IsNegative() {
		side = core.SideSell
	}
	return side, weight.Abs(), true
}
