package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundToStepFloors(t *testing.T) {
	step := NewDecimalFromFloat(0.001)
	v := NewDecimalFromFloat(1.2347)
	got := RoundToStep(v, step)
	assert.True(t, got.Equal(NewDecimalFromFloat(1.234)), "got %s", got)
}

func TestRoundToStepZeroStepIsNoop(t *testing.T) {
	v := NewDecimalFromFloat(1.2347)
	assert.True(t, RoundToStep(v, Zero).Equal(v))
}

func TestRoundToStepNearestRoundsUpAtMidpoint(t *testing.T) {
	step := NewDecimalFromFloat(0.01)
	v := NewDecimalFromFloat(1.005)
	got := RoundToStepNearest(v, step)
	assert.True(t, got.Equal(NewDecimalFromFloat(1.01)), "got %s", got)
}

func TestInstrumentRoundPriceAndQuantity(t *testing.T) {
	inst := &Instrument{
		TickSize: NewDecimalFromFloat(0.5),
		LotSize:  NewDecimalFromFloat(0.01),
		Status:   TradingStatusTrading,
	}
	assert.True(t, inst.RoundPrice(NewDecimalFromFloat(100.3)).Equal(NewDecimalFromFloat(100.5)))
	assert.True(t, inst.RoundQuantity(NewDecimalFromFloat(1.239)).Equal(NewDecimalFromFloat(1.23)))
	assert.True(t, inst.IsTradeable())

	inst.Status = TradingStatusHalted
	assert.False(t, inst.IsTradeable())
}

func TestSideOppositeAndSign(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
	assert.Equal(t, 1, SideBuy.Sign())
	assert.Equal(t, -1, SideSell.Sign())
}

func TestTickMid(t *testing.T) {
	tick := &Tick{BidPrice: NewDecimalFromFloat(100), AskPrice: NewDecimalFromFloat(102)}
	mid, ok := tick.Mid()
	assert.True(t, ok)
	assert.True(t, mid.Equal(NewDecimalFromFloat(101)))

	empty := &Tick{}
	_, ok = empty.Mid()
	assert.False(t, ok)
}

func TestNewIDIsUniqueAndNotNil(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, NilID, a)
}

func TestSystemClockTruncatesToMillisecond(t *testing.T) {
	now := SystemClock{}.Now()
	assert.Equal(t, now, now.Truncate(time.Millisecond))
	assert.Equal(t, time.UTC, now.Location())
}

func TestSimClockAdvanceIgnoresBackwardsMove(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewSimClock(start)
	assert.True(t, clock.Now().Equal(start))

	later := start.Add(time.Hour)
	clock.Advance(later)
	assert.True(t, clock.Now().Equal(later))

	clock.Advance(start)
	assert.True(t, clock.Now().Equal(later), "advancing backwards must be a no-op")
}
