package coreerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStringIncludesOpCategoryAndCause(t *testing.T) {
	e := New(CategoryTransient, "ingest.Dial", errors.New("connection refused"))
	assert.Equal(t, "ingest.Dial: transient: connection refused", e.Error())
}

func TestErrorStringWithoutCause(t *testing.T) {
	e := New(CategoryConfiguration, "config.Load", nil)
	assert.Equal(t, "config.Load: configuration", e.Error())
}

func TestUnwrapReturnsWrappedError(t *testing.T) {
	cause := errors.New("boom")
	e := New(CategoryParse, "ingest.Parse", cause)
	assert.Same(t, cause, e.Unwrap())
}

func TestIsCategoryMatchesDirectError(t *testing.T) {
	e := New(CategoryAccountingInvariant, "ledger.Reconcile", errors.New("drift"))
	assert.True(t, IsCategory(e, CategoryAccountingInvariant))
	assert.False(t, IsCategory(e, CategoryTransient))
}

func TestIsCategoryMatchesThroughWrappedChain(t *testing.T) {
	inner := New(CategoryVenueSemantic, "executor.PlaceOrder", errors.New("insufficient balance"))
	outer := fmt.Errorf("placing order: %w", inner)
	assert.True(t, IsCategory(outer, CategoryVenueSemantic))
}

func TestIsCategoryFalseForPlainError(t *testing.T) {
	assert.False(t, IsCategory(errors.New("plain"), CategoryTransient))
}

func TestIsCategoryFalseForNilError(t *testing.T) {
	assert.False(t, IsCategory(nil, CategoryTransient))
}
