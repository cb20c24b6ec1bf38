package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("forecasting: %w", newError(KindInsufficientData, "need 7 days"))
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.NotErrorIs(t, err, ErrNoData)

	var ee *Error
	assert.True(t, errors.As(err, &ee))
	assert.Equal(t, KindInsufficientData, ee.Kind)
	assert.Equal(t, "insufficient data: need 7 days", ee.Error())
	assert.Equal(t, "no data", ErrNoData.Error())
}
