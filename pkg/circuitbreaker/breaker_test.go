package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New[struct{}](Config{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute})
	boom := errors.New("boom")
	fail := func() (struct{}, error) { return struct{}{}, boom }

	_, err := cb.Execute(fail)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	_, err = cb.Execute(fail)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	called := false
	_, err = cb.Execute(func() (struct{}, error) {
		called = true
		return struct{}{}, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)
}

func TestBreakerPassesResults(t *testing.T) {
	cb := New[int](DefaultConfig("ints"))

	v, err := cb.Execute(func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
