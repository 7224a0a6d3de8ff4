package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroker = errors.New("broker down")

func TestBreaker_PassesThroughWhileClosed(t *testing.T) {
	b := New(Settings{Name: "test"})

	calls := 0
	require.NoError(t, b.Do(func() error { calls++; return nil }))
	assert.ErrorIs(t, b.Do(func() error { calls++; return errBroker }), errBroker)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	var transitions []string
	b := New(Settings{
		Name:                "test",
		ConsecutiveFailures: 3,
		OpenTimeout:         time.Minute,
		OnStateChange: func(_ string, from, to string) {
			transitions = append(transitions, from+"->"+to)
		},
	})

	for range 3 {
		assert.ErrorIs(t, b.Do(func() error { return errBroker }), errBroker)
	}
	assert.Equal(t, "open", b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	b := New(Settings{Name: "test", ConsecutiveFailures: 1, OpenTimeout: 20 * time.Millisecond})

	assert.ErrorIs(t, b.Do(func() error { return errBroker }), errBroker)
	assert.Equal(t, "open", b.State())

	time.Sleep(40 * time.Millisecond)
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, "closed", b.State())
}
