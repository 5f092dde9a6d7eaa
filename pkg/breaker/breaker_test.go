package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

func newTestBreaker() *Breaker {
	return New(Settings{
		Name:         "catalog",
		MaxRequests:  1,
		Timeout:      time.Hour,
		FailureRatio: 0.5,
		MinRequests:  2,
		IsSuccessful: func(err error) bool { return errors.Is(err, errNotFound) },
	}, nil, nil)
}

func TestBreakerTripsAfterFailures(t *testing.T) {
	b := newTestBreaker()
	boom := errors.New("unavailable")

	require.ErrorIs(t, b.Do(func() error { return boom }), boom)
	require.ErrorIs(t, b.Do(func() error { return boom }), boom)
	require.Equal(t, "open", b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrOpen)
	require.False(t, called)
}

func TestBreakerIgnoresBusinessErrors(t *testing.T) {
	b := newTestBreaker()
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Do(func() error { return errNotFound }), errNotFound)
	}
	require.Equal(t, "closed", b.State())
}

func TestCallReturnsValue(t *testing.T) {
	b := newTestBreaker()
	v, err := Call(b, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, v)
}
