package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/angelmondragon/acertamais-backend/pkg/logger"
	"github.com/angelmondragon/acertamais-backend/pkg/metrics"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// Settings tune when the breaker trips.
type Settings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
	// IsSuccessful classifies errors that must not count as failures
	// (not found, validation). Nil counts every error.
	IsSuccessful func(err error) bool
}

// Breaker wraps gobreaker with logging and prometheus state.
type Breaker struct {
	cb      *gobreaker.CircuitBreaker
	name    string
	metrics *metrics.BreakerMetrics
}

func New(s Settings, logg *logger.Logger, m *metrics.BreakerMetrics) *Breaker {
	b := &Breaker{name: s.Name, metrics: m}
	minRequests := s.MinRequests
	if minRequests == 0 {
		minRequests = 1
	}
	ratio := s.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return s.IsSuccessful != nil && s.IsSuccessful(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.SetState(name, stateValue(to))
			if logg != nil {
				ctx := logg.WithFields(context.Background(), map[string]any{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
				logg.Warn(ctx, "circuit breaker state changed")
			}
		},
	})
	m.SetState(s.Name, metrics.BreakerClosed)
	return b
}

// Do runs fn through the breaker. Rejections surface as ErrOpen.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.metrics.IncFailure(b.name)
		return ErrOpen
	}
	if err != nil {
		b.metrics.IncFailure(b.name)
	}
	return err
}

// State returns the current breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Call is Do for functions that return a value.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var out T
	err := b.Do(func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}
