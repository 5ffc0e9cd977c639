package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

const (
	// breakerFailures consecutive failed completions open the circuit.
	breakerFailures = 5
	// breakerCooldown is how long an open circuit rejects calls before a trial call.
	breakerCooldown = time.Minute
)

// ErrUnavailable is returned without calling the backend while the circuit
// is open.
var ErrUnavailable = errors.New("ai backend temporarily unavailable")

// breakerClient stops calling a backend that keeps failing.
type breakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

func withBreaker(name string, next Client, failures uint32, cooldown time.Duration, log *slog.Logger) *breakerClient {
	return &breakerClient{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("AI circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Complete implements Client.
func (c *breakerClient) Complete(ctx context.Context, req Request) (string, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.next.Complete(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
