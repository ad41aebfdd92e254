// Package circuit implements per-substation circuit breaking for the
// forward path
package circuit

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"gridbalancer/internal/types"
)

// breakerRegistry keeps one circuit breaker per substation so repeated
// forward failures against one substation trip fast without touching the
// others.
type breakerRegistry struct {
	mu               sync.Mutex
	breakers         map[string]*gobreaker.CircuitBreaker
	failureThreshold int
	timeout          time.Duration
	logger           types.Logger
}

// NewBreakerRegistry creates a new per-substation circuit breaker registry
func NewBreakerRegistry(failureThreshold int, timeout time.Duration, logger types.Logger) types.CircuitBreaker {
	return &breakerRegistry{
		breakers:         make(map[string]*gobreaker.CircuitBreaker),
		failureThreshold: failureThreshold,
		timeout:          timeout,
		logger:           logger,
	}
}

// Execute runs fn under the substation's breaker
func (br *breakerRegistry) Execute(substationID string, fn func() error) error {
	breaker := br.get(substationID)

	_, err := breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return types.ErrCircuitBreakerOpen
	}
	return err
}

// Forget drops breaker state for a removed substation
func (br *breakerRegistry) Forget(substationID string) {
	br.mu.Lock()
	defer br.mu.Unlock()
	delete(br.breakers, substationID)
}

func (br *breakerRegistry) get(substationID string) *gobreaker.CircuitBreaker {
	br.mu.Lock()
	defer br.mu.Unlock()

	if breaker, ok := br.breakers[substationID]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:    substationID,
		Timeout: br.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(br.failureThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			br.logger.Warn("circuit breaker state changed",
				"substation_id", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	breaker := gobreaker.NewCircuitBreaker(settings)
	br.breakers[substationID] = breaker
	return breaker
}

// NopBreaker satisfies types.CircuitBreaker without any protection, for
// configurations that disable circuit breaking.
type NopBreaker struct{}

// Execute runs fn directly
func (NopBreaker) Execute(substationID string, fn func() error) error {
	return fn()
}

// Forget is a no-op
func (NopBreaker) Forget(substationID string) {}
