package evaluator

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when the local token bucket rejects a call
// before it reaches the provider.
var ErrRateLimited = errors.New("evaluator rate limited")

// GuardConfig controls the circuit breaker and rate limiter wrapped around
// evaluator calls
type GuardConfig struct {
	RPS                 float64       `yaml:"rps"`
	Burst               int           `yaml:"burst"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

// DefaultGuardConfig returns conservative limits for a paid inference API
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RPS:                 2.0,
		Burst:               4,
		ConsecutiveFailures: 5,
		OpenTimeout:         60 * time.Second,
	}
}

// Guard protects the inference provider with a rate limiter in front of a
// circuit breaker
type Guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuard builds a guard from config
func NewGuard(config GuardConfig) *Guard {
	settings := gobreaker.Settings{
		Name:    "ai_evaluator",
		Timeout: config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("Evaluator circuit state change")
		},
	}

	return &Guard{
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(config.RPS), config.Burst),
	}
}

// Execute runs fn behind the limiter and breaker. Rejections surface as
// ErrRateLimited or gobreaker.ErrOpenState.
func (g *Guard) Execute(fn func() (interface{}, error)) (interface{}, error) {
	if !g.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return g.breaker.Execute(fn)
}

// State exposes the breaker state for health reporting
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// IsUnavailable reports whether err is a guard rejection rather than a
// provider failure
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}
