package notify

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/aristath/buildplan/internal/events"
)

// RetryConfig configures exponential backoff retry behavior for deliveries.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial retry interval (default 100ms)
	MaxInterval         time.Duration // Maximum retry interval (default 10s)
	MaxElapsedTime      time.Duration // Maximum total retry time (default 2min)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// Service forwards bus events to a sink, retrying transient failures and
// tripping a circuit breaker when the receiver stays down.
type Service struct {
	bus      *events.EventBus
	sink     Sink
	breaker  *gobreaker.CircuitBreaker
	retryCfg RetryConfig
	log      zerolog.Logger
}

// NewService creates a notification service consuming every bus topic.
func NewService(bus *events.EventBus, sink Sink, retryCfg RetryConfig, log zerolog.Logger) *Service {
	svc := &Service{
		bus:      bus,
		sink:     sink,
		retryCfg: retryCfg,
		log:      log,
	}

	svc.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 3, // Allow 3 test requests in half-open state
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Caller cancellation is not a receiver failure.
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return svc
}

// Run consumes events until the context is cancelled or the bus closes.
// Blocks; run it in its own goroutine.
func (s *Service) Run(ctx context.Context) error {
	ch := s.bus.SubscribeAll(0)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.deliver(ctx, event); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				s.log.Error().
					Err(err).
					Str("event", event.EventType()).
					Str("project", event.ProjectID()).
					Msg("failed to deliver notification")
				continue
			}
			s.log.Debug().
				Str("event", event.EventType()).
				Str("project", event.ProjectID()).
				Msg("notification delivered")
		}
	}
}

// deliver sends one event with exponential backoff retry behind the
// circuit breaker.
func (s *Service) deliver(ctx context.Context, event events.Event) error {
	payload := Payload{
		Type:      event.EventType(),
		ProjectID: event.ProjectID(),
		Event:     event,
		SentAt:    time.Now().UTC(),
	}

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.sink.Deliver(ctx, payload)
		})
		if err != nil {
			// Open circuit means the receiver is down. Give up on this
			// event instead of burning the retry budget.
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = s.retryCfg.InitialInterval
	backoffPolicy.MaxInterval = s.retryCfg.MaxInterval
	backoffPolicy.MaxElapsedTime = s.retryCfg.MaxElapsedTime
	backoffPolicy.Multiplier = s.retryCfg.Multiplier
	backoffPolicy.RandomizationFactor = s.retryCfg.RandomizationFactor

	return backoff.Retry(operation, backoff.WithContext(backoffPolicy, ctx))
}
