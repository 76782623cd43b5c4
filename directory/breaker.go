package directory

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"tutor-chat/contract"
	"tutor-chat/domain"
	"tutor-chat/errors"

	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // time spent open before probing again
}

// BreakerDirectory stops calling a failing Directory Service for a while so
// that inbox listings fail fast instead of waiting on every row.
type BreakerDirectory struct {
	next    contract.IDirectory
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerDirectory(log *slog.Logger, next contract.IDirectory, config BreakerConfig) *BreakerDirectory {
	settings := gobreaker.Settings{
		Name:        "directory",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= max(config.MaxFailures, 1)
		},
		// Unknown users and caller cancellations say nothing about the service health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, errors.ErrUnknownUser) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerDirectory{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerDirectory) GetUserDisplayInfo(ctx context.Context, userID domain.UserID) (domain.UserDisplayInfo, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.GetUserDisplayInfo(ctx, userID)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.UserDisplayInfo{}, fmt.Errorf("%w: %v", errors.ErrDirectoryUnavailable, err)
	}
	if err != nil {
		return domain.UserDisplayInfo{}, err
	}
	return result.(domain.UserDisplayInfo), nil
}

func (b *BreakerDirectory) State() gobreaker.State {
	return b.breaker.State()
}
