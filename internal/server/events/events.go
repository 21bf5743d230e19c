package events

import (
	"context"
	"errors"
	"sync"

	"casino-engine/engine"
	"casino-engine/models"

	"github.com/charmbracelet/log"
)

// Fanout delivers every event to each registered publisher. One failing
// publisher does not stop the others; their errors are joined.
type Fanout struct {
	mu         sync.RWMutex
	publishers []engine.Publisher
}

func NewFanout(publishers ...engine.Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

func (f *Fanout) Add(p engine.Publisher) {
	f.mu.Lock()
	f.publishers = append(f.publishers, p)
	f.mu.Unlock()
}

func (f *Fanout) Publish(ctx context.Context, channel string, event models.Event) error {
	f.mu.RLock()
	publishers := f.publishers
	f.mu.RUnlock()

	var errs []error
	for _, p := range publishers {
		if err := p.Publish(ctx, channel, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logger records engine events in the process log. Round results and
// deletions are logged at info level, the rest at debug.
func Logger(logger *log.Logger) engine.Publisher {
	return engine.PublisherFunc(func(_ context.Context, channel string, event models.Event) error {
		switch event.Event {
		case models.EventGameResult:
			if result, ok := event.Data.(models.GameResultEvent); ok {
				logger.Info("round result", "table", event.TableID, "game", result.Game, "winners", len(result.Payouts))
				return nil
			}
		case models.EventTableDeleted:
			logger.Info("table deleted", "channel", channel)
			return nil
		case models.EventGameStateChanged:
			if change, ok := event.Data.(models.GameStateChangedEvent); ok {
				logger.Debug("state changed", "table", event.TableID, "state", change.State)
				return nil
			}
		}
		logger.Debug("event", "channel", channel, "event", event.Event)
		return nil
	})
}
