package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"edubattle/internal/model"
)

// Notifier timing defaults. The budget sits under the platform's execution
// ceiling so streams self-terminate before the runtime kills them; clients
// reconnect and resynchronize from a fresh fetch.
const (
	DefaultTickInterval      = 1 * time.Second
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultStreamBudget      = 25 * time.Second
)

// StateReader is the read-only store view the notifier polls.
type StateReader interface {
	GetStatus(ctx context.Context, code string) (*model.Battle, error)
}

// StreamSink receives notifier output. Implementations adapt it to a
// transport: SSE events, websocket frames.
type StreamSink interface {
	SendState(battle *model.Battle) error
	SendHeartbeat() error
	SendError(message string) error
}

// NotifierConfig tunes the watch loop; zero values take the defaults above.
type NotifierConfig struct {
	TickInterval      time.Duration
	HeartbeatInterval time.Duration
	StreamBudget      time.Duration
}

func (c NotifierConfig) withDefaults() NotifierConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.StreamBudget <= 0 {
		c.StreamBudget = DefaultStreamBudget
	}
	return c
}

// Notifier exposes battle state to observers as a bounded-duration push
// stream: poll the store on a fixed tick, forward only when updatedAt moved.
// Each Watch call is one stream instance; closing is terminal and the
// consumer owns reconnecting.
type Notifier struct {
	reader StateReader
	cfg    NotifierConfig
	logger *zap.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(reader StateReader, cfg NotifierConfig, logger *zap.Logger) *Notifier {
	return &Notifier{
		reader: reader,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Watch streams battle state for code into sink until the consumer
// disconnects (ctx), the battle disappears from the store, or the wall-clock
// budget runs out. It never surfaces store errors to the sink as a stream
// failure; the only error return is a sink write failure.
//
// Delivery contract: the latest state after any mutation arrives within one
// tick; intermediate states superseded before the tick are coalesced away.
func (n *Notifier) Watch(ctx context.Context, code string, sink StreamSink) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.StreamBudget)
	defer cancel()

	tick := time.NewTicker(n.cfg.TickInterval)
	defer tick.Stop()
	heartbeat := time.NewTicker(n.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	var lastPushed time.Time

	// First fetch-and-push before any tick elapses.
	done, err := n.poll(ctx, code, sink, &lastPushed)
	if done || err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			done, err := n.poll(ctx, code, sink, &lastPushed)
			if done || err != nil {
				return err
			}
		case <-heartbeat.C:
			if err := sink.SendHeartbeat(); err != nil {
				return err
			}
		}
	}
}

// poll fetches current state and pushes it when changed. done=true means the
// stream must close (battle gone); err is a sink write failure.
func (n *Notifier) poll(ctx context.Context, code string, sink StreamSink, lastPushed *time.Time) (done bool, err error) {
	battle, err := n.reader.GetStatus(ctx, code)
	if err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		// Transient store trouble: skip this tick, keep the stream open.
		n.logger.Warn("stream poll failed", zap.String("code", code), zap.Error(err))
		return false, nil
	}
	if battle == nil {
		if serr := sink.SendError("battle not found"); serr != nil {
			return true, serr
		}
		return true, nil
	}
	if battle.UpdatedAt.Equal(*lastPushed) {
		return false, nil // diff-suppression: nothing observable changed
	}
	if serr := sink.SendState(battle); serr != nil {
		return true, serr
	}
	*lastPushed = battle.UpdatedAt
	return false, nil
}
