package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"edubattle/internal/model"
)

// fakeReader serves a swappable battle snapshot to the watch loop.
type fakeReader struct {
	mu     sync.Mutex
	battle *model.Battle
}

func (r *fakeReader) GetStatus(ctx context.Context, code string) (*model.Battle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.battle == nil {
		return nil, nil
	}
	cp := *r.battle
	return &cp, nil
}

func (r *fakeReader) set(b *model.Battle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.battle = b
}

type recordingSink struct {
	mu         sync.Mutex
	states     []*model.Battle
	heartbeats int
	errs       []string
}

func (s *recordingSink) SendState(b *model.Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, b)
	return nil
}

func (s *recordingSink) SendHeartbeat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats++
	return nil
}

func (s *recordingSink) SendError(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, msg)
	return nil
}

func (s *recordingSink) stateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func fastConfig() NotifierConfig {
	return NotifierConfig{
		TickInterval:      5 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
		StreamBudget:      100 * time.Millisecond,
	}
}

func testBattle(updatedAt time.Time) *model.Battle {
	return &model.Battle{
		Code:      "STREAM",
		Status:    model.BattleWaiting,
		UpdatedAt: updatedAt,
	}
}

func TestWatchPushesInitialStateImmediately(t *testing.T) {
	reader := &fakeReader{battle: testBattle(time.Now())}
	sink := &recordingSink{}
	n := NewNotifier(reader, fastConfig(), zap.NewNop())

	err := n.Watch(context.Background(), "STREAM", sink)
	require.NoError(t, err)
	require.NotEmpty(t, sink.states)
	assert.Equal(t, "STREAM", sink.states[0].Code)
}

func TestWatchSuppressesUnchangedState(t *testing.T) {
	reader := &fakeReader{battle: testBattle(time.Unix(1000, 0))}
	sink := &recordingSink{}
	n := NewNotifier(reader, fastConfig(), zap.NewNop())

	err := n.Watch(context.Background(), "STREAM", sink)
	require.NoError(t, err)
	// Many ticks elapse during the budget, but updatedAt never moved.
	assert.Equal(t, 1, sink.stateCount())
	assert.GreaterOrEqual(t, sink.heartbeats, 1, "quiet stream still heartbeats")
}

func TestWatchPushesOnChangeWithinOneTick(t *testing.T) {
	reader := &fakeReader{battle: testBattle(time.Unix(1000, 0))}
	sink := &recordingSink{}
	cfg := fastConfig()
	n := NewNotifier(reader, cfg, zap.NewNop())

	go func() {
		time.Sleep(3 * cfg.TickInterval)
		reader.set(testBattle(time.Unix(2000, 0)))
	}()

	err := n.Watch(context.Background(), "STREAM", sink)
	require.NoError(t, err)
	assert.Equal(t, 2, sink.stateCount(), "one push per distinct updatedAt")
}

func TestWatchUnknownCodeEmitsErrorAndCloses(t *testing.T) {
	reader := &fakeReader{}
	sink := &recordingSink{}
	n := NewNotifier(reader, fastConfig(), zap.NewNop())

	start := time.Now()
	err := n.Watch(context.Background(), "GHOST", sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"battle not found"}, sink.errs)
	assert.Empty(t, sink.states)
	assert.Less(t, time.Since(start), 50*time.Millisecond, "not-found must close promptly, not run out the budget")
}

func TestWatchStopsWhenBattleDisappears(t *testing.T) {
	reader := &fakeReader{battle: testBattle(time.Now())}
	sink := &recordingSink{}
	cfg := fastConfig()
	n := NewNotifier(reader, cfg, zap.NewNop())

	go func() {
		time.Sleep(3 * cfg.TickInterval)
		reader.set(nil)
	}()

	start := time.Now()
	err := n.Watch(context.Background(), "STREAM", sink)
	require.NoError(t, err)
	assert.NotEmpty(t, sink.errs)
	assert.Less(t, time.Since(start), cfg.StreamBudget)
}

func TestWatchHonorsConsumerCancellation(t *testing.T) {
	reader := &fakeReader{battle: testBattle(time.Now())}
	sink := &recordingSink{}
	cfg := fastConfig()
	cfg.StreamBudget = time.Minute
	n := NewNotifier(reader, cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := n.Watch(ctx, "STREAM", sink)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "disconnect must release the loop promptly")
}

func TestWatchClosesAtBudget(t *testing.T) {
	reader := &fakeReader{battle: testBattle(time.Now())}
	sink := &recordingSink{}
	cfg := fastConfig()
	cfg.StreamBudget = 30 * time.Millisecond
	n := NewNotifier(reader, cfg, zap.NewNop())

	start := time.Now()
	err := n.Watch(context.Background(), "STREAM", sink)
	require.NoError(t, err)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, cfg.StreamBudget)
	assert.Less(t, elapsed, cfg.StreamBudget+100*time.Millisecond)
}
