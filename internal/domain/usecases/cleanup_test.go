package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestSessionCleanup_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, _ := newTestStore(SessionStoreConfig{TTL: time.Hour})
	c := NewSessionCleanup(s, 10*time.Millisecond, nil)

	c.Start(context.Background())
	assert.True(t, c.IsRunning())

	// second start is a no-op
	c.Start(context.Background())

	c.Stop()
	assert.False(t, c.IsRunning())

	// stopping twice is safe
	c.Stop()
}

func TestSessionCleanup_ExpiresIdleSessions(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, clock := newTestStore(SessionStoreConfig{TTL: time.Minute})
	s.ResolveSession("")
	s.ResolveSession("")
	clock.Advance(2 * time.Minute)

	c := NewSessionCleanup(s, 5*time.Millisecond, nil)
	c.Start(context.Background())
	defer c.Stop()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSessionCleanup_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, _ := newTestStore(SessionStoreConfig{TTL: time.Minute})
	c := NewSessionCleanup(s, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool { return !c.IsRunning() }, time.Second, 5*time.Millisecond)
}
