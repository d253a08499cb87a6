package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acfsgateway/internal/eventhub"
)

func TestGetSnapshot_AllTimeout_DegradedOrUnhealthy(t *testing.T) {
	slowNTM := NTMCollectorFunc(func(ctx context.Context) (NTMSnapshot, error) {
		<-ctx.Done()
		return NTMSnapshot{}, ctx.Err()
	})
	slowBeads := BeadsCollectorFunc(func(ctx context.Context) (BeadsSnapshot, error) {
		<-ctx.Done()
		return BeadsSnapshot{}, ctx.Err()
	})
	slowTools := ToolHealthCollectorFunc(func(ctx context.Context) (ToolHealthSnapshot, error) {
		<-ctx.Done()
		return ToolHealthSnapshot{}, ctx.Err()
	})
	slowMail := AgentMailCollectorFunc(func(ctx context.Context) (AgentMailSnapshot, error) {
		<-ctx.Done()
		return AgentMailSnapshot{}, ctx.Err()
	})

	svc := NewService(Config{CollectionTimeout: 10 * time.Millisecond}, slowNTM, slowBeads, slowTools, slowMail)
	snap := svc.GetSnapshot(context.Background(), GetOptions{})

	assert.Contains(t, []HealthStatus{StatusDegraded, StatusUnhealthy}, snap.Summary.Status)
	assert.False(t, snap.NTM.Available)
	assert.False(t, snap.Beads.BRAvailable)
	assert.False(t, snap.AgentMail.Available)
}

func TestGetSnapshot_PartialFailure_ToolsDegraded(t *testing.T) {
	slow := func(ctx context.Context) { <-ctx.Done() }
	ntm := NTMCollectorFunc(func(ctx context.Context) (NTMSnapshot, error) { slow(ctx); return NTMSnapshot{}, ctx.Err() })
	beads := BeadsCollectorFunc(func(ctx context.Context) (BeadsSnapshot, error) { slow(ctx); return BeadsSnapshot{}, ctx.Err() })
	mail := AgentMailCollectorFunc(func(ctx context.Context) (AgentMailSnapshot, error) { slow(ctx); return AgentMailSnapshot{}, ctx.Err() })
	tools := ToolHealthCollectorFunc(func(ctx context.Context) (ToolHealthSnapshot, error) {
		return ToolHealthSnapshot{Status: StatusDegraded}, nil
	})

	svc := NewService(Config{CollectionTimeout: 10 * time.Millisecond}, ntm, beads, tools, mail)
	snap := svc.GetSnapshot(context.Background(), GetOptions{})

	assert.Equal(t, StatusDegraded, snap.Summary.Status)
	assert.True(t, snap.Tools.Success)
	assert.Equal(t, StatusDegraded, snap.Tools.Status)
	assert.NotEmpty(t, snap.Summary.Issues)
}

func TestGetSnapshot_CachesWithinTTL(t *testing.T) {
	calls := 0
	ntm := NTMCollectorFunc(func(ctx context.Context) (NTMSnapshot, error) {
		calls++
		return NTMSnapshot{Available: true}, nil
	})
	svc := NewService(Config{CacheTTL: time.Hour}, ntm, nil, nil, nil)

	svc.GetSnapshot(context.Background(), GetOptions{})
	svc.GetSnapshot(context.Background(), GetOptions{})
	assert.Equal(t, 1, calls)

	svc.ClearCache()
	svc.GetSnapshot(context.Background(), GetOptions{})
	assert.Equal(t, 2, calls)
}

func TestGetSnapshot_BypassCache(t *testing.T) {
	calls := 0
	ntm := NTMCollectorFunc(func(ctx context.Context) (NTMSnapshot, error) {
		calls++
		return NTMSnapshot{Available: true}, nil
	})
	svc := NewService(Config{CacheTTL: time.Hour}, ntm, nil, nil, nil)

	svc.GetSnapshot(context.Background(), GetOptions{})
	svc.GetSnapshot(context.Background(), GetOptions{BypassCache: true})
	assert.Equal(t, 2, calls)
}

func TestCacheStats(t *testing.T) {
	svc := NewService(Config{}, nil, nil, nil, nil)
	stats := svc.GetCacheStats()
	assert.False(t, stats.Cached)

	svc.GetSnapshot(context.Background(), GetOptions{})
	stats = svc.GetCacheStats()
	require.True(t, stats.Cached)
}

func TestAllHealthyFold(t *testing.T) {
	ntm := NTMCollectorFunc(func(ctx context.Context) (NTMSnapshot, error) { return NTMSnapshot{Available: true}, nil })
	beads := BeadsCollectorFunc(func(ctx context.Context) (BeadsSnapshot, error) {
		return BeadsSnapshot{BRAvailable: true}, nil
	})
	tools := ToolHealthCollectorFunc(func(ctx context.Context) (ToolHealthSnapshot, error) {
		return ToolHealthSnapshot{Status: StatusHealthy}, nil
	})
	mail := AgentMailCollectorFunc(func(ctx context.Context) (AgentMailSnapshot, error) {
		return AgentMailSnapshot{Available: true, Status: "healthy"}, nil
	})
	svc := NewService(Config{}, ntm, beads, tools, mail)
	snap := svc.GetSnapshot(context.Background(), GetOptions{})
	assert.Equal(t, StatusHealthy, snap.Summary.Status)
	assert.Empty(t, snap.Summary.Issues)
}

func TestGetSnapshot_MetaAndCapturedAt(t *testing.T) {
	ntm := NTMCollectorFunc(func(ctx context.Context) (NTMSnapshot, error) { return NTMSnapshot{Available: true}, nil })
	svc := NewService(Config{}, ntm, nil, nil, AgentMailCollectorFunc(func(ctx context.Context) (AgentMailSnapshot, error) {
		return AgentMailSnapshot{Available: true, Status: "healthy"}, nil
	}))

	snap := svc.GetSnapshot(context.Background(), GetOptions{})

	assert.Equal(t, SchemaVersion, snap.Meta.SchemaVersion)
	assert.False(t, snap.Meta.GeneratedAt.IsZero())
	assert.GreaterOrEqual(t, snap.Meta.GenerationDurationMs, int64(0))
	assert.False(t, snap.NTM.CapturedAt.IsZero())
	assert.False(t, snap.AgentMail.CapturedAt.IsZero())
}

func TestGetSnapshot_PublishesCollectedEvent(t *testing.T) {
	hub := eventhub.New(eventhub.Config{})
	received := make(chan eventhub.Event, 1)
	hub.Subscribe(eventhub.System(eventhub.ChannelSnapshot), 0, func(ev eventhub.Event) {
		received <- ev
	})

	svc := NewService(Config{Hub: hub}, nil, nil, nil, AgentMailCollectorFunc(func(ctx context.Context) (AgentMailSnapshot, error) {
		return AgentMailSnapshot{Available: true, Status: "healthy"}, nil
	}))
	svc.GetSnapshot(context.Background(), GetOptions{})

	select {
	case ev := <-received:
		assert.Equal(t, eventhub.EventSnapshotCollected, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot.collected event published")
	}
}
