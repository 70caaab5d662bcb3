package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royale-server/internal/match"
	"royale-server/internal/rules"
)

func TestCreateSessionLimit(t *testing.T) {
	opts := testOptions()
	opts.MaxMatches = 1
	sm := NewSessionManager(opts)
	defer sm.Close()

	sess, err := sm.CreateSession()
	require.NoError(t, err)
	assert.Same(t, sess, sm.GetSession(sess.ID))
	assert.Equal(t, "created", sess.Info().State)

	_, err = sm.CreateSession()
	assert.ErrorIs(t, err, ErrTooManyMatches)
	assert.Equal(t, 1, sm.Count())
}

func TestCreateSessionUnknownScript(t *testing.T) {
	opts := testOptions()
	opts.Scripts = []string{rules.NameGracePeriod, "no_such_script"}
	sm := NewSessionManager(opts)
	defer sm.Close()

	_, err := sm.CreateSession()
	assert.ErrorIs(t, err, rules.ErrUnknownScript)
	assert.Zero(t, sm.Count())
}

func TestAbandonedJoinIsDropped(t *testing.T) {
	sm := NewSessionManager(testOptions())
	defer sm.Close()

	sess, err := sm.CreateSession()
	require.NoError(t, err)

	// stall the match goroutine so the join cannot run before the caller gives up
	release := make(chan struct{})
	require.True(t, sess.Submit(func(*match.Instance) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sess.join(ctx, &Client{}, match.JoinRequest{Name: "late"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)

	type counts struct{ clients, players int }
	got := make(chan counts, 1)
	require.True(t, sess.Submit(func(m *match.Instance) {
		got <- counts{clients: len(sess.clients), players: m.AliveCount()}
	}))
	select {
	case c := <-got:
		assert.Zero(t, c.clients, "no client registered")
		assert.Zero(t, c.players, "no player joined")
	case <-time.After(2 * time.Second):
		t.Fatal("match stopped processing commands")
	}
}

func TestWatchdogTerminatesSilentMatch(t *testing.T) {
	sm := NewSessionManager(testOptions())
	defer sm.Close()

	live, err := sm.CreateSession()
	require.NoError(t, err)

	sm.reap(time.Now())
	assert.Equal(t, 1, sm.Count(), "a beating match survives")

	sm.reap(time.Now().Add(time.Hour))
	assert.Zero(t, sm.Count())
	select {
	case <-live.done:
	case <-time.After(2 * time.Second):
		t.Fatal("terminated match kept running")
	}
}

func TestWatchReturnsOnCancel(t *testing.T) {
	sm := NewSessionManager(testOptions())
	defer sm.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.Watch(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return")
	}
}

func TestCloseRefusesNewMatches(t *testing.T) {
	sm := NewSessionManager(testOptions())
	sess, err := sm.CreateSession()
	require.NoError(t, err)

	sm.Close()
	<-sess.done
	_, err = sm.CreateSession()
	assert.ErrorIs(t, err, context.Canceled)
}
