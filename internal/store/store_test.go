package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "royale.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestHashIP(t *testing.T) {
	a, err := HashIP("salt", "10.0.0.1")
	require.NoError(t, err)
	b, err := HashIP("salt", "10.0.0.1")
	require.NoError(t, err)
	c, err := HashIP("pepper", "10.0.0.1")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "10.0.0.1")

	_, err = HashIP(strings.Repeat("x", 65), "10.0.0.1")
	assert.Error(t, err)
}

func TestNewJoinLogRejectsLongSalt(t *testing.T) {
	db := openTestDB(t)
	_, err := NewJoinLog(db, JoinConfig{Salt: strings.Repeat("x", 65)}, zerolog.Nop())
	assert.Error(t, err)
}

func TestJoinLogFlushesOnClose(t *testing.T) {
	db := openTestDB(t)
	jl, err := NewJoinLog(db, JoinConfig{Salt: "s", FlushInterval: time.Hour}, zerolog.Nop())
	require.NoError(t, err)

	assert.True(t, jl.Track("alice", "1.2.3.4"))
	assert.True(t, jl.Track("alice", "1.2.3.4"))
	assert.True(t, jl.Track("bob", "1.2.3.4"))
	assert.True(t, jl.Track("carol", "5.6.7.8"))
	jl.Close()

	recs, err := jl.LookupIP(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	counts := map[string]int{}
	for _, r := range recs {
		counts[r.Name] = r.Count
		assert.False(t, r.LastJoin.IsZero())
	}
	assert.Equal(t, map[string]int{"alice": 2, "bob": 1}, counts)

	other, err := jl.LookupIP(context.Background(), "5.6.7.8")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "carol", other[0].Name)

	assert.False(t, jl.Track("dave", "1.2.3.4"), "closed log accepts nothing")
	jl.Close()
}

func TestJoinLogFlushesFullBatch(t *testing.T) {
	db := openTestDB(t)
	jl, err := NewJoinLog(db, JoinConfig{Salt: "s", BatchSize: 2, FlushInterval: time.Hour}, zerolog.Nop())
	require.NoError(t, err)
	defer jl.Close()

	jl.Track("alice", "1.2.3.4")
	jl.Track("bob", "1.2.3.4")

	assert.Eventually(t, func() bool {
		recs, err := jl.LookupIP(context.Background(), "1.2.3.4")
		return err == nil && len(recs) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJoinLogFlushesOnTicker(t *testing.T) {
	db := openTestDB(t)
	jl, err := NewJoinLog(db, JoinConfig{Salt: "s", FlushInterval: 10 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)
	defer jl.Close()

	jl.Track("alice", "1.2.3.4")
	assert.Eventually(t, func() bool {
		recs, err := jl.LookupIP(context.Background(), "1.2.3.4")
		return err == nil && len(recs) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLookupUnknownHash(t *testing.T) {
	db := openTestDB(t)
	jl, err := NewJoinLog(db, JoinConfig{}, zerolog.Nop())
	require.NoError(t, err)
	defer jl.Close()

	recs, err := jl.Lookup(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
