package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
)

// JoinConfig tunes the background writer
type JoinConfig struct {
	Salt          string        `mapstructure:"salt"` // key for the address hash, at most 64 bytes
	Queue         int           `mapstructure:"queue"`
	BatchSize     int           `mapstructure:"batchSize"`
	FlushInterval time.Duration `mapstructure:"flushInterval"`
}

// DefaultJoinConfig returns the writer defaults
func DefaultJoinConfig() JoinConfig {
	return JoinConfig{Queue: 1024, BatchSize: 50, FlushInterval: 5 * time.Second}
}

// JoinRecord is how often one name joined from one address
type JoinRecord struct {
	IPHash   string
	Name     string
	Count    int
	LastJoin time.Time
}

// fixed width so last_join sorts as text
const timeFormat = "2006-01-02T15:04:05.000000000Z"

type joinEntry struct {
	hash string
	name string
	at   time.Time
}

// JoinLog records joins with batched background writes. Addresses are only
// ever stored as keyed hashes.
type JoinLog struct {
	db      *DB
	cfg     JoinConfig
	log     zerolog.Logger
	entries chan joinEntry
	stop    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Int64
}

// NewJoinLog creates and starts the join log writer
func NewJoinLog(db *DB, cfg JoinConfig, log zerolog.Logger) (*JoinLog, error) {
	if len(cfg.Salt) > blake2b.Size {
		return nil, fmt.Errorf("store: salt longer than %d bytes", blake2b.Size)
	}
	def := DefaultJoinConfig()
	if cfg.Queue <= 0 {
		cfg.Queue = def.Queue
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	j := &JoinLog{
		db:      db,
		cfg:     cfg,
		log:     log.With().Str("component", "joinlog").Logger(),
		entries: make(chan joinEntry, cfg.Queue),
		stop:    make(chan struct{}),
	}
	j.wg.Add(1)
	go j.writer()
	return j, nil
}

// HashIP returns the hex keyed BLAKE2b-256 digest of ip
func HashIP(salt, ip string) (string, error) {
	h, err := blake2b.New256([]byte(salt))
	if err != nil {
		return "", fmt.Errorf("store: hash key: %w", err)
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Track enqueues a join without blocking. It returns false when the entry
// was dropped.
func (j *JoinLog) Track(name, ip string) bool {
	if j.closed.Load() {
		return false
	}
	hash, err := HashIP(j.cfg.Salt, ip)
	if err != nil {
		return false
	}
	select {
	case j.entries <- joinEntry{hash: hash, name: name, at: time.Now().UTC()}:
		return true
	default:
		j.dropped.Add(1)
		return false
	}
}

// Dropped returns how many entries were lost to a full queue
func (j *JoinLog) Dropped() int64 { return j.dropped.Load() }

// Close stops the writer after flushing what is queued
func (j *JoinLog) Close() {
	if j.closed.Swap(true) {
		return
	}
	close(j.stop)
	j.wg.Wait()
}

func (j *JoinLog) writer() {
	defer j.wg.Done()

	batch := make([]joinEntry, 0, j.cfg.BatchSize)
	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-j.entries:
			batch = append(batch, e)
			if len(batch) >= j.cfg.BatchSize {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-j.stop:
			for {
				select {
				case e := <-j.entries:
					batch = append(batch, e)
				default:
					j.flush(batch)
					return
				}
			}
		}
	}
}

// flush upserts a batch in one transaction
func (j *JoinLog) flush(batch []joinEntry) {
	if len(batch) == 0 {
		return
	}
	tx, err := j.db.conn.Begin()
	if err != nil {
		j.log.Error().Err(err).Msg("begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO join_log (ip_hash, name, count, last_join) VALUES (?, ?, 1, ?)
		ON CONFLICT(ip_hash, name) DO UPDATE SET count = count + 1, last_join = excluded.last_join`)
	if err != nil {
		j.log.Error().Err(err).Msg("prepare upsert")
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.Exec(e.hash, e.name, e.at.Format(timeFormat)); err != nil {
			j.log.Error().Err(err).Str("name", e.name).Msg("upsert join")
		}
	}
	if err := tx.Commit(); err != nil {
		j.log.Error().Err(err).Msg("commit joins")
		return
	}
	j.log.Debug().Int("entries", len(batch)).Msg("joins flushed")
}

// Lookup returns every name seen from the address hash, most recent first
func (j *JoinLog) Lookup(ctx context.Context, hash string) ([]JoinRecord, error) {
	rows, err := j.db.conn.QueryContext(ctx,
		`SELECT ip_hash, name, count, last_join FROM join_log WHERE ip_hash = ? ORDER BY last_join DESC, name`, hash)
	if err != nil {
		return nil, fmt.Errorf("store: lookup: %w", err)
	}
	defer rows.Close()

	var out []JoinRecord
	for rows.Next() {
		var r JoinRecord
		var last string
		if err := rows.Scan(&r.IPHash, &r.Name, &r.Count, &last); err != nil {
			return nil, fmt.Errorf("store: scan join: %w", err)
		}
		if r.LastJoin, err = time.Parse(timeFormat, last); err != nil {
			return nil, fmt.Errorf("store: parse last join: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LookupIP hashes ip with the log's salt and looks it up
func (j *JoinLog) LookupIP(ctx context.Context, ip string) ([]JoinRecord, error) {
	hash, err := HashIP(j.cfg.Salt, ip)
	if err != nil {
		return nil, err
	}
	return j.Lookup(ctx, hash)
}
