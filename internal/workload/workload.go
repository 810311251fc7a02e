package workload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/rrgate/internal/gateway"
)

// tableAddr is the fake address of the workload's stable hash table.
const tableAddr uintptr = 0x7000

// Config sizes a run.
type Config struct {
	Workers int `json:"workers"`
	Rounds  int `json:"rounds"`
}

// DefaultConfig is used for zero fields.
var DefaultConfig = Config{Workers: 4, Rounds: 16}

// Result summarizes a run.
type Result struct {
	RecordingID string `json:"recording_id,omitempty"`
	Replaying   bool   `json:"replaying"`
	Counter     int    `json:"counter"`
	Entries     int    `json:"entries"`
	Digest      string `json:"digest"`
	Diverged    bool   `json:"diverged"`
}

// entry is one row of the shared log.
type entry struct {
	worker int
	round  int
	value  uintptr
	code   uint32
}

type state struct {
	g   *gateway.Gateway
	mu  *gateway.OrderedMutex
	tbl *gateway.StableHashTable

	// Guarded by mu.
	log   []entry
	keys  map[uintptr]string
	addrs int
}

func (s *state) keyEquals(private, key any, addr uintptr) bool {
	return s.keys[addr] == key.(string)
}

// Run executes the workload on g and returns its summary. The gateway's
// main thread creates the first checkpoint and the worker threads, so thread
// IDs are the same in every run with the same Config.
func Run(ctx context.Context, g *gateway.Gateway, cfg Config) (Result, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig.Workers
	}
	if cfg.Rounds <= 0 {
		cfg.Rounds = DefaultConfig.Rounds
	}

	main := g.MainThread()
	s := &state{
		g:    g,
		mu:   g.NewOrderedMutex("workload.log"),
		keys: make(map[uintptr]string),
	}
	if g.IsRecordingOrReplaying() {
		s.tbl = g.NewStableHashTable(tableAddr, s.keyEquals, nil)
	}

	var res Result
	var runErr error
	main.WithCrashNote("workload", func() {
		g.CreateCheckpoint()

		threads := make([]*gateway.Thread, cfg.Workers)
		for i := range threads {
			threads[i] = g.NewThread(fmt.Sprintf("worker-%d", i))
		}

		eg, egCtx := errgroup.WithContext(ctx)
		for i, th := range threads {
			eg.Go(func() error {
				return s.work(egCtx, th, i, cfg.Rounds)
			})
		}
		runErr = eg.Wait()

		g.MaybeCreateCheckpoint()

		digest := s.digest()
		g.AssertBytes(main, "workload.digest", digest)

		res = Result{
			RecordingID: g.RecordingID(),
			Replaying:   g.IsReplaying(),
			Counter:     len(s.log),
			Entries:     len(s.keys),
			Digest:      hex.EncodeToString(digest),
			Diverged:    g.HasDivergedFromRecording(),
		}
	})
	if runErr != nil {
		return Result{}, fmt.Errorf("workload: %w", runErr)
	}
	return res, nil
}

func (s *state) work(ctx context.Context, th *gateway.Thread, worker, rounds int) error {
	for round := 0; round < rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		value := s.g.RecordReplayValue(th, "workload.random", uintptr(rand.Uint32()))

		s.mu.Lock(th)
		code := s.intern(fmt.Sprintf("v%d", value%64))
		s.log = append(s.log, entry{worker: worker, round: round, value: value, code: code})
		s.mu.Unlock(th)

		s.g.Assert(th, "workload %d:%d %d", worker, round, code)
	}
	return nil
}

// intern adds key to the stable hash table unless present and returns its
// stable code. Caller holds s.mu.
func (s *state) intern(key string) uint32 {
	if s.tbl == nil {
		for addr, k := range s.keys {
			if k == key {
				return uint32(addr)
			}
		}
		s.addrs++
		s.keys[uintptr(s.addrs)] = key
		return uint32(s.addrs)
	}

	// The host's own hash is not stable across runs.
	l := s.tbl.LookupHashCode(key, rand.Uint32())
	if l.Found {
		return l.Code
	}
	s.addrs++
	addr := tableAddr + uintptr(s.addrs)
	s.keys[addr] = key
	if err := s.tbl.AddEntryForLastLookup(l, addr); err != nil {
		s.g.InvalidateRecording(err.Error())
	}
	return l.Code
}

func (s *state) digest() []byte {
	h := sha256.New()
	for _, e := range s.log {
		fmt.Fprintf(h, "%d:%d:%d:%d\n", e.worker, e.round, e.value, e.code)
	}
	return h.Sum(nil)
}
