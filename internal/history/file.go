package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "schedd/pkg/logx"
)

const defaultMaxRecords = 2000

// fileStore is a dependency-free persistence backend: a single append-only
// JSON Lines file. When the file grows past 2x the record bound it is
// compacted in place to the newest records.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	path string
	f    *os.File

	count      int // best-effort line count since open
	maxRecords int
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("history.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	maxRecords := cfg.MaxRecords
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}

	s := &fileStore{log: log, path: path, f: f, maxRecords: maxRecords}
	s.count = s.countLines()
	return s, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *fileStore) AppendRun(ctx context.Context, r RunRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.New("history file closed")
	}
	if err := json.NewEncoder(s.f).Encode(r); err != nil {
		return err
	}
	s.count++
	if s.count > 2*s.maxRecords {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("history compact failed", logx.Err(err))
		}
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *fileStore) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	_ = ctx
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := readRecords(s.path)
	if err != nil {
		return nil, err
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	// newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

// compactLocked rewrites the file keeping only the newest maxRecords entries.
// Uses write-to-temp-then-rename so a crash never loses the whole file.
//
// The live append handle is replaced only after the rename succeeds: on any
// failure s.f still points at a usable file, so appends keep working and a
// later append retries compaction.
func (s *fileStore) compactLocked() error {
	all, err := readRecords(s.path)
	if err != nil {
		return err
	}
	if len(all) > s.maxRecords {
		all = all[len(all)-s.maxRecords:]
	}

	tmp := s.path + ".tmp"
	tf, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tf)
	for _, r := range all {
		if err := enc.Encode(r); err != nil {
			_ = tf.Close()
			return err
		}
	}
	if err := tf.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// The old handle now references the unlinked pre-compaction file; swap it
	// for one on the compacted file before retiring it.
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	_ = s.f.Close()
	s.f = f
	s.count = len(all)
	return nil
}

// countLines is best-effort: a corrupt or unreadable file just means
// compaction triggers later.
func (s *fileStore) countLines() int {
	recs, err := readRecords(s.path)
	if err != nil {
		return 0
	}
	return len(recs)
}

func readRecords(path string) ([]RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []RunRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var r RunRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			// Skip torn/corrupt lines rather than failing the whole read.
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
