package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/goa1590/internal/events"
)

// JournalEntry is one line of the event journal.
type JournalEntry struct {
	Day     int          `json:"day"`
	Hour    int          `json:"hour"`
	Minute  int          `json:"minute"`
	Type    events.Kind  `json:"type"`
	Payload events.Event `json:"payload"`
}

// Clock supplies the game time stamped on each entry.
type Clock interface {
	Day() int
	Hour() int
	Minute() int
}

// Journal writes every bus event as compressed JSONL, one file per game day.
type Journal struct {
	baseDir string
	prefix  string

	// SkipMinutes drops MinuteChange events, which otherwise dominate the journal.
	SkipMinutes bool

	mu     sync.Mutex
	curDay int
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

// NewJournal creates a journal writing under baseDir.
func NewJournal(baseDir string) *Journal {
	return &Journal{baseDir: baseDir, prefix: "events", curDay: -1}
}

// Attach subscribes the journal to every event on the bus. Write errors are logged.
func (j *Journal) Attach(bus *events.Bus, clock Clock) {
	bus.SubscribeAll(func(e events.Event) {
		if j.SkipMinutes && e.Kind() == events.KindMinuteChange {
			return
		}
		entry := JournalEntry{
			Day:     clock.Day(),
			Hour:    clock.Hour(),
			Minute:  clock.Minute(),
			Type:    e.Kind(),
			Payload: e,
		}
		if err := j.Write(entry); err != nil {
			slog.Error("journal write failed", "type", e.Kind(), "error", err)
		}
	})
}

// Write appends one entry, rotating to a new file when the game day changes.
func (j *Journal) Write(entry JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.Day != j.curDay || j.w == nil {
		if err := j.rotateLocked(entry.Day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := j.w.Flush(); err != nil {
		return err
	}
	// End a zstd block so the entry is on disk before the frame is closed.
	return j.enc.Flush()
}

// Close flushes and closes the current file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

// PathForDay is the journal file holding a game day's events.
func (j *Journal) PathForDay(day int) string {
	return filepath.Join(j.baseDir, fmt.Sprintf("%s-day%05d.jsonl.zst", j.prefix, day))
}

func (j *Journal) rotateLocked(day int) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.PathForDay(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 64*1024)
	j.curDay = day
	return nil
}

func (j *Journal) closeLocked() error {
	var err error
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.enc != nil {
		err = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		_ = j.f.Close()
		j.f = nil
	}
	j.w = nil
	return err
}

// ReadJournal decodes every entry of one journal file. Payloads are left as raw JSON.
func ReadJournal(path string) ([]RawEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []RawEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e RawEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("decode journal line %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		// A day file whose writer never closed ends mid-frame; its flushed entries stand.
		if errors.Is(err, io.ErrUnexpectedEOF) {
			slog.Warn("journal ends in an unfinished frame", "path", path, "entries", len(out))
			return out, nil
		}
		return out, err
	}
	return out, nil
}

// RawEntry is a journal line as read back from disk.
type RawEntry struct {
	Day     int             `json:"day"`
	Hour    int             `json:"hour"`
	Minute  int             `json:"minute"`
	Type    events.Kind     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
