// Package localdb is a bilingual phrase map kept in line-aligned text files.
//
// A database directory holds one file per language code (<code>.txt). Line i
// of the source-language file translates to line i of the target-language file.
// New pairs are buffered in memory and only written on Flush.
package localdb

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
)

const maxLineBytes = 1 << 20

type pair struct{ src, dst string }

// DB is safe for concurrent use.
type DB struct {
	mu      sync.Mutex
	dir     string
	from    string
	to      string
	entries map[string]string
	pending []pair
	usable  bool
}

// Open loads the from→to pair stored under root/dir. Missing files mean the
// pair has not been initialized yet and yield an empty database.
func Open(root, dir, from, to string) (*DB, error) {
	d := &DB{dir: filepath.Join(root, dir)}
	if err := d.load(from, to); err != nil {
		return nil, err
	}
	return d, nil
}

// Reopen points an existing database at the from→to pair. When prev already
// lives in root/dir it is switched in place with SetLanguagePair, so pairs
// buffered by in-flight work are kept. Otherwise prev is flushed before the
// new database is read from disk.
func Reopen(prev *DB, root, dir, from, to string) (*DB, error) {
	if prev == nil {
		return Open(root, dir, from, to)
	}
	if prev.dir == filepath.Join(root, dir) {
		if !prev.SetLanguagePair(from, to) {
			slog.Warn("local db unusable after language switch", "dir", prev.dir, "from", from, "to", to)
		}
		return prev, nil
	}
	if err := prev.Flush(); err != nil {
		slog.Error("local db flush failed", "dir", prev.dir, "error", err)
	}
	return Open(root, dir, from, to)
}

func (d *DB) path(code string) string {
	return filepath.Join(d.dir, code+".txt")
}

// load replaces the in-memory map. Callers hold mu or own d exclusively.
func (d *DB) load(from, to string) error {
	d.from, d.to = from, to
	d.entries = make(map[string]string)
	d.pending = nil
	d.usable = false

	src, err := readLines(d.path(from))
	if err != nil {
		return apperrors.Wrapf(err, apperrors.LocalDBFailed, "load %s", d.path(from))
	}
	dst, err := readLines(d.path(to))
	if err != nil {
		return apperrors.Wrapf(err, apperrors.LocalDBFailed, "load %s", d.path(to))
	}
	if len(src) != len(dst) {
		slog.Warn("local db files are not aligned", "dir", d.dir, from, len(src), to, len(dst))
	}
	for i := range min(len(src), len(dst)) {
		if _, dup := d.entries[src[i]]; !dup && src[i] != "" {
			d.entries[src[i]] = dst[i]
		}
	}
	d.usable = true
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		lines = append(lines, unescape(strings.TrimSuffix(sc.Text(), "\r")))
	}
	return lines, sc.Err()
}

// Get returns the stored translation of text. Exact match only.
func (d *DB) Get(text string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.usable {
		return "", false
	}
	tr, ok := d.entries[text]
	return tr, ok
}

// Put buffers a pair. A text that is already known keeps its translation.
func (d *DB) Put(text, translation string) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(translation) == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.usable {
		return
	}
	if _, ok := d.entries[text]; ok {
		return
	}
	d.entries[text] = translation
	d.pending = append(d.pending, pair{text, translation})
}

// Flush appends the buffered pairs to both files and clears the buffer.
func (d *DB) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushLocked()
}

func (d *DB) flushLocked() error {
	if len(d.pending) == 0 {
		return nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return apperrors.Wrapf(err, apperrors.LocalDBFailed, "create %s", d.dir)
	}

	var src, dst strings.Builder
	for _, p := range d.pending {
		src.WriteString(escape(p.src))
		src.WriteByte('\n')
		dst.WriteString(escape(p.dst))
		dst.WriteByte('\n')
	}
	if err := appendFile(d.path(d.from), src.String()); err != nil {
		return err
	}
	if err := appendFile(d.path(d.to), dst.String()); err != nil {
		return err
	}
	slog.Debug("local db flushed", "dir", d.dir, "pairs", len(d.pending))
	d.pending = nil
	return nil
}

func appendFile(path, data string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.LocalDBFailed, "open %s", path)
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return apperrors.Wrapf(err, apperrors.LocalDBFailed, "write %s", path)
	}
	return f.Close()
}

// SetLanguagePair flushes the current pair and loads another. On failure the
// database stays unusable (Get misses, Put is ignored) and false is returned.
func (d *DB) SetLanguagePair(from, to string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.flushLocked(); err != nil {
		slog.Error("local db flush failed", "error", err)
	}
	if err := d.load(from, to); err != nil {
		slog.Error("local db load failed", "error", err)
		return false
	}
	return true
}

// Usable reports whether the last load succeeded.
func (d *DB) Usable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usable
}

// Len returns the number of known pairs.
func (d *DB) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Pending returns the number of buffered, unflushed pairs.
func (d *DB) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

var escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)

func escape(s string) string { return escaper.Replace(s) }

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
