// Package file mirrors broadcasts to an NDJSON file that is archived once
// per UTC day, and earlier when it grows past a size cap.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hejijunhao/aftershock/internal/output"
)

const (
	defaultBufSize = 64 * 1024
	defaultKeep    = 10
	dayLayout      = "2006-01-02"
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the file size (bytes) that forces an early archive
// within the same day. 0 (default) archives on day change only.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KiB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// WithKeep sets how many archives are retained. Default: 10.
func WithKeep(n int) Option {
	return func(o *Output) {
		if n > 0 {
			o.keep = n
		}
	}
}

// WithFlushOn makes frames of the named events reach the disk immediately
// instead of waiting for the buffer to fill. Default: prediction_result.
func WithFlushOn(events ...string) Option {
	return func(o *Output) {
		o.flushOn = make(map[string]bool, len(events))
		for _, e := range events {
			o.flushOn[e] = true
		}
	}
}

// Output appends every broadcast to a file as NDJSON. When the first frame
// of a new UTC day arrives, the current file is archived as {path}.{day};
// a file that outgrows maxSize within a day is archived as
// {path}.{day}.{n}. Frames keep their timestamp so archives can be
// replayed or audited later.
type Output struct {
	mu      sync.Mutex
	w       *bufio.Writer
	f       *os.File
	path    string
	maxSize int64 // 0 = no size cap
	written int64
	bufSize int
	keep    int
	flushOn map[string]bool
	day     string // UTC day of the frames in the current file; "" when empty
	now     func() time.Time
}

// New creates a file output that writes NDJSON to the given path.
func New(path string, opts ...Option) (*Output, error) {
	o := &Output{
		path:    path,
		bufSize: defaultBufSize,
		keep:    defaultKeep,
		flushOn: map[string]bool{output.EventPredictionResult: true},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.openFile(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write JSON-encodes the message and appends it as a line to the file,
// archiving the current file first when the day changed or it is full.
func (o *Output) Write(_ context.Context, msg output.Message) error {
	if msg.Time.IsZero() {
		msg.Time = o.now()
	}
	data, err := json.Marshal(output.FormatMessage(msg, true))
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}
	data = append(data, '\n')
	day := msg.Time.UTC().Format(dayLayout)

	o.mu.Lock()
	defer o.mu.Unlock()

	dayChanged := o.day != "" && o.day != day
	full := o.maxSize > 0 && o.written > 0 && o.written+int64(len(data)) > o.maxSize
	if dayChanged || full {
		if err := o.archive(); err != nil {
			return fmt.Errorf("file output: archive: %w", err)
		}
	}

	n, err := o.w.Write(data)
	o.written += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	o.day = day

	if o.flushOn[msg.Event] {
		if err := o.w.Flush(); err != nil {
			return fmt.Errorf("file output: flush: %w", err)
		}
	}
	return nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}

// openFile opens (or creates) the output file. A non-empty existing file
// is attributed to the UTC day it was last modified.
func (o *Output) openFile() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", o.path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.written = info.Size()
	o.day = ""
	if o.written > 0 {
		o.day = info.ModTime().UTC().Format(dayLayout)
	}
	return nil
}

// archive renames the current file after its day, prunes old archives and
// opens a fresh file.
func (o *Output) archive() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}

	name := o.path + "." + o.day
	for seq := 1; exists(name); seq++ {
		name = fmt.Sprintf("%s.%s.%d", o.path, o.day, seq)
	}
	if err := os.Rename(o.path, name); err != nil {
		return err
	}
	o.prune()
	return o.openFile()
}

type archiveFile struct {
	name string
	day  string
	seq  int
}

// archives lists the archives of path, oldest first.
func (o *Output) archives() []archiveFile {
	matches, _ := filepath.Glob(o.path + ".*")
	var out []archiveFile
	for _, m := range matches {
		parts := strings.SplitN(strings.TrimPrefix(m, o.path+"."), ".", 2)
		if _, err := time.Parse(dayLayout, parts[0]); err != nil {
			continue
		}
		a := archiveFile{name: m, day: parts[0]}
		if len(parts) == 2 {
			seq, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			a.seq = seq
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].day != out[j].day {
			return out[i].day < out[j].day
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func (o *Output) prune() {
	all := o.archives()
	for len(all) > o.keep {
		os.Remove(all[0].name)
		all = all[1:]
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
