// Package journal persists run results. Every run appends one block to a
// plain-text journal: a commented header carrying the run identifier, a
// timestamp and the full parameter set, followed by the run summary as YAML.
// Blocks are never rewritten, so a journal accumulates comparable runs.
package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cachestudy/cachesim/sim"
)

// Marker opens every journal block.
const Marker = "# === cachesim run ==="

const commentPrefix = "# "

// Entry is one journaled run.
type Entry struct {
	ID        string
	Timestamp time.Time
	Elapsed   time.Duration // wall-clock time the run took
	Config    sim.Config
	Summary   sim.Summary
}

// header is the commented part of a block.
type header struct {
	ID        string        `yaml:"id"`
	Timestamp time.Time     `yaml:"timestamp"`
	Elapsed   time.Duration `yaml:"elapsed"`
	Params    sim.Config    `yaml:"params"`
}

// NewEntry builds the journal entry of a finished run with a fresh identifier.
func NewEntry(p sim.Params, r *sim.Result, finished time.Time, elapsed time.Duration) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Timestamp: finished.UTC().Truncate(time.Second),
		Elapsed:   elapsed.Round(time.Millisecond),
		Config:    p.Config(),
		Summary:   r.Summary(),
	}
}

// Encode renders e as a journal block.
func Encode(e Entry) ([]byte, error) {
	head, err := yaml.Marshal(header{ID: e.ID, Timestamp: e.Timestamp, Elapsed: e.Elapsed, Params: e.Config})
	if err != nil {
		return nil, fmt.Errorf("encoding journal header: %w", err)
	}
	body, err := yaml.Marshal(e.Summary)
	if err != nil {
		return nil, fmt.Errorf("encoding journal summary: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(Marker + "\n")
	for _, line := range strings.Split(strings.TrimRight(string(head), "\n"), "\n") {
		buf.WriteString(commentPrefix + line + "\n")
	}
	buf.Write(body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Append adds e to the journal at name, creating the file and its directory
// if needed. The block is written with a single append so an interrupted run
// never leaves a partial block behind an intact one.
func Append(fsys billy.Filesystem, name string, e Entry) error {
	block, err := Encode(e)
	if err != nil {
		return sim.JournalWriteError(err, name)
	}
	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return sim.JournalWriteError(err, name)
		}
	}
	f, err := fsys.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return sim.JournalWriteError(err, name)
	}
	if _, err := f.Write(block); err != nil {
		f.Close()
		return sim.JournalWriteError(err, name)
	}
	return sim.JournalWriteError(f.Close(), name)
}

// Read parses every block of the journal at name.
func Read(fsys billy.Filesystem, name string) ([]Entry, error) {
	data, err := util.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", name, err)
	}
	return Parse(data)
}

// Parse splits a journal into its blocks and decodes each one strictly.
func Parse(data []byte) ([]Entry, error) {
	var (
		entries []Entry
		block   []string
		inBlock bool
		lineNo  int
		start   int
	)
	flush := func() error {
		if !inBlock {
			return nil
		}
		e, err := parseBlock(block)
		if err != nil {
			return fmt.Errorf("journal block at line %d: %w", start, err)
		}
		entries = append(entries, e)
		return nil
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == Marker {
			if err := flush(); err != nil {
				return nil, err
			}
			block, inBlock, start = nil, true, lineNo
			continue
		}
		if !inBlock {
			if strings.TrimSpace(line) != "" {
				return nil, fmt.Errorf("journal line %d: content before the first run marker", lineNo)
			}
			continue
		}
		block = append(block, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning journal: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseBlock(lines []string) (Entry, error) {
	var head, body strings.Builder
	i := 0
	for ; i < len(lines) && strings.HasPrefix(lines[i], "#"); i++ {
		line := strings.TrimPrefix(lines[i], "#")
		head.WriteString(strings.TrimPrefix(line, " ") + "\n")
	}
	for ; i < len(lines); i++ {
		body.WriteString(lines[i] + "\n")
	}

	var h header
	if err := decodeStrict(head.String(), &h); err != nil {
		return Entry{}, fmt.Errorf("header: %w", err)
	}
	if h.ID == "" {
		return Entry{}, fmt.Errorf("header: missing id")
	}
	if strings.TrimSpace(body.String()) == "" {
		return Entry{}, fmt.Errorf("missing summary")
	}
	var s sim.Summary
	if err := decodeStrict(body.String(), &s); err != nil {
		return Entry{}, fmt.Errorf("summary: %w", err)
	}
	return Entry{ID: h.ID, Timestamp: h.Timestamp, Elapsed: h.Elapsed, Config: h.Params, Summary: s}, nil
}

func decodeStrict(doc string, out any) error {
	dec := yaml.NewDecoder(strings.NewReader(doc))
	dec.KnownFields(true)
	return dec.Decode(out)
}
