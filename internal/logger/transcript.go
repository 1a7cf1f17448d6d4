// Package logger records agent terminal transcripts in asciinema v2 format.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// header is the asciinema v2 file header.
type header struct {
	Version   int   `json:"version"`
	Width     int   `json:"width"`
	Height    int   `json:"height"`
	Timestamp int64 `json:"timestamp"`
}

// event is one asciinema v2 event line: [offset, type, data].
type event struct {
	Offset float64
	Type   string // "o" output, "i" input
	Data   string
}

func (e event) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Offset, e.Type, e.Data})
}

// Transcript writes an agent's input and output as an asciinema v2 recording.
type Transcript struct {
	mu      sync.Mutex
	w       io.Writer
	file    *os.File // set when we own the file
	started time.Time
}

// NewTranscript creates a transcript recording at path and writes the header.
func NewTranscript(path string, cols, rows int) (*Transcript, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}

	t := &Transcript{w: file, file: file, started: time.Now()}
	if err := t.writeHeader(cols, rows); err != nil {
		file.Close()
		return nil, err
	}
	return t, nil
}

// NewTranscriptWriter creates a transcript on an arbitrary writer, for tests.
func NewTranscriptWriter(w io.Writer, cols, rows int) (*Transcript, error) {
	t := &Transcript{w: w, started: time.Now()}
	if err := t.writeHeader(cols, rows); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transcript) writeHeader(cols, rows int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := header{Version: 2, Width: cols, Height: rows, Timestamp: t.started.Unix()}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal transcript header: %w", err)
	}
	if _, err := t.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write transcript header: %w", err)
	}
	return nil
}

// Output records process output.
func (t *Transcript) Output(data []byte) error {
	return t.writeEvent("o", data)
}

// Input records client input.
func (t *Transcript) Input(data []byte) error {
	return t.writeEvent("i", data)
}

func (t *Transcript) writeEvent(kind string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := event{
		Offset: time.Since(t.started).Seconds(),
		Type:   kind,
		Data:   string(data),
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal transcript event: %w", err)
	}
	if _, err := t.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write transcript event: %w", err)
	}
	return nil
}

// Close closes the underlying file if the transcript owns one.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file != nil {
		return t.file.Close()
	}
	return nil
}
