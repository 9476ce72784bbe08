package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"edu-crawler/pkg/models"
)

// JSONSink streams records into a file holding one JSON array.
type JSONSink struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	count  int
	closed bool
}

func NewJSONSink(path string) (*JSONSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(file)
	if _, err := w.WriteString("["); err != nil {
		file.Close()
		return nil, err
	}
	return &JSONSink{file: file, w: w}, nil
}

func (s *JSONSink) Save(_ context.Context, batch []*models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("json sink is closed")
	}

	// Encode the whole batch first so a failed record leaves no partial
	// output behind.
	var encoded [][]byte
	for _, record := range batch {
		raw, err := json.MarshalIndent(record, "  ", "  ")
		if err != nil {
			return fmt.Errorf("encode %q: %w", record.Key, err)
		}
		encoded = append(encoded, raw)
	}
	for _, raw := range encoded {
		sep := ",\n  "
		if s.count == 0 {
			sep = "\n  "
		}
		if _, err := s.w.WriteString(sep); err != nil {
			return err
		}
		if _, err := s.w.Write(raw); err != nil {
			return err
		}
		s.count++
	}
	return s.w.Flush()
}

// Close terminates the array. An empty run still leaves "[]".
func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	end := "\n]\n"
	if s.count == 0 {
		end = "]\n"
	}
	_, err := s.w.WriteString(end)
	if flushErr := s.w.Flush(); err == nil {
		err = flushErr
	}
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	return err
}
