// Package queue stores pending download links in a line-delimited text file.
package queue

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrDuplicate is returned when the link is already queued
	ErrDuplicate = errors.New("link already queued")
	// ErrNotConfirmed is returned when the link is missing after the append
	ErrNotConfirmed = errors.New("link not found after saving")
)

// Store serializes every mutation of the queue file
type Store struct {
	path       string
	mu         sync.Mutex
	appendLine func(path, line string) error
}

// NewStore returns a store for the file at path
func NewStore(path string) *Store {
	return &Store{path: path, appendLine: appendLine}
}

// Path returns the queue file location
func (s *Store) Path() string {
	return s.path
}

// Ensure creates the queue file and its directory when missing
func (s *Store) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return fmt.Errorf("create queue file: %w", err)
	}
	return f.Close()
}

// List returns the queued links in insertion order. A missing file is an
// empty queue.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls, _, err := s.readLocked()
	return urls, err
}

// Len returns the number of queued links
func (s *Store) Len() (int, error) {
	urls, err := s.List()
	return len(urls), err
}

// AppendUnique appends url unless the exact same line is already queued.
// The write is confirmed by reading the file back; on any failure the file is
// cut back to its previous length.
func (s *Store) AppendUnique(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls, raw, err := s.readLocked()
	if err != nil {
		return err
	}
	for _, u := range urls {
		if u == url {
			return ErrDuplicate
		}
	}

	line := url + "\n"
	if len(raw) > 0 && raw[len(raw)-1] != '\n' {
		line = "\n" + line
	}

	if err := s.appendLine(s.path, line); err != nil {
		s.restoreLocked(int64(len(raw)))
		return fmt.Errorf("append to queue: %w", err)
	}

	after, _, err := s.readLocked()
	if err != nil {
		s.restoreLocked(int64(len(raw)))
		return fmt.Errorf("confirm queue append: %w", err)
	}
	for _, u := range after {
		if u == url {
			return nil
		}
	}
	s.restoreLocked(int64(len(raw)))
	return ErrNotConfirmed
}

// Remove deletes one occurrence of every link in done. Links appended after
// the snapshot was taken are kept.
func (s *Store) Remove(done []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls, _, err := s.readLocked()
	if err != nil {
		return err
	}

	pending := make(map[string]int, len(done))
	for _, u := range done {
		pending[u]++
	}

	var kept []string
	for _, u := range urls {
		if pending[u] > 0 {
			pending[u]--
			continue
		}
		kept = append(kept, u)
	}

	var buf bytes.Buffer
	for _, u := range kept {
		buf.WriteString(u)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("rewrite queue: %w", err)
	}
	return nil
}

func (s *Store) readLocked() ([]string, []byte, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read queue: %w", err)
	}

	var urls []string
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("parse queue: %w", err)
	}
	return urls, raw, nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) restoreLocked(size int64) {
	if err := os.Truncate(s.path, size); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("Failed to restore queue file", "path", s.path, "size", size, "error", err)
	}
}
