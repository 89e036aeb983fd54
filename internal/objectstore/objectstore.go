// Package objectstore defines the file storage contract shared by documents
// and study resources.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrFailed marks an upload or delete the storage backend rejected.
var ErrFailed = errors.New("object storage request failed")

// Store uploads by path returning a retrieval URL, and deletes by path.
type Store interface {
	Upload(ctx context.Context, path string, body io.Reader, filename, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}

// Wrap tags a backend error with ErrFailed while keeping the cause.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFailed, err)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// SanitizeName replaces every character outside [a-zA-Z0-9._-] with an underscore.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Memory keeps objects in process. Used for local development and tests.
type Memory struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
	// UploadErr and DeleteErr, when set, are returned instead of storing.
	UploadErr error
	DeleteErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory(baseURL string) *Memory {
	return &Memory{BaseURL: strings.TrimSuffix(baseURL, "/"), objects: map[string][]byte{}}
}

// Upload stores the body under path.
func (m *Memory) Upload(ctx context.Context, path string, body io.Reader, _, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	m.objects[path] = data
	return m.BaseURL + "/" + path, nil
}

// Delete removes the object at path. Missing objects are ignored.
func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.objects, path)
	return nil
}

// Get returns a copy of the object at path.
func (m *Memory) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	return bytes.Clone(data), ok
}

// Paths lists stored paths in lexical order.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for p := range m.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
