package resource

import (
	"context"
	"sync"
)

type memRepo struct {
	mu        sync.Mutex
	resources []Resource
	err       error
}

func (m *memRepo) ListResources(context.Context) ([]Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]Resource{}, m.resources...), nil
}

func (m *memRepo) GetResource(_ context.Context, id string) (*Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.resources {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memRepo) InsertResource(_ context.Context, r Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.resources = append(m.resources, r)
	return nil
}

func (m *memRepo) DeleteResource(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.resources {
		if r.ID == id {
			m.resources = append(m.resources[:i], m.resources[i+1:]...)
			break
		}
	}
	return m.err
}

func (m *memRepo) IncrementDownloads(_ context.Context, id string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, false, m.err
	}
	for i := range m.resources {
		if m.resources[i].ID == id {
			m.resources[i].DownloadCount++
			return m.resources[i].DownloadCount, true, nil
		}
	}
	return 0, false, nil
}
