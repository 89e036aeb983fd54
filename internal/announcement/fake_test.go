package announcement

import (
	"context"
	"sync"

	"nursingportal/internal/relay"
)

type memRepo struct {
	mu            sync.Mutex
	announcements []Announcement
	messages      []Message
	err           error
}

func (m *memRepo) ListAnnouncements(context.Context) ([]Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]Announcement{}, m.announcements...), nil
}

func (m *memRepo) GetAnnouncement(_ context.Context, id string) (*Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.announcements {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memRepo) InsertAnnouncement(_ context.Context, a Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.announcements = append(m.announcements, a)
	return nil
}

func (m *memRepo) DeleteAnnouncement(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for i, a := range m.announcements {
		if a.ID == id {
			m.announcements = append(m.announcements[:i], m.announcements[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) AddReader(_ context.Context, id, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for i := range m.announcements {
		if m.announcements[i].ID != id {
			continue
		}
		if !contains(m.announcements[i].ReadBy, studentID) {
			m.announcements[i].ReadBy = append(m.announcements[i].ReadBy, studentID)
		}
		return true, nil
	}
	return false, nil
}

func (m *memRepo) ListMessages(_ context.Context, studentID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []Message{}
	for _, msg := range m.messages {
		if msg.StudentID == studentID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memRepo) InsertMessage(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

type fakeRelayer struct {
	jobs   []relay.Job
	report relay.Report
	err    error
}

func (f *fakeRelayer) Deliver(_ context.Context, job relay.Job) (relay.Report, error) {
	f.jobs = append(f.jobs, job)
	return f.report, f.err
}
