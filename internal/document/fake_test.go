package document

import (
	"context"
	"sync"
	"time"
)

type memRepo struct {
	mu   sync.Mutex
	docs []Document
	err  error
}

func (m *memRepo) ListDocuments(_ context.Context, studentID string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []Document{}
	for _, d := range m.docs {
		if studentID == "" || d.StudentID == studentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memRepo) GetDocument(_ context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, d := range m.docs {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, nil
}

func (m *memRepo) InsertDocument(_ context.Context, d Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, d)
	return nil
}

func (m *memRepo) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i, d := range m.docs {
		if d.ID == id {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memRepo) SetGrade(_ context.Context, id string, grade, maxGrade float64, feedback string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			g, mg, t := grade, maxGrade, at
			m.docs[i].Grade, m.docs[i].MaxGrade, m.docs[i].DateGraded = &g, &mg, &t
			m.docs[i].Feedback = feedback
			m.docs[i].IsGraded = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ToggleStar(_ context.Context, id string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, false, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			m.docs[i].IsStarred = !m.docs[i].IsStarred
			return m.docs[i].IsStarred, true, nil
		}
	}
	return false, false, nil
}
