package roster

import (
	"context"
	"sync"
)

type memRepo struct {
	mu       sync.Mutex
	students []Student
	err      error
}

func (m *memRepo) ListStudents(context.Context) ([]Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]Student(nil), m.students...), nil
}

func (m *memRepo) GetStudent(_ context.Context, studentID string) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.students {
		if s.StudentID == studentID {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memRepo) InsertStudent(_ context.Context, st Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, s := range m.students {
		if s.StudentID == st.StudentID {
			return ErrDuplicate
		}
	}
	m.students = append(m.students, st)
	return nil
}

func (m *memRepo) UpdateStats(_ context.Context, students []Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	byID := Index(students)
	for i, s := range m.students {
		if upd, ok := byID[s.StudentID]; ok {
			m.students[i].DocumentCount = upd.DocumentCount
			m.students[i].AttendanceRate = upd.AttendanceRate
			m.students[i].OverallGrade = upd.OverallGrade
			m.students[i].CompletedAssignments = upd.CompletedAssignments
			m.students[i].TotalAssignments = upd.TotalAssignments
		}
	}
	return nil
}
