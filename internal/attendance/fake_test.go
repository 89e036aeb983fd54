package attendance

import (
	"context"
	"sort"
	"sync"
)

type memRepo struct {
	mu        sync.Mutex
	snapshots map[string]Snapshot
	records   map[string]Record
	order     []string
	err       error
}

func newMemRepo() *memRepo {
	return &memRepo{snapshots: map[string]Snapshot{}, records: map[string]Record{}}
}

func (m *memRepo) GetSnapshot(_ context.Context, key string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	snap, ok := m.snapshots[key]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *memRepo) InsertSnapshot(_ context.Context, snap Snapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.snapshots[snap.ID]; ok {
		return false, nil
	}
	m.snapshots[snap.ID] = snap
	return true, nil
}

func (m *memRepo) UpsertRecord(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Record{}, m.err
	}
	if _, ok := m.records[rec.ID]; !ok {
		m.order = append(m.order, rec.ID)
	}
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memRepo) RecordsForDate(_ context.Context, date string) ([]Record, error) {
	return m.filter(func(r Record) bool { return r.Date == date }, 0)
}

func (m *memRepo) RecordsForStudent(_ context.Context, studentID string, limit int) ([]Record, error) {
	return m.filter(func(r Record) bool { return r.StudentID == studentID }, limit)
}

func (m *memRepo) AllRecords(context.Context) ([]Record, error) {
	return m.filter(func(Record) bool { return true }, 0)
}

func (m *memRepo) filter(keep func(Record) bool, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []Record{}
	for _, id := range m.order {
		if rec := m.records[id]; keep(rec) {
			out = append(out, rec)
		}
	}
	if limit > 0 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
		if len(out) > limit {
			out = out[:limit]
		}
	}
	return out, nil
}
