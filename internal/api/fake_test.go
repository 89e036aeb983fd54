package api

import (
	"context"
	"sync"

	"nursingportal/internal/announcement"
	"nursingportal/internal/attendance"
	"nursingportal/internal/document"
	"nursingportal/internal/relay"
	"nursingportal/internal/resource"
	"nursingportal/internal/roster"
	"nursingportal/internal/validation"
)

type fakeRoster struct {
	students []roster.Student
	err      error
}

func (f *fakeRoster) List(context.Context) ([]roster.Student, error) {
	return append([]roster.Student{}, f.students...), f.err
}

func (f *fakeRoster) Get(_ context.Context, id string) (roster.Student, error) {
	if f.err != nil {
		return roster.Student{}, f.err
	}
	for _, s := range f.students {
		if s.StudentID == id {
			return s, nil
		}
	}
	return roster.Student{}, roster.ErrNotFound
}

func (f *fakeRoster) Add(_ context.Context, in roster.NewStudent) (roster.Student, error) {
	if err := validation.Struct(in); err != nil {
		return roster.Student{}, err
	}
	for _, s := range f.students {
		if s.StudentID == in.StudentID {
			return roster.Student{}, roster.ErrDuplicate
		}
	}
	st := roster.Student{ID: "id-" + in.StudentID, StudentID: in.StudentID, Name: in.Name, Email: in.Email, Level: in.Level}
	f.students = append(f.students, st)
	return st, nil
}

type fakeAttendance struct {
	mu        sync.Mutex
	finalized map[string]bool
	marked    []attendance.Record
	err       error
}

func (f *fakeAttendance) GetDailyAttendance(_ context.Context, date string) (attendance.Day, error) {
	if f.err != nil {
		return attendance.Day{}, f.err
	}
	if _, err := attendance.ParseDate(date); err != nil {
		return attendance.Day{}, validation.New(err.Error())
	}
	return attendance.Day{Date: date, Finalized: f.finalized[date], Attendance: attendance.Merge(nil, f.marked)}, nil
}

func (f *fakeAttendance) SetAttendance(_ context.Context, studentID, date string, present bool, markedBy string) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalized[date] {
		return attendance.Record{}, attendance.ErrDayFinalized
	}
	rec := attendance.Record{ID: attendance.RecordID(studentID, date), StudentID: studentID, Date: date, Present: present, MarkedBy: markedBy}
	f.marked = append(f.marked, rec)
	return rec, nil
}

func (f *fakeAttendance) FinalizeDay(_ context.Context, students []roster.Student, _ attendance.Daily, date, takenBy string) (attendance.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalized[date] {
		return attendance.Snapshot{}, attendance.ErrAlreadyFinalized
	}
	if f.finalized == nil {
		f.finalized = map[string]bool{}
	}
	f.finalized[date] = true
	return attendance.Snapshot{Date: date, TakenBy: takenBy, TotalStudents: len(students), IsFinalized: true}, nil
}

func (f *fakeAttendance) BuildAttendanceView(_ context.Context, date string, students []roster.Student) (attendance.View, error) {
	return attendance.View{Date: date, TotalEnrolled: len(students)}, f.err
}

func (f *fakeAttendance) DayStatus(_ context.Context, date string) (attendance.Status, error) {
	return attendance.Status{Date: date, Finalized: f.finalized[date]}, f.err
}

func (f *fakeAttendance) StudentHistory(_ context.Context, studentID string, _ int) ([]attendance.Record, error) {
	out := []attendance.Record{}
	for _, r := range f.marked {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeAttendance) StudentRate(_ context.Context, studentID string) (float64, error) {
	recs, err := f.StudentHistory(context.Background(), studentID, 0)
	return attendance.Rate(recs), err
}

type fakeDocuments struct {
	docs      []document.Document
	uploadErr error
	partial   []document.Document
	listErr   error
	uploaded  []document.File
}

func (f *fakeDocuments) List(context.Context) ([]document.Document, error) { return f.docs, f.listErr }

func (f *fakeDocuments) ForStudent(_ context.Context, studentID string) ([]document.Document, error) {
	out := []document.Document{}
	for _, d := range f.docs {
		if d.StudentID == studentID {
			out = append(out, d)
		}
	}
	return out, f.listErr
}

func (f *fakeDocuments) Upload(_ context.Context, st roster.Student, category string, files []document.File) ([]document.Document, error) {
	if f.uploadErr != nil {
		return f.partial, f.uploadErr
	}
	f.uploaded = append(f.uploaded, files...)
	out := make([]document.Document, 0, len(files))
	for _, file := range files {
		out = append(out, document.Document{ID: "doc-" + file.Name, Name: file.Name, StudentID: st.StudentID, Category: category, Size: file.Size})
	}
	return out, nil
}

func (f *fakeDocuments) Delete(_ context.Context, id string) error {
	for _, d := range f.docs {
		if d.ID == id {
			return nil
		}
	}
	return document.ErrNotFound
}

func (f *fakeDocuments) Grade(_ context.Context, id string, in document.GradeInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	return f.Delete(context.Background(), id)
}

func (f *fakeDocuments) ToggleStar(_ context.Context, id string) (bool, error) {
	return true, f.Delete(context.Background(), id)
}

type fakeResources struct {
	resources []resource.Resource
	err       error
	downloads int
}

func (f *fakeResources) List(context.Context) ([]resource.Resource, error) { return f.resources, f.err }

func (f *fakeResources) Upload(_ context.Context, in resource.NewResource, file *document.File, by string) (resource.Resource, error) {
	if f.err != nil {
		return resource.Resource{}, f.err
	}
	if file == nil {
		return resource.Resource{}, validation.New("a file is required")
	}
	return resource.Resource{ID: "r-1", Title: in.Title, Category: in.Category, TargetLevels: in.TargetLevels, FileName: file.Name, UploadedBy: by}, nil
}

func (f *fakeResources) Delete(context.Context, string) error { return f.err }

func (f *fakeResources) RecordDownload(context.Context, string) (int, error) {
	f.downloads++
	return f.downloads, f.err
}

type fakeAnnouncements struct {
	list     []announcement.Announcement
	report   relay.Report
	err      error
	messages []announcement.Message
}

func (f *fakeAnnouncements) List(context.Context) ([]announcement.Announcement, error) {
	return f.list, f.err
}

func (f *fakeAnnouncements) Send(_ context.Context, in announcement.NewAnnouncement, students []roster.Student, by string) (announcement.Announcement, *relay.Report, error) {
	if f.err != nil {
		return announcement.Announcement{}, nil, f.err
	}
	a := announcement.Announcement{
		ID:             "a-new",
		Title:          in.Title,
		Message:        in.Message,
		Audience:       announcement.AudienceAll,
		TargetStudents: announcement.ResolveRecipients(announcement.AudienceAll, nil, nil, students),
		CreatedBy:      by,
	}
	f.list = append(f.list, a)
	if !in.SendToTelegram {
		return a, nil, nil
	}
	report := f.report
	return a, &report, nil
}

func (f *fakeAnnouncements) Delete(context.Context, string) error { return f.err }

func (f *fakeAnnouncements) Resend(context.Context, string, []roster.Student) (relay.Report, error) {
	return f.report, f.err
}

func (f *fakeAnnouncements) MarkRead(_ context.Context, _ string, studentID string) error {
	if studentID == "" {
		return validation.New("student_id is required")
	}
	return f.err
}

func (f *fakeAnnouncements) Messages(context.Context, string) ([]announcement.Message, error) {
	return f.messages, f.err
}

func (f *fakeAnnouncements) SendMessage(_ context.Context, studentID, text string, urgent bool) (announcement.Message, error) {
	m := announcement.Message{ID: "m-1", StudentID: studentID, FromInstructor: true, Message: text, Urgent: urgent}
	f.messages = append(f.messages, m)
	return m, f.err
}

type fakeStats struct {
	calls int
}

func (f *fakeStats) Refresh(context.Context) ([]roster.Student, error) {
	f.calls++
	return []roster.Student{}, nil
}
