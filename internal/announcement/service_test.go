package announcement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nursingportal/internal/relay"
	"nursingportal/internal/roster"
	"nursingportal/internal/validation"
)

var fixedNow = time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

func newTestService(relayer Relayer) (*Service, *memRepo) {
	repo := &memRepo{}
	svc := NewService(repo, relayer, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func cohort() []roster.Student {
	return []roster.Student{
		{StudentID: "S01", Name: "Ada", Level: roster.LevelFirstYear, TelegramID: "tg-1"},
		{StudentID: "S02", Name: "Ben", Level: roster.LevelFirstYear},
		{StudentID: "S03", Name: "Cy", Level: roster.LevelThirdYear, TelegramID: "tg-3"},
	}
}

func TestSendStoresResolvedTargets(t *testing.T) {
	svc, repo := newTestService(nil)

	a, report, err := svc.Send(context.Background(), NewAnnouncement{
		Title:        " Skills lab ",
		Message:      "Moved to Friday",
		Audience:     AudienceLevel,
		TargetLevels: []string{roster.LevelFirstYear},
		Urgent:       true,
	}, cohort(), "lead")
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Equal(t, "Skills lab", a.Title)
	assert.Equal(t, TypeAnnouncement, a.MessageType)
	assert.Equal(t, []string{"S01", "S02"}, a.TargetStudents)
	assert.Equal(t, fixedNow, a.CreatedAt)
	assert.Empty(t, a.ReadBy)
	assert.False(t, a.SentToTelegram)
	require.Len(t, repo.announcements, 1)
	assert.Equal(t, a, repo.announcements[0])
}

func TestSendRejectsInvalidInput(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	cases := map[string]NewAnnouncement{
		"missing title":       {Message: "m"},
		"level without level": {Title: "t", Message: "m", Audience: AudienceLevel},
		"unknown level":       {Title: "t", Message: "m", Audience: AudienceLevel, TargetLevels: []string{"fifth-year"}},
		"individual empty":    {Title: "t", Message: "m", MessageType: TypeIndividual},
		"unknown student":     {Title: "t", Message: "m", Audience: AudienceIndividual, TargetStudents: []string{"S99"}},
		"bad audience":        {Title: "t", Message: "m", Audience: "everyone"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Send(ctx, in, cohort(), "lead")
			require.Error(t, err)
			assert.True(t, validation.Is(err))
		})
	}
	assert.Empty(t, repo.announcements)
}

func TestSendRelaysWhenRequested(t *testing.T) {
	relayer := &fakeRelayer{report: relay.Report{Mode: relay.ModeIndividual, Attempted: 2, Delivered: 1, Failed: 1}}
	svc, repo := newTestService(relayer)

	a, report, err := svc.Send(context.Background(), NewAnnouncement{
		Title:          "Placement",
		Message:        "See the ward manager",
		MessageType:    TypeIndividual,
		TargetStudents: []string{"S01", "S02"},
		SendToTelegram: true,
	}, cohort(), "lead")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, a.SentToTelegram)
	assert.Equal(t, AudienceIndividual, a.Audience)
	assert.Len(t, repo.announcements, 1)

	require.Len(t, relayer.jobs, 1)
	job := relayer.jobs[0]
	assert.Equal(t, a.ID, job.AnnouncementID)
	assert.Equal(t, []relay.Recipient{{StudentID: "S01", TelegramID: "tg-1"}, {StudentID: "S02"}}, job.Recipients)
}

func TestSendKeepsAnnouncementWhenRelayErrors(t *testing.T) {
	relayer := &fakeRelayer{err: errors.New("queue down")}
	svc, repo := newTestService(relayer)

	_, report, err := svc.Send(context.Background(), NewAnnouncement{Title: "t", Message: "m", SendToTelegram: true}, cohort(), "lead")
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Len(t, repo.announcements, 1)
}

func TestResendRelaysWithoutNewRecord(t *testing.T) {
	relayer := &fakeRelayer{report: relay.Report{Mode: relay.ModeBulk, Attempted: 1, Delivered: 1}}
	svc, repo := newTestService(relayer)
	ctx := context.Background()

	a, _, err := svc.Send(ctx, NewAnnouncement{Title: "t", Message: "m"}, cohort(), "lead")
	require.NoError(t, err)
	assert.Empty(t, relayer.jobs)

	report, err := svc.Resend(ctx, a.ID, cohort())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
	assert.Len(t, relayer.jobs, 1)
	assert.Len(t, repo.announcements, 1)

	_, err = svc.Resend(ctx, "missing", cohort())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResendReportsTotalFailure(t *testing.T) {
	relayer := &fakeRelayer{report: relay.Report{Mode: relay.ModeBulk, Attempted: 1, Failed: 1}}
	svc, _ := newTestService(relayer)
	ctx := context.Background()

	a, _, err := svc.Send(ctx, NewAnnouncement{Title: "t", Message: "m"}, cohort(), "lead")
	require.NoError(t, err)

	report, err := svc.Resend(ctx, a.ID, cohort())
	assert.ErrorIs(t, err, ErrRelayFailed)
	assert.Equal(t, 1, report.Failed)

	relayer.report = relay.Report{Mode: relay.ModeQueued, Queued: true, Attempted: 3}
	_, err = svc.Resend(ctx, a.ID, cohort())
	assert.NoError(t, err)

	noRelay, repo := newTestService(nil)
	repo.announcements = append(repo.announcements, a)
	_, err = noRelay.Resend(ctx, a.ID, cohort())
	assert.ErrorIs(t, err, ErrRelayFailed)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	a, _, err := svc.Send(ctx, NewAnnouncement{Title: "t", Message: "m"}, cohort(), "lead")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, a.ID, "S01"))
	require.NoError(t, svc.MarkRead(ctx, a.ID, "S01"))
	assert.Equal(t, []string{"S01"}, repo.announcements[0].ReadBy)

	assert.ErrorIs(t, svc.MarkRead(ctx, "missing", "S01"), ErrNotFound)
	assert.True(t, validation.Is(svc.MarkRead(ctx, a.ID, " ")))
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	a, _, err := svc.Send(ctx, NewAnnouncement{Title: "t", Message: "m"}, cohort(), "lead")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.Empty(t, repo.announcements)
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)
}

func TestMessagesNewestFirst(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, "S01", " Please see me ", false)
	require.NoError(t, err)
	assert.True(t, first.FromInstructor)
	assert.Equal(t, "Please see me", first.Message)

	svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	second, err := svc.SendMessage(ctx, "S01", "Reminder", true)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "S02", "Other student", false)
	require.NoError(t, err)

	msgs, err := svc.Messages(ctx, "S01")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, second.ID, msgs[0].ID)
	assert.Equal(t, first.ID, msgs[1].ID)

	_, err = svc.SendMessage(ctx, "S01", "   ", false)
	assert.True(t, validation.Is(err))
}

func TestRepositoryErrorsAreWrapped(t *testing.T) {
	svc, repo := newTestService(nil)
	boom := errors.New("db down")
	repo.err = boom
	ctx := context.Background()

	_, err := svc.List(ctx)
	assert.ErrorIs(t, err, boom)
	_, _, err = svc.Send(ctx, NewAnnouncement{Title: "t", Message: "m"}, cohort(), "lead")
	assert.ErrorIs(t, err, boom)
	_, err = svc.Messages(ctx, "S01")
	assert.ErrorIs(t, err, boom)
}
