package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nursingportal/internal/metrics"
	"nursingportal/internal/queue"
)

// JobType tags relay jobs on the queue.
const JobType = "relay"

// Delivery modes reported back to callers.
const (
	ModeIndividual = "individual"
	ModeBulk       = "bulk"
	ModeQueued     = "queued"
)

// MessageTypeIndividual selects per-recipient delivery.
const MessageTypeIndividual = "individual"

// fanOut bounds concurrent individual deliveries.
const fanOut = 8

// Recipient is one student addressed by a direct message.
type Recipient struct {
	StudentID  string `json:"student_id"`
	TelegramID string `json:"telegram_id,omitempty"`
}

// Address is the id sent to the relay, falling back to the student id.
func (r Recipient) Address() string {
	if r.TelegramID != "" {
		return r.TelegramID
	}
	return r.StudentID
}

// Job is one announcement to deliver.
type Job struct {
	AnnouncementID string      `json:"announcement_id"`
	Title          string      `json:"title"`
	Message        string      `json:"message"`
	MessageType    string      `json:"message_type"`
	Audience       string      `json:"audience"`
	TargetLevels   []string    `json:"target_levels"`
	TargetStudents []string    `json:"target_students"`
	Recipients     []Recipient `json:"recipients"`
	Urgent         bool        `json:"urgent"`
}

// Failure records one recipient the relay did not accept.
type Failure struct {
	StudentID string `json:"student_id,omitempty"`
	Error     string `json:"error"`
}

// Report is the aggregate outcome of a delivery. Partial failures do not undo successes.
type Report struct {
	Mode      string    `json:"mode"`
	Queued    bool      `json:"queued,omitempty"`
	Attempted int       `json:"attempted"`
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Sender is the webhook surface the dispatcher drives.
type Sender interface {
	SendIndividual(ctx context.Context, telegramID, title, message, announcementID string, urgent bool) (*Response, error)
	SendBulk(ctx context.Context, p BulkPayload) (*Response, error)
}

// Dispatcher delivers jobs synchronously.
type Dispatcher struct {
	sender  Sender
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewDispatcher creates a dispatcher. m may be nil.
func NewDispatcher(sender Sender, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{sender: sender, metrics: m, log: log}
}

// Deliver sends the job. Individual messages fan out one call per recipient;
// everything else is a single bulk call. Failures are logged and reported, never returned.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) (Report, error) {
	if job.MessageType == MessageTypeIndividual {
		return d.deliverIndividual(ctx, job), nil
	}
	return d.deliverBulk(ctx, job), nil
}

func (d *Dispatcher) deliverIndividual(ctx context.Context, job Job) Report {
	report := Report{Mode: ModeIndividual, Attempted: len(job.Recipients)}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(fanOut)
	for _, rcpt := range job.Recipients {
		rcpt := rcpt
		g.Go(func() error {
			_, err := d.sender.SendIndividual(ctx, rcpt.Address(), job.Title, job.Message, job.AnnouncementID, job.Urgent)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Failures = append(report.Failures, Failure{StudentID: rcpt.StudentID, Error: err.Error()})
				d.metrics.RelayDelivery(ModeIndividual, "failed")
				d.log.Warn("relay delivery failed",
					zap.String("announcement_id", job.AnnouncementID),
					zap.String("student_id", rcpt.StudentID),
					zap.Error(err))
				return nil
			}
			report.Delivered++
			d.metrics.RelayDelivery(ModeIndividual, "ok")
			return nil
		})
	}
	_ = g.Wait()

	d.log.Info("relay fan-out finished",
		zap.String("announcement_id", job.AnnouncementID),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed))
	return report
}

func (d *Dispatcher) deliverBulk(ctx context.Context, job Job) Report {
	report := Report{Mode: ModeBulk, Attempted: 1}
	_, err := d.sender.SendBulk(ctx, BulkPayload{
		Title:          job.Title,
		Message:        job.Message,
		AnnouncementID: job.AnnouncementID,
		TargetAudience: job.Audience,
		TargetLevels:   job.TargetLevels,
		TargetStudents: job.TargetStudents,
		Urgent:         job.Urgent,
	})
	if err != nil {
		report.Failed = 1
		report.Failures = []Failure{{Error: err.Error()}}
		d.metrics.RelayDelivery(ModeBulk, "failed")
		d.log.Warn("relay broadcast failed", zap.String("announcement_id", job.AnnouncementID), zap.Error(err))
		return report
	}
	report.Delivered = 1
	d.metrics.RelayDelivery(ModeBulk, "ok")
	return report
}

// Queued publishes jobs for the worker instead of calling the relay inline.
type Queued struct {
	q       queue.Queue
	metrics *metrics.Metrics
}

// NewQueued creates a queue-backed relayer. m may be nil.
func NewQueued(q queue.Queue, m *metrics.Metrics) *Queued {
	return &Queued{q: q, metrics: m}
}

// Deliver enqueues the job.
func (r *Queued) Deliver(ctx context.Context, job Job) (Report, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return Report{}, err
	}
	if err := r.q.Publish(ctx, queue.Message{Type: JobType, Body: body}); err != nil {
		r.metrics.RelayDelivery(ModeQueued, "failed")
		return Report{}, fmt.Errorf("enqueue relay job: %w", err)
	}
	r.metrics.RelayDelivery(ModeQueued, "ok")

	attempted := 1
	if job.MessageType == MessageTypeIndividual {
		attempted = len(job.Recipients)
	}
	return Report{Mode: ModeQueued, Queued: true, Attempted: attempted}, nil
}

// Work consumes queued relay jobs until ctx ends or the queue closes.
func Work(ctx context.Context, q queue.Queue, d *Dispatcher, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	for msg := range messages {
		if msg.Type != JobType {
			log.Debug("skipping message", zap.String("type", msg.Type))
			continue
		}
		var job Job
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			log.Error("undecodable relay job", zap.Error(err))
			continue
		}
		report, _ := d.Deliver(ctx, job)
		log.Info("relay job processed",
			zap.String("announcement_id", job.AnnouncementID),
			zap.String("mode", report.Mode),
			zap.Int("delivered", report.Delivered),
			zap.Int("failed", report.Failed))
	}
	return ctx.Err()
}
