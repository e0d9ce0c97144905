package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/unistep/internal/cache"
	"github.com/yoockh/unistep/internal/models"
)

const (
	DefaultStream = "apply:submitted"
	DefaultGroup  = "submission-workers"

	// DefaultClaimMinIdle is how long a delivered message may stay unacked
	// before any consumer takes it over and retries it.
	DefaultClaimMinIdle = 2 * time.Minute
	DefaultClaimEvery   = time.Minute
)

// Ledger is the part of the upload ledger the worker needs.
type Ledger interface {
	AttachToApplication(ctx context.Context, wizardID, applicationID string, at time.Time) (int64, error)
}

// SubmissionWorkerPool consumes submission events: it links the wizard's
// uploads to the stored application and drops the tenant's cached stats.
type SubmissionWorkerPool struct {
	Redis      redis.Cmdable
	Ledger     Ledger
	Cache      cache.Cache
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	ClaimMinIdle time.Duration
	ClaimEvery   time.Duration

	now func() time.Time
}

func (p *SubmissionWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Ledger == nil {
		return errors.New("SubmissionWorkerPool missing dependency: Redis/Ledger must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	p.Logger.WithFields(logrus.Fields{"stream": p.Stream, "group": p.Group, "workers": p.NumWorkers}).Info("submission workers started")
	return nil
}

func (p *SubmissionWorkerPool) defaults() {
	if p.Stream == "" {
		p.Stream = DefaultStream
	}
	if p.Group == "" {
		p.Group = DefaultGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.ClaimMinIdle <= 0 {
		p.ClaimMinIdle = DefaultClaimMinIdle
	}
	if p.ClaimEvery <= 0 {
		p.ClaimEvery = DefaultClaimEvery
	}
}

// runConsumer first replays the consumer's own pending entries, left over
// from a previous run, then reads new ones. Entries whose handling failed stay
// pending and are taken back with XAUTOCLAIM once they have idled long enough.
func (p *SubmissionWorkerPool) runConsumer(ctx context.Context, consumer string) {
	log := p.Logger.WithField("consumer", consumer)
	if err := p.drainPending(ctx, consumer); err != nil && ctx.Err() == nil {
		log.WithError(err).Warn("pending replay failed")
	}
	lastClaim := p.now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if p.now().Sub(lastClaim) >= p.ClaimEvery {
			if err := p.reclaimIdle(ctx, consumer); err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("xautoclaim failed")
			}
			lastClaim = p.now()
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			log.WithError(err).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			p.process(ctx, stream.Messages)
		}
	}
}

// drainPending reads the consumer's pending list from the start. A message
// that fails again is skipped for now and left to reclaimIdle.
func (p *SubmissionWorkerPool) drainPending(ctx context.Context, consumer string) error {
	start := "0"
	for {
		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, start},
			Count:    10,
			Block:    -1,
		}).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var msgs []redis.XMessage
		for _, stream := range res {
			msgs = append(msgs, stream.Messages...)
		}
		if len(msgs) == 0 {
			return nil
		}
		p.process(ctx, msgs)
		start = msgs[len(msgs)-1].ID
	}
}

// reclaimIdle takes over entries any consumer left unacked for ClaimMinIdle,
// including ones from consumers that no longer run.
func (p *SubmissionWorkerPool) reclaimIdle(ctx context.Context, consumer string) error {
	start := "0-0"
	for {
		msgs, next, err := p.Redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   p.Stream,
			Group:    p.Group,
			MinIdle:  p.ClaimMinIdle,
			Start:    start,
			Count:    10,
			Consumer: consumer,
		}).Result()
		if err != nil {
			return err
		}
		p.process(ctx, msgs)
		if next == "0-0" || next == "" || len(msgs) == 0 {
			return nil
		}
		start = next
	}
}

// process acks every message handled successfully. It returns how many were.
func (p *SubmissionWorkerPool) process(ctx context.Context, msgs []redis.XMessage) int {
	acked := 0
	for _, msg := range msgs {
		if err := p.handleMsg(ctx, msg); err != nil {
			continue
		}
		if err := p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err(); err != nil {
			p.Logger.WithError(err).WithField("redis_id", msg.ID).Warn("xack failed")
			continue
		}
		acked++
	}
	return acked
}

// handleMsg returns an error only when the message should be retried.
func (p *SubmissionWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) error {
	ev, ok := decodeEvent(msg.Values)
	log := p.Logger.WithField("redis_id", msg.ID)
	if !ok {
		log.Warn("malformed submission event dropped")
		return nil
	}
	log = log.WithFields(logrus.Fields{
		"application_id": ev.ApplicationID,
		"wizard_id":      ev.WizardID,
		"university":     ev.University,
	})

	n, err := p.Ledger.AttachToApplication(ctx, ev.WizardID, ev.ApplicationID, p.now())
	if err != nil {
		log.WithError(err).Error("attach uploads failed")
		return err
	}

	if p.Cache != nil {
		if err := p.Cache.Del(ctx, cache.StatsKey(ev.University)); err != nil {
			log.WithError(err).Warn("stats cache invalidation failed")
		}
	}
	log.WithField("uploads", n).Info("submission processed")
	return nil
}

func decodeEvent(values map[string]any) (models.SubmissionEvent, bool) {
	getStr := func(k string) string {
		v, ok := values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	ev := models.SubmissionEvent{
		ApplicationID: getStr("application_id"),
		WizardID:      getStr("wizard_id"),
		University:    getStr("university"),
	}
	if ev.ApplicationID == "" || ev.WizardID == "" {
		return ev, false
	}
	if ts := getStr("submitted_at"); ts != "" {
		ev.SubmittedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return ev, true
}

// StreamPublisher appends submission events to the stream the pool reads.
type StreamPublisher struct {
	Redis  *redis.Client
	Stream string
	// MaxLen caps the stream length approximately. Zero keeps everything.
	MaxLen int64
}

func (p *StreamPublisher) PublishSubmitted(ctx context.Context, ev models.SubmissionEvent) error {
	stream := p.Stream
	if stream == "" {
		stream = DefaultStream
	}
	return p.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.MaxLen,
		Approx: p.MaxLen > 0,
		Values: eventValues(ev),
	}).Err()
}

func eventValues(ev models.SubmissionEvent) map[string]any {
	return map[string]any{
		"application_id": ev.ApplicationID,
		"wizard_id":      ev.WizardID,
		"university":     ev.University,
		"submitted_at":   ev.SubmittedAt.UTC().Format(time.RFC3339Nano),
	}
}
