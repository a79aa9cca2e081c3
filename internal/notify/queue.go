// Package notify holds the transient, time-boxed user-facing messages every
// store action reports through.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lenshaus/storefront-core/pkg/config"
	pkgerrors "github.com/lenshaus/storefront-core/pkg/errors"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notice is a single display message. It expires DisplayDuration after Push
// unless dismissed earlier.
type Notice struct {
	ID        uuid.UUID
	Text      string
	Severity  Severity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Queue keeps notices in insertion order and drops them on expiry. Expiry is
// swept lazily on read so UI-driven use needs no goroutine; long-lived
// processes can run the reaper.
type Queue struct {
	mu      sync.Mutex
	ttl     time.Duration
	notices []Notice
	now     func() time.Time
}

func NewQueue(cfg config.NotifyConfig) *Queue {
	ttl := cfg.DisplayDuration
	if ttl <= 0 {
		ttl = 4 * time.Second
	}
	return &Queue{
		ttl: ttl,
		now: time.Now,
	}
}

// Push appends a notice and returns its id for early dismissal.
func (q *Queue) Push(text string, severity Severity) uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	notice := Notice{
		ID:        uuid.New(),
		Text:      text,
		Severity:  severity,
		CreatedAt: now,
		ExpiresAt: now.Add(q.ttl),
	}
	q.sweepLocked(now)
	q.notices = append(q.notices, notice)
	return notice.ID
}

// PushError reports a failure using the public message for its error code.
func (q *Queue) PushError(err error) uuid.UUID {
	meta := pkgerrors.MetadataFor(pkgerrors.As(err).Code())
	return q.Push(meta.PublicMessage, SeverityError)
}

// Dismiss removes the notice before its expiry. Unknown ids are a no-op.
func (q *Queue) Dismiss(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.notices[:0]
	for _, notice := range q.notices {
		if notice.ID != id {
			kept = append(kept, notice)
		}
	}
	q.notices = kept
}

// Active returns the live notices, oldest first.
func (q *Queue) Active() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sweepLocked(q.now())
	out := make([]Notice, len(q.notices))
	copy(out, q.notices)
	return out
}

// StartReaper sweeps expired notices until ctx is done.
func (q *Queue) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.mu.Lock()
				q.sweepLocked(q.now())
				q.mu.Unlock()
			}
		}
	}()
}

func (q *Queue) sweepLocked(now time.Time) {
	kept := q.notices[:0]
	for _, notice := range q.notices {
		if notice.ExpiresAt.After(now) {
			kept = append(kept, notice)
		}
	}
	q.notices = kept
}
