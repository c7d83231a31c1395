package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/store"
)

// Relay defaults.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultInterval    = 10 * time.Second
	DefaultMaxAttempts = 10
	DefaultBatchSize   = 100
)

// Relay delivers outbox entries to a Mirror.
type Relay struct {
	DB     *sql.DB
	Mirror Mirror
	Log    *zap.Logger

	Timeout     time.Duration // per mirror write
	Interval    time.Duration // between background drains
	MaxAttempts int           // failures before an entry is parked
	BatchSize   int

	Now func() time.Time

	locks keyedMutex
}

// NewRelay returns a Relay with default tuning.
func NewRelay(db *sql.DB, m Mirror, log *zap.Logger) *Relay {
	return &Relay{
		DB:          db,
		Mirror:      m,
		Log:         log,
		Timeout:     DefaultTimeout,
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		BatchSize:   DefaultBatchSize,
		Now:         time.Now,
	}
}

// ErrParked reports that a parked entry holds back later writes for the same
// document until it is revived.
var ErrParked = errors.New("parked outbox entry")

// Sync delivers every pending entry for one document in recording order and
// stops at the first failure or parked entry, so later writes never overtake
// earlier ones. A failure is returned wrapped in model.ErrMirrorSync; the
// entry stays in the outbox for a later retry.
func (r *Relay) Sync(ctx context.Context, collection, docID string) error {
	unlock := r.locks.Lock(collection + "/" + docID)
	defer unlock()

	entries, err := store.ListPendingOutboxForDoc(ctx, r.DB, collection, docID)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrMirrorSync, err)
	}

	for _, e := range entries {
		if e.Dead {
			return fmt.Errorf("%w: outbox entry %d for %s/%s: %w", model.ErrMirrorSync, e.ID, collection, docID, ErrParked)
		}
		if err := r.deliver(ctx, e); err != nil {
			return fmt.Errorf("%w: outbox entry %d for %s/%s: %v", model.ErrMirrorSync, e.ID, collection, docID, err)
		}
	}
	return nil
}

// DrainOnce delivers entries that are due, grouped per document. It returns
// how many documents were brought up to date.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	due, err := store.ListDueOutbox(ctx, r.DB, r.now(), r.batchSize())
	if err != nil {
		return 0, err
	}

	type docKey struct{ collection, id string }
	seen := make(map[docKey]bool)
	synced := 0
	for _, e := range due {
		k := docKey{e.Collection, e.DocID}
		if seen[k] {
			continue
		}
		seen[k] = true

		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := r.Sync(ctx, e.Collection, e.DocID); err != nil {
			if errors.Is(err, ErrParked) {
				r.Log.Debug("mirror writes held behind parked entry",
					zap.String("collection", e.Collection),
					zap.String("doc_id", e.DocID))
				continue
			}
			r.Log.Warn("mirror retry failed",
				zap.String("collection", e.Collection),
				zap.String("doc_id", e.DocID),
				zap.Error(err))
			continue
		}
		synced++
	}
	return synced, nil
}

// Run drains the outbox every Interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.Log.Info("mirror relay started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.Log.Info("mirror relay stopped")
			return nil
		case <-ticker.C:
			n, err := r.DrainOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.Log.Error("mirror relay drain failed", zap.Error(err))
				continue
			}
			if n > 0 {
				r.Log.Info("mirror relay synced documents", zap.Int("documents", n))
			}
		}
	}
}

func (r *Relay) deliver(ctx context.Context, e model.OutboxEntry) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	switch e.Op {
	case model.OutboxSet:
		err = r.Mirror.Set(wctx, e.Collection, e.DocID, e.Payload)
	case model.OutboxUpdate:
		err = r.Mirror.Update(wctx, e.Collection, e.DocID, e.Payload)
	case model.OutboxDelete:
		err = r.Mirror.Delete(wctx, e.Collection, e.DocID)
	default:
		err = fmt.Errorf("unknown outbox op %q", e.Op)
	}

	if err != nil {
		// Record against a fresh context: the request may already be gone.
		dead, recErr := store.RecordOutboxFailure(context.WithoutCancel(ctx), r.DB, e.ID, err, r.now(), r.MaxAttempts)
		if recErr != nil {
			r.Log.Error("recording mirror failure", zap.Int64("outbox_id", e.ID), zap.Error(recErr))
		}
		if dead {
			r.Log.Error("mirror write parked after max attempts",
				zap.Int64("outbox_id", e.ID),
				zap.String("collection", e.Collection),
				zap.String("doc_id", e.DocID),
				zap.Int("max_attempts", r.MaxAttempts),
				zap.Error(err))
		}
		return err
	}

	if err := store.MarkOutboxDelivered(context.WithoutCancel(ctx), r.DB, e.ID, r.now()); err != nil {
		// The write landed; a redelivery is a harmless overwrite.
		r.Log.Warn("marking mirror write delivered", zap.Int64("outbox_id", e.ID), zap.Error(err))
	}
	return nil
}

func (r *Relay) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Relay) batchSize() int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}
	return DefaultBatchSize
}
