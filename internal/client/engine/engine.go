// Package engine runs the client side of the reconciliation protocol: it
// batches locally pending records, posts them to the server, applies the
// authoritative response, and advances the sync watermark.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"shiftsync/internal/client/store"
	"shiftsync/internal/logging"
	"shiftsync/internal/models"
)

// Status is the engine's state machine position:
// idle → syncing → {success, error, no-network} → idle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSyncing   Status = "syncing"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusNoNetwork Status = "no-network"
)

// ErrSyncInProgress is returned when a trigger arrives while a round is in
// flight. Triggers never interleave; the caller simply tries again later.
var ErrSyncInProgress = errors.New("sync round already in progress")

// Summary describes the outcome of the last completed round.
type Summary struct {
	Status     Status
	Synced     int
	Conflicts  []models.RecordIssue
	Errors     []models.RecordIssue
	AuditAcked int
	Watermark  int64
	FinishedAt time.Time
}

// Engine coordinates sync rounds against a single local store. At most one
// round runs at a time.
type Engine struct {
	store  store.Store
	client *APIClient
	log    logging.Logger

	mu      sync.Mutex
	syncing bool
	last    Summary
}

// New creates an engine over the given store and API client.
func New(st store.Store, client *APIClient, log logging.Logger) *Engine {
	return &Engine{
		store:  st,
		client: client,
		log:    log,
		last:   Summary{Status: StatusIdle},
	}
}

// Status returns the engine's state machine position: syncing while a round
// is in flight, otherwise idle. The outcome of the previous round lives in
// LastSummary.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncing {
		return StatusSyncing
	}
	return StatusIdle
}

// LastSummary returns a snapshot of the most recent round's outcome.
func (e *Engine) LastSummary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncing {
		return ErrSyncInProgress
	}
	e.syncing = true
	return nil
}

func (e *Engine) finish(summary Summary) {
	summary.FinishedAt = time.Now()
	e.mu.Lock()
	e.syncing = false
	e.last = summary
	e.mu.Unlock()
}

// Sync runs one reconciliation round. A transport failure leaves every local
// record untouched, so the next attempt resubmits the exact same set.
func (e *Engine) Sync(ctx context.Context) (Summary, error) {
	if err := e.begin(); err != nil {
		return Summary{}, err
	}

	summary, err := e.round(ctx)
	if err != nil {
		summary.Status = StatusError
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			summary.Status = StatusNoNetwork
		}
		e.finish(summary)
		return summary, err
	}

	summary.Status = StatusSuccess
	e.finish(summary)
	return summary, nil
}

func (e *Engine) round(ctx context.Context) (Summary, error) {
	var summary Summary

	watermark, err := e.watermark(ctx)
	if err != nil {
		return summary, err
	}

	// Every kind goes into the request, empty or not, so the server's delta
	// pull covers kinds this client has not edited.
	changes := make(map[models.EntityKind][]models.Record, len(models.Kinds()))
	kindOf := make(map[string]models.EntityKind)
	outgoing := 0
	for _, kind := range models.Kinds() {
		records, err := e.store.PendingOrError(ctx, kind)
		if err != nil {
			return summary, fmt.Errorf("error reading pending %s: %w", kind, err)
		}
		if records == nil {
			records = []models.Record{}
		}
		changes[kind] = records
		outgoing += len(records)
		for _, rec := range records {
			kindOf[rec.ID] = kind
		}
	}

	auditLogs, err := e.store.PendingAuditLogs(ctx)
	if err != nil {
		return summary, fmt.Errorf("error reading audit outbox: %w", err)
	}

	e.log.Info("starting sync round",
		"watermark", watermark, "outgoing", outgoing, "auditLogs", len(auditLogs))

	resp, err := e.client.Sync(ctx, models.SyncRequest{
		LastSyncTimestamp: watermark,
		Changes:           changes,
		AuditLogs:         auditLogs,
	})
	if err != nil {
		e.log.Warn("sync round failed before applying anything", "error", err)
		return summary, err
	}

	// Accept every authoritative record: our own accepted submissions, server
	// winners, and other clients' changes pulled by the delta query.
	for _, kind := range models.Kinds() {
		for _, rec := range resp.Updates.Records[kind] {
			rec.SyncStatus = models.StatusSynced
			rec.SyncError = ""
			if err := e.store.Upsert(ctx, kind, rec); err != nil {
				return summary, fmt.Errorf("error applying %s/%s: %w", kind, rec.ID, err)
			}
			summary.Synced++
		}
	}

	// Conflicts are information, not failures: the server's winning value is
	// already applied above.
	summary.Conflicts = resp.Conflicts
	for _, conflict := range resp.Conflicts {
		e.log.Info("server kept its newer version",
			"recordId", conflict.ClientRecordID, "message", conflict.Message)
	}

	// Rejected records keep their local payload and wait for the user.
	summary.Errors = resp.Errors
	for _, recErr := range resp.Errors {
		kind, ok := kindOf[recErr.ClientRecordID]
		if !ok {
			e.log.Warn("server reported error for a record this round never sent",
				"recordId", recErr.ClientRecordID)
			continue
		}
		if err := e.store.MarkError(ctx, kind, recErr.ClientRecordID, recErr.Message); err != nil {
			return summary, fmt.Errorf("error flagging %s/%s: %w", kind, recErr.ClientRecordID, err)
		}
	}

	// Unacknowledged audit entries stay queued for the next round.
	if len(resp.Updates.AuditLogs) > 0 {
		ids := make([]string, 0, len(resp.Updates.AuditLogs))
		for _, ref := range resp.Updates.AuditLogs {
			ids = append(ids, ref.ID)
		}
		if err := e.store.MarkAuditLogsSent(ctx, ids); err != nil {
			return summary, fmt.Errorf("error clearing audit outbox: %w", err)
		}
		summary.AuditAcked = len(ids)
	}

	// The watermark advances only after the whole response is applied.
	if err := e.putWatermark(ctx, resp.NewSyncTimestamp); err != nil {
		return summary, err
	}
	summary.Watermark = resp.NewSyncTimestamp

	e.log.Info("sync round finished",
		"synced", summary.Synced,
		"conflicts", len(summary.Conflicts),
		"errors", len(summary.Errors),
		"watermark", summary.Watermark)

	return summary, nil
}

// Bootstrap cold-populates an empty store from the full server snapshot and
// seeds the watermark. All later convergence goes through Sync.
func (e *Engine) Bootstrap(ctx context.Context, includeDeleted bool) (Summary, error) {
	if err := e.begin(); err != nil {
		return Summary{}, err
	}

	var summary Summary
	resp, err := e.client.Bootstrap(ctx, includeDeleted)
	if err != nil {
		summary.Status = StatusError
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			summary.Status = StatusNoNetwork
		}
		e.finish(summary)
		return summary, err
	}

	for _, kind := range models.Kinds() {
		for _, rec := range resp.Data[kind] {
			rec.SyncStatus = models.StatusSynced
			rec.SyncError = ""
			if err := e.store.Upsert(ctx, kind, rec); err != nil {
				summary.Status = StatusError
				e.finish(summary)
				return summary, fmt.Errorf("error applying %s/%s: %w", kind, rec.ID, err)
			}
			summary.Synced++
		}
	}

	if err := e.putWatermark(ctx, resp.NewSyncTimestamp); err != nil {
		summary.Status = StatusError
		e.finish(summary)
		return summary, err
	}
	summary.Watermark = resp.NewSyncTimestamp
	summary.Status = StatusSuccess
	e.finish(summary)

	e.log.Info("bootstrap finished", "records", summary.Synced, "watermark", summary.Watermark)
	return summary, nil
}

// RunPeriodic syncs immediately and then on every tick until ctx is done.
// A round still in flight when the tick fires is left alone.
func (e *Engine) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := e.Sync(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
			e.log.Warn("periodic sync failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) watermark(ctx context.Context) (int64, error) {
	value, err := e.store.GetSetting(ctx, store.SettingLastSyncTimestamp)
	if err != nil {
		return 0, fmt.Errorf("error reading watermark: %w", err)
	}
	if value == "" {
		return 0, nil
	}
	watermark, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt watermark %q: %w", value, err)
	}
	return watermark, nil
}

func (e *Engine) putWatermark(ctx context.Context, watermark int64) error {
	err := e.store.PutSetting(ctx, store.SettingLastSyncTimestamp, strconv.FormatInt(watermark, 10))
	if err != nil {
		return fmt.Errorf("error persisting watermark: %w", err)
	}
	return nil
}
