package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"shiftsync/internal/models"
	"shiftsync/internal/repository"
)

// Service defines all the business logic operations
type Service interface {
	// Reconciliation of one client batch against the authoritative tables
	Sync(ctx context.Context, req models.SyncRequest) (*models.SyncResponse, error)

	// Full snapshot used once to cold-populate an empty client store
	Bootstrap(ctx context.Context, includeDeleted bool) (*models.BootstrapResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo repository.Repository
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository) Service {
	return &DefaultService{
		repo: repo,
	}
}

// Sync reconciles a batch of client changes. Each record's fate is
// independent: a validation or storage failure lands in Errors and the rest
// of the batch proceeds. Only request-level failures (e.g. a delta query
// going down) abort the round, in which case the client keeps its watermark
// and resubmits the same set next time.
func (s *DefaultService) Sync(ctx context.Context, req models.SyncRequest) (*models.SyncResponse, error) {
	resp := &models.SyncResponse{
		Updates: models.SyncUpdates{
			Records: make(map[models.EntityKind][]models.Record),
		},
		Conflicts: []models.RecordIssue{},
		Errors:    []models.RecordIssue{},
	}

	// ids already present in Updates per kind, so the delta pull below can
	// skip them
	included := make(map[models.EntityKind]map[string]bool)

	for _, kind := range models.Kinds() {
		changes, ok := req.Changes[kind]
		if !ok {
			continue
		}
		included[kind] = make(map[string]bool)
		for _, rec := range changes {
			s.reconcileRecord(ctx, kind, rec, resp, included[kind])
		}
	}

	// Records submitted under a kind this server does not know cannot be
	// persisted anywhere; report each one rather than dropping it silently.
	for _, kind := range sortedUnknownKinds(req.Changes) {
		for _, rec := range req.Changes[kind] {
			resp.Errors = append(resp.Errors, models.RecordIssue{
				ClientRecordID: rec.ID,
				Message:        fmt.Sprintf("unknown entity kind %q", kind),
			})
		}
	}

	// Audit logs are best-effort telemetry: a failed insert is logged and the
	// entry is simply left out of the acknowledgement, so the client retries
	// it next round.
	for _, entry := range req.AuditLogs {
		if entry.ID == "" {
			continue
		}
		if err := s.repo.InsertAuditLog(ctx, entry); err != nil {
			log.Printf("Warning: failed to store audit log %s: %v", entry.ID, err)
			continue
		}
		resp.Updates.AuditLogs = append(resp.Updates.AuditLogs, models.AuditLogRef{ID: entry.ID})
	}

	// Captured after change processing: anything mutated concurrently with
	// this request carries a lastModified at or after this value and is
	// re-delivered on the next round.
	resp.NewSyncTimestamp = time.Now().UnixMilli()

	// Delta pull: changes made by other clients since the caller's watermark,
	// for every kind the caller is tracking.
	for _, kind := range models.Kinds() {
		if _, ok := req.Changes[kind]; !ok {
			continue
		}
		changed, err := s.repo.RecordsChangedSince(ctx, kind, req.LastSyncTimestamp)
		if err != nil {
			return nil, fmt.Errorf("error querying %s changed since %d: %w", kind, req.LastSyncTimestamp, err)
		}
		for _, rec := range changed {
			if included[kind][rec.ID] {
				continue
			}
			resp.Updates.Records[kind] = append(resp.Updates.Records[kind], rec)
			included[kind][rec.ID] = true
		}
	}

	return resp, nil
}

// reconcileRecord decides the fate of one submitted record: validation error,
// conflict resolved in the server's favor, or upsert with the client winning.
// Whatever happens, the record's authoritative value ends up in Updates
// unless it was rejected.
func (s *DefaultService) reconcileRecord(
	ctx context.Context,
	kind models.EntityKind,
	rec models.Record,
	resp *models.SyncResponse,
	included map[string]bool,
) {
	if err := models.ValidateRecord(kind, rec); err != nil {
		resp.Errors = append(resp.Errors, models.RecordIssue{
			ClientRecordID: rec.ID,
			Message:        err.Error(),
		})
		return
	}

	existing, err := s.repo.FindRecord(ctx, kind, rec.ID)
	if err != nil {
		log.Printf("Warning: failed to look up %s/%s: %v", kind, rec.ID, err)
		resp.Errors = append(resp.Errors, models.RecordIssue{
			ClientRecordID: rec.ID,
			Message:        "internal error storing record",
		})
		return
	}

	// Strict inequality: the server yields on ties, so a client resubmitting
	// an unchanged record converges instead of conflicting with itself.
	if existing != nil && existing.LastModified > rec.LastModified {
		resp.Conflicts = append(resp.Conflicts, models.RecordIssue{
			ClientRecordID: rec.ID,
			Message: fmt.Sprintf("server version is newer (%d > %d); local change discarded",
				existing.LastModified, rec.LastModified),
		})
		appendUpdate(resp, kind, *existing, included)
		return
	}

	rec.SyncStatus = models.StatusSynced
	rec.SyncError = ""
	if err := s.repo.UpsertRecord(ctx, kind, rec); err != nil {
		log.Printf("Warning: failed to upsert %s/%s: %v", kind, rec.ID, err)
		resp.Errors = append(resp.Errors, models.RecordIssue{
			ClientRecordID: rec.ID,
			Message:        "internal error storing record",
		})
		return
	}

	appendUpdate(resp, kind, rec, included)
}

func appendUpdate(resp *models.SyncResponse, kind models.EntityKind, rec models.Record, included map[string]bool) {
	if included[rec.ID] {
		return
	}
	resp.Updates.Records[kind] = append(resp.Updates.Records[kind], rec)
	included[rec.ID] = true
}

func sortedUnknownKinds(changes map[models.EntityKind][]models.Record) []models.EntityKind {
	var unknown []models.EntityKind
	for kind := range changes {
		if !kind.Valid() {
			unknown = append(unknown, kind)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return unknown
}

// Bootstrap returns the full snapshot of every entity kind. The watermark is
// captured before the reads so a write racing with this call is re-delivered
// by the first incremental sync.
func (s *DefaultService) Bootstrap(ctx context.Context, includeDeleted bool) (*models.BootstrapResponse, error) {
	resp := &models.BootstrapResponse{
		NewSyncTimestamp: time.Now().UnixMilli(),
		Data:             make(map[models.EntityKind][]models.Record),
	}

	for _, kind := range models.Kinds() {
		records, err := s.repo.AllRecords(ctx, kind, includeDeleted)
		if err != nil {
			return nil, fmt.Errorf("error reading %s snapshot: %w", kind, err)
		}
		resp.Data[kind] = records
	}

	return resp, nil
}
