package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grantpath/grantpath/src/advisor"
)

const (
	reportPrefix   = "grantpath:report:"
	progressPrefix = "grantpath:progress:"
)

// ErrNotFound is returned when no cached artifact exists for a run.
var ErrNotFound = errors.New("cache: not found")

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// ReportStore keeps terminal reports and last progress snapshots so pollers
// can still be served after the in-memory run has been consumed.
type ReportStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewReportStore wraps a redis client; a nil client yields a nil store,
// which callers treat as "caching disabled".
func NewReportStore(rdb *redis.Client, ttl time.Duration) *ReportStore {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReportStore{rdb: rdb, ttl: ttl}
}

func (s *ReportStore) SaveReport(ctx context.Context, runID string, report *advisor.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("cache: marshal report: %w", err)
	}
	return s.rdb.Set(ctx, reportPrefix+runID, payload, s.ttl).Err()
}

func (s *ReportStore) GetReport(ctx context.Context, runID string) (*advisor.Report, error) {
	payload, err := s.rdb.Get(ctx, reportPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var report advisor.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("cache: decode report: %w", err)
	}
	return &report, nil
}

func (s *ReportStore) SaveSnapshot(ctx context.Context, snap advisor.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot: %w", err)
	}
	return s.rdb.Set(ctx, progressPrefix+snap.RunID, payload, s.ttl).Err()
}

func (s *ReportStore) GetSnapshot(ctx context.Context, runID string) (advisor.Snapshot, error) {
	payload, err := s.rdb.Get(ctx, progressPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return advisor.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return advisor.Snapshot{}, err
	}
	var snap advisor.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return advisor.Snapshot{}, fmt.Errorf("cache: decode snapshot: %w", err)
	}
	return snap, nil
}
