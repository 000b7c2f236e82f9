package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/wardrobe-dedup/internal/engine"
	"github.com/example/wardrobe-dedup/internal/source"
)

type stubStore struct {
	items        []source.WardrobeItem
	listErr      error
	stats        *source.CollectionStats
	deleteResult *source.DeletionResult
	deleteErr    error
	deletedIDs   []string
	deleteCalls  int
}

func (s *stubStore) ListItems(ctx context.Context, collection string) ([]source.WardrobeItem, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.items, nil
}

func (s *stubStore) DeleteItems(ctx context.Context, collection string, ids []string) (*source.DeletionResult, error) {
	s.deleteCalls++
	s.deletedIDs = ids
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	if s.deleteResult != nil {
		return s.deleteResult, nil
	}
	return &source.DeletionResult{Deleted: len(ids)}, nil
}

func (s *stubStore) CollectionStats(ctx context.Context, collection string) (*source.CollectionStats, error) {
	if s.stats != nil {
		return s.stats, nil
	}
	return &source.CollectionStats{Collection: collection}, nil
}

type stubDetector struct {
	result  *engine.DetectionResult
	err     error
	gotOpts engine.Options
	gotRecs []engine.Record
}

func (s *stubDetector) Run(ctx context.Context, records []engine.Record, opts engine.Options) (*engine.DetectionResult, error) {
	s.gotOpts = opts
	s.gotRecs = records
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubSink struct {
	saved map[string]string
	err   error
}

func (s *stubSink) Save(name, content string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.saved == nil {
		s.saved = map[string]string{}
	}
	s.saved[name] = content
	return "/reports/" + name, nil
}

func wardrobeItems() []source.WardrobeItem {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return []source.WardrobeItem{
		{ID: "a", Collection: "wardrobe", ImageURL: "https://img.example/a.jpg", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "b", Collection: "wardrobe", ImageURL: "https://img.example/b.jpg", CreatedAt: base.Add(time.Hour)},
		{ID: "c", Collection: "wardrobe", ImageURL: "https://img.example/c.jpg", CreatedAt: base},
	}
}

func removalResult() *engine.DetectionResult {
	items := wardrobeItems()
	members := []engine.Record{
		{ID: items[0].ID, CreatedAt: items[0].CreatedAt},
		{ID: items[1].ID, CreatedAt: items[1].CreatedAt},
		{ID: items[2].ID, CreatedAt: items[2].CreatedAt},
	}
	return &engine.DetectionResult{
		Mode:        engine.ModeRemove,
		Threshold:   0.95,
		Processed:   3,
		ExactGroups: []engine.DuplicateGroup{{Kind: engine.GroupExact, Members: members}},
		Decisions: []engine.RetentionDecision{{
			Policy: engine.KeepNewest,
			Group:  engine.GroupExact,
			Keep:   members[0],
			Remove: members[1:],
		}},
	}
}

func TestDetectMapsRecordsAndSavesReport(t *testing.T) {
	store := &stubStore{items: wardrobeItems()}
	detector := &stubDetector{result: &engine.DetectionResult{Mode: engine.ModeDetect, Threshold: 0.95, Processed: 3}}
	sink := &stubSink{}
	uc := NewCleanupUseCase(store, detector, sink, zap.NewNop())

	summary, err := uc.Detect(context.Background(), "wardrobe", 0.95)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected a run id")
	}
	if detector.gotOpts.Mode != engine.ModeDetect {
		t.Fatalf("expected detect mode, got %s", detector.gotOpts.Mode)
	}
	if len(detector.gotRecs) != 3 || detector.gotRecs[0].ID != "a" {
		t.Fatalf("records not mapped from store items: %+v", detector.gotRecs)
	}
	if summary.ReportPath == "" || len(sink.saved) != 1 {
		t.Fatalf("expected report saved, got path %q", summary.ReportPath)
	}
}

func TestCleanupWithoutConfirmIsDryRun(t *testing.T) {
	store := &stubStore{items: wardrobeItems()}
	detector := &stubDetector{result: removalResult()}
	uc := NewCleanupUseCase(store, detector, &stubSink{}, zap.NewNop())

	summary, err := uc.Cleanup(context.Background(), "wardrobe", 0.95, "keep_newest", false)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if store.deleteCalls != 0 {
		t.Fatalf("dry run must not delete, got %d delete calls", store.deleteCalls)
	}
	if summary.RemovableCount != 2 {
		t.Fatalf("expected 2 removable records, got %d", summary.RemovableCount)
	}
	if summary.Deletion != nil {
		t.Fatal("dry run must not report a deletion result")
	}
}

func TestCleanupConfirmedDeletesRemovableIDs(t *testing.T) {
	store := &stubStore{items: wardrobeItems()}
	detector := &stubDetector{result: removalResult()}
	uc := NewCleanupUseCase(store, detector, &stubSink{}, zap.NewNop())

	summary, err := uc.Cleanup(context.Background(), "wardrobe", 0.95, "keep_newest", true)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if store.deleteCalls != 1 {
		t.Fatalf("expected 1 delete call, got %d", store.deleteCalls)
	}
	if len(store.deletedIDs) != 2 || store.deletedIDs[0] != "b" || store.deletedIDs[1] != "c" {
		t.Fatalf("unexpected deleted ids: %v", store.deletedIDs)
	}
	if summary.Deletion == nil || summary.Deletion.Deleted != 2 {
		t.Fatalf("unexpected deletion result: %+v", summary.Deletion)
	}
}

func TestCleanupSurfacesPerIDDeletionErrors(t *testing.T) {
	store := &stubStore{
		items: wardrobeItems(),
		deleteResult: &source.DeletionResult{
			Deleted: 1,
			Errors:  []source.DeletionError{{ItemID: "c", Reason: "record not found"}},
		},
	}
	detector := &stubDetector{result: removalResult()}
	uc := NewCleanupUseCase(store, detector, &stubSink{}, zap.NewNop())

	summary, err := uc.Cleanup(context.Background(), "wardrobe", 0.95, "keep_newest", true)
	if err != nil {
		t.Fatalf("partial deletion failure must not fail the cleanup: %v", err)
	}
	if summary.Deletion.Deleted != 1 || len(summary.Deletion.Errors) != 1 {
		t.Fatalf("unexpected deletion result: %+v", summary.Deletion)
	}
	if summary.Deletion.Errors[0].ItemID != "c" {
		t.Fatalf("unexpected failed id: %s", summary.Deletion.Errors[0].ItemID)
	}
}

func TestCleanupRejectsUnknownPolicyBeforeListing(t *testing.T) {
	store := &stubStore{listErr: errors.New("must not be called")}
	uc := NewCleanupUseCase(store, &stubDetector{}, &stubSink{}, zap.NewNop())

	_, err := uc.Cleanup(context.Background(), "wardrobe", 0.95, "keep_everything", false)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var policyErr *engine.UnknownPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected UnknownPolicyError, got %T", err)
	}
}

func TestCleanupDefaultsPolicyToKeepNewest(t *testing.T) {
	store := &stubStore{items: wardrobeItems()}
	detector := &stubDetector{result: removalResult()}
	uc := NewCleanupUseCase(store, detector, &stubSink{}, zap.NewNop())

	if _, err := uc.Cleanup(context.Background(), "wardrobe", 0.95, "", false); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if detector.gotOpts.Policy != engine.KeepNewest {
		t.Fatalf("expected default policy keep_newest, got %s", detector.gotOpts.Policy)
	}
}

func TestDetectReportSinkFailureIsNonFatal(t *testing.T) {
	store := &stubStore{items: wardrobeItems()}
	detector := &stubDetector{result: &engine.DetectionResult{Mode: engine.ModeDetect, Threshold: 0.95}}
	uc := NewCleanupUseCase(store, detector, &stubSink{err: errors.New("disk full")}, zap.NewNop())

	summary, err := uc.Detect(context.Background(), "wardrobe", 0.95)
	if err != nil {
		t.Fatalf("sink failure must not fail detection: %v", err)
	}
	if summary.ReportPath != "" {
		t.Fatalf("expected empty report path, got %q", summary.ReportPath)
	}
}

func TestMetricsCombinesStoreAndDetection(t *testing.T) {
	store := &stubStore{
		items: wardrobeItems(),
		stats: &source.CollectionStats{Collection: "wardrobe", TotalItems: 3, DistinctBrands: 2},
	}
	detector := &stubDetector{result: removalResult()}
	uc := NewCleanupUseCase(store, detector, nil, zap.NewNop())

	metrics, err := uc.Metrics(context.Background(), "wardrobe", 0.95)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if metrics.TotalItems != 3 || metrics.DistinctBrands != 2 {
		t.Fatalf("store stats not propagated: %+v", metrics)
	}
	if metrics.ExactGroups != 1 || metrics.RemovableCount != 2 {
		t.Fatalf("detection stats not propagated: %+v", metrics)
	}
	if metrics.DuplicateRatio != 2.0/3.0 {
		t.Fatalf("unexpected duplicate ratio: %v", metrics.DuplicateRatio)
	}
}
