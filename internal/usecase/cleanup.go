package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/wardrobe-dedup/internal/engine"
	"github.com/example/wardrobe-dedup/internal/logging"
	"github.com/example/wardrobe-dedup/internal/report"
	"github.com/example/wardrobe-dedup/internal/source"
)

// RecordStore defines the persistence operations needed by the cleanup flow.
type RecordStore interface {
	ListItems(ctx context.Context, collection string) ([]source.WardrobeItem, error)
	DeleteItems(ctx context.Context, collection string, ids []string) (*source.DeletionResult, error)
	CollectionStats(ctx context.Context, collection string) (*source.CollectionStats, error)
}

// DuplicateDetector is the engine surface the use case drives.
type DuplicateDetector interface {
	Run(ctx context.Context, records []engine.Record, opts engine.Options) (*engine.DetectionResult, error)
}

// ReportSink persists one rendered report and returns where it landed.
type ReportSink interface {
	Save(name, content string) (string, error)
}

// DetectionSummary is the outcome of a read-only detection pass.
type DetectionSummary struct {
	RunID      string                  `json:"run_id"`
	Collection string                  `json:"collection"`
	Result     *engine.DetectionResult `json:"result"`
	ReportPath string                  `json:"report_path,omitempty"`
}

// CleanupSummary is the outcome of a removal pass. Deletions only happen
// when the caller confirmed; otherwise the decisions are a dry run.
type CleanupSummary struct {
	DetectionSummary
	Confirmed      bool                   `json:"confirmed"`
	RemovableCount int                    `json:"removable_count"`
	Deletion       *source.DeletionResult `json:"deletion,omitempty"`
}

// MetricsSummary aggregates collection and duplication insights.
type MetricsSummary struct {
	Collection     string  `json:"collection"`
	TotalItems     int64   `json:"total_items"`
	DistinctBrands int64   `json:"distinct_brands"`
	Processed      int     `json:"processed"`
	Failed         int     `json:"failed"`
	ExactGroups    int     `json:"exact_groups"`
	NearGroups     int     `json:"near_groups"`
	RemovableCount int     `json:"removable_count"`
	DuplicateRatio float64 `json:"duplicate_ratio"`
}

// CleanupUseCase encapsulates business logic for duplicate detection and
// removal over one wardrobe collection at a time.
type CleanupUseCase struct {
	store    RecordStore
	detector DuplicateDetector
	reports  ReportSink
	logger   *zap.Logger
}

// NewCleanupUseCase constructs a new use case instance.
func NewCleanupUseCase(store RecordStore, detector DuplicateDetector, reports ReportSink, logger *zap.Logger) *CleanupUseCase {
	return &CleanupUseCase{
		store:    store,
		detector: detector,
		reports:  reports,
		logger:   logger.Named("cleanup_usecase"),
	}
}

// Detect runs a read-only detection pass and writes the text report.
func (uc *CleanupUseCase) Detect(ctx context.Context, collection string, threshold float64) (*DetectionSummary, error) {
	runID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.detect", runID)

	result, err := uc.runDetection(ctx, runID, collection, engine.Options{
		Mode:      engine.ModeDetect,
		Threshold: threshold,
	})
	if err != nil {
		return nil, err
	}

	summary := &DetectionSummary{RunID: runID, Collection: collection, Result: result}
	summary.ReportPath = uc.saveReport(opLogger, runID, collection, result)

	opLogger.Info("detection completed",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("exact_groups", len(result.ExactGroups)),
		zap.Int("near_groups", len(result.NearGroups)))
	return summary, nil
}

// Cleanup runs a detection pass with retention decisions attached. Only when
// confirm is true are the marked records deleted from the store; the decide
// and act phases stay separable so a dry run is always auditable first.
func (uc *CleanupUseCase) Cleanup(ctx context.Context, collection string, threshold float64, policy string, confirm bool) (*CleanupSummary, error) {
	runID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.cleanup", runID)

	parsed, err := engine.ParsePolicy(policyOrDefault(policy))
	if err != nil {
		return nil, err
	}

	result, err := uc.runDetection(ctx, runID, collection, engine.Options{
		Mode:      engine.ModeRemove,
		Threshold: threshold,
		Policy:    parsed,
	})
	if err != nil {
		return nil, err
	}

	removable := result.RemovableIDs()
	summary := &CleanupSummary{
		DetectionSummary: DetectionSummary{RunID: runID, Collection: collection, Result: result},
		Confirmed:        confirm,
		RemovableCount:   len(removable),
	}

	if confirm && len(removable) > 0 {
		deletion, err := uc.store.DeleteItems(ctx, collection, removable)
		if err != nil {
			wrapped := logging.NewOperationError("usecase.delete_items", runID, err)
			opLogger.Error("failed to delete duplicates", zap.Error(wrapped))
			return nil, wrapped
		}
		summary.Deletion = deletion
		opLogger.Info("duplicates removed",
			zap.Int("deleted", deletion.Deleted),
			zap.Int("delete_errors", len(deletion.Errors)))
	}

	summary.ReportPath = uc.saveReport(opLogger, runID, collection, result)
	return summary, nil
}

// Metrics reports store-level counts plus duplication stats from a detect
// pass at the given threshold.
func (uc *CleanupUseCase) Metrics(ctx context.Context, collection string, threshold float64) (*MetricsSummary, error) {
	runID := uuid.NewString()

	stats, err := uc.store.CollectionStats(ctx, collection)
	if err != nil {
		return nil, logging.NewOperationError("usecase.collection_stats", runID, err)
	}

	result, err := uc.runDetection(ctx, runID, collection, engine.Options{
		Mode:      engine.ModeRemove,
		Threshold: threshold,
		Policy:    engine.DefaultPolicy,
	})
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		Collection:     collection,
		TotalItems:     stats.TotalItems,
		DistinctBrands: stats.DistinctBrands,
		Processed:      result.Processed,
		Failed:         result.Failed,
		ExactGroups:    len(result.ExactGroups),
		NearGroups:     len(result.NearGroups),
		RemovableCount: len(result.RemovableIDs()),
	}
	if result.Processed > 0 {
		summary.DuplicateRatio = float64(summary.RemovableCount) / float64(result.Processed)
	}
	return summary, nil
}

func (uc *CleanupUseCase) runDetection(ctx context.Context, runID, collection string, opts engine.Options) (*engine.DetectionResult, error) {
	items, err := uc.store.ListItems(ctx, collection)
	if err != nil {
		return nil, logging.NewOperationError("usecase.list_items", runID, err)
	}

	records := make([]engine.Record, len(items))
	for i, item := range items {
		records[i] = engine.Record{ID: item.ID, ImageURL: item.ImageURL, CreatedAt: item.CreatedAt}
	}

	result, err := uc.detector.Run(ctx, records, opts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// saveReport renders and stores the text report; a sink failure downgrades
// to a log entry because the JSON result already reached the caller.
func (uc *CleanupUseCase) saveReport(opLogger *zap.Logger, runID, collection string, result *engine.DetectionResult) string {
	if uc.reports == nil {
		return ""
	}
	name := fmt.Sprintf("duplicates_%s_%s.txt", collection, runID)
	path, err := uc.reports.Save(name, report.Render(collection, result))
	if err != nil {
		opLogger.Warn("failed to save report", zap.Error(err))
		return ""
	}
	return path
}

func policyOrDefault(policy string) string {
	if policy == "" {
		return string(engine.DefaultPolicy)
	}
	return policy
}
