package source

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/wardrobe-dedup/internal/logging"
)

// WardrobeItem represents one stored wardrobe record with its image.
type WardrobeItem struct {
	ID         string    `gorm:"primaryKey;size:64"`
	Collection string    `gorm:"column:collection;index;size:64"`
	Name       string    `gorm:"column:name;size:256"`
	BrandName  string    `gorm:"column:brand_name;size:128"`
	ImageURL   string    `gorm:"column:image_url;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (WardrobeItem) TableName() string {
	return "wardrobe_items"
}

// CollectionStats summarizes one collection for the stats endpoint.
type CollectionStats struct {
	Collection     string `json:"collection"`
	TotalItems     int64  `json:"total_items"`
	DistinctBrands int64  `json:"distinct_brands"`
}

// DeletionError reports a single failed delete. Deletes are independent;
// one failure never rolls back the others.
type DeletionError struct {
	ItemID string `json:"item_id"`
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// DeletionResult aggregates the outcome of a removal pass.
type DeletionResult struct {
	Deleted int             `json:"deleted"`
	Errors  []DeletionError `json:"errors,omitempty"`
}

// WardrobeRepository provides persistence APIs for wardrobe items.
type WardrobeRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewWardrobeRepository creates a new repository instance.
func NewWardrobeRepository(db *gorm.DB, logger *zap.Logger) *WardrobeRepository {
	return &WardrobeRepository{
		db:             db,
		logger:         logger.Named("wardrobe_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *WardrobeRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&WardrobeItem{})
}

// ListItems returns a snapshot of one collection, newest first. The order is
// a presentation choice of the feed; retention policies never rely on it.
func (r *WardrobeRepository) ListItems(ctx context.Context, collection string) ([]WardrobeItem, error) {
	var items []WardrobeItem
	err := r.executeWithRetry(ctx, "repository.list_items", collection, func() error {
		return r.db.WithContext(ctx).
			Where("collection = ?", collection).
			Order("created_at DESC").
			Find(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteItems removes the given ids one at a time, collecting per-id errors
// instead of aborting. There is no transactional guarantee across the set.
func (r *WardrobeRepository) DeleteItems(ctx context.Context, collection string, ids []string) (*DeletionResult, error) {
	result := &DeletionResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		err := r.executeWithRetry(ctx, "repository.delete_item", id, func() error {
			res := r.db.WithContext(ctx).
				Where("collection = ? AND id = ?", collection, id).
				Delete(&WardrobeItem{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return nil
		})
		if err != nil {
			r.logger.Warn("failed to delete item", zap.String("item_id", id), zap.Error(err))
			result.Errors = append(result.Errors, DeletionError{ItemID: id, Err: err, Reason: err.Error()})
			continue
		}
		result.Deleted++
	}
	return result, nil
}

// CollectionStats aggregates item and brand counts for a collection.
func (r *WardrobeRepository) CollectionStats(ctx context.Context, collection string) (*CollectionStats, error) {
	stats := &CollectionStats{Collection: collection}
	err := r.executeWithRetry(ctx, "repository.collection_stats", collection, func() error {
		if err := r.db.WithContext(ctx).
			Model(&WardrobeItem{}).
			Where("collection = ?", collection).
			Count(&stats.TotalItems).Error; err != nil {
			return err
		}
		return r.db.WithContext(ctx).
			Model(&WardrobeItem{}).
			Where("collection = ?", collection).
			Distinct("brand_name").
			Count(&stats.DistinctBrands).Error
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *WardrobeRepository) executeWithRetry(ctx context.Context, operation, ref string, fn func() error) error {
	if r.retryAttempts <= 1 {
		return logging.NewOperationError(operation, ref, fn())
	}

	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, ref)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, ref, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, ref, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, ref, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
