package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/types"
)

type GroupingOverrideRepo interface {
	// Append assigns the next per-pool sequence number and inserts the
	// event. The log is append-only; the only delete is the wholesale
	// truncation on reset or regeneration.
	Append(ctx context.Context, tx *gorm.DB, ev *types.GroupingOverride) (*types.GroupingOverride, error)
	ListByPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) ([]*types.GroupingOverride, error)
	DeleteByPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) error
}

type groupingOverrideRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupingOverrideRepo(db *gorm.DB, baseLog *logger.Logger) GroupingOverrideRepo {
	repoLog := baseLog.With("repo", "GroupingOverrideRepo")
	return &groupingOverrideRepo{db: db, log: repoLog}
}

func (r *groupingOverrideRepo) Append(ctx context.Context, tx *gorm.DB, ev *types.GroupingOverride) (*types.GroupingOverride, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if ev == nil || ev.PoolID == uuid.Nil {
		return nil, nil
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.AppliedAt.IsZero() {
		ev.AppliedAt = time.Now()
	}
	var maxSeq int
	err := transaction.WithContext(ctx).
		Model(&types.GroupingOverride{}).
		Where("pool_id = ?", ev.PoolID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return nil, err
	}
	ev.Seq = maxSeq + 1
	if err := transaction.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *groupingOverrideRepo) ListByPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) ([]*types.GroupingOverride, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var events []*types.GroupingOverride
	if poolID == uuid.Nil {
		return events, nil
	}
	err := transaction.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("seq ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *groupingOverrideRepo) DeleteByPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if poolID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Delete(&types.GroupingOverride{}).Error
}
