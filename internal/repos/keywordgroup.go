package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/types"
)

type KeywordGroupRepo interface {
	Create(ctx context.Context, tx *gorm.DB, groups []*types.KeywordGroup) ([]*types.KeywordGroup, error)
	ListByPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) ([]*types.KeywordGroup, error)
	Save(ctx context.Context, tx *gorm.DB, groups []*types.KeywordGroup) error
	DeleteByPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) error

	// ReplaceForPool swaps the pool's group rows wholesale, used by plan
	// generation and override reset.
	ReplaceForPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID, groups []*types.KeywordGroup) error
}

type keywordGroupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKeywordGroupRepo(db *gorm.DB, baseLog *logger.Logger) KeywordGroupRepo {
	repoLog := baseLog.With("repo", "KeywordGroupRepo")
	return &keywordGroupRepo{db: db, log: repoLog}
}

func (r *keywordGroupRepo) Create(ctx context.Context, tx *gorm.DB, groups []*types.KeywordGroup) ([]*types.KeywordGroup, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(groups) == 0 {
		return []*types.KeywordGroup{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *keywordGroupRepo) ListByPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) ([]*types.KeywordGroup, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var groups []*types.KeywordGroup
	if poolID == uuid.Nil {
		return groups, nil
	}
	err := transaction.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("group_index ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *keywordGroupRepo) Save(ctx context.Context, tx *gorm.DB, groups []*types.KeywordGroup) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	for _, g := range groups {
		if g == nil || g.ID == uuid.Nil {
			continue
		}
		err := transaction.WithContext(ctx).
			Model(&types.KeywordGroup{}).
			Where("id = ?", g.ID).
			Updates(map[string]interface{}{
				"label":      g.Label,
				"phrases":    g.Phrases,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *keywordGroupRepo) DeleteByPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if poolID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Delete(&types.KeywordGroup{}).Error
}

func (r *keywordGroupRepo) ReplaceForPool(ctx context.Context, tx *gorm.DB, poolID uuid.UUID, groups []*types.KeywordGroup) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if poolID == uuid.Nil {
		return nil
	}
	if err := r.DeleteByPool(ctx, transaction, poolID); err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&groups).Error
}
