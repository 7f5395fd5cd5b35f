package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/types"
)

type KeywordPoolRepo interface {
	Create(ctx context.Context, tx *gorm.DB, pools []*types.KeywordPool) ([]*types.KeywordPool, error)
	GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*types.KeywordPool, error)
	GetByScope(ctx context.Context, tx *gorm.DB, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string) (*types.KeywordPool, error)
	ListByProject(ctx context.Context, tx *gorm.DB, orgID, projectID uuid.UUID) ([]*types.KeywordPool, error)

	// UpdateFieldsCAS issues the conditional write every pool mutation goes
	// through: UPDATE ... WHERE id AND organization_id AND version. The
	// version column is advanced by one as part of the same statement.
	// Returns false when zero rows matched, i.e. the token went stale
	// between read and write.
	UpdateFieldsCAS(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID, expectedVersion int64, updates map[string]interface{}) (bool, error)
}

type keywordPoolRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKeywordPoolRepo(db *gorm.DB, baseLog *logger.Logger) KeywordPoolRepo {
	repoLog := baseLog.With("repo", "KeywordPoolRepo")
	return &keywordPoolRepo{db: db, log: repoLog}
}

func (r *keywordPoolRepo) Create(ctx context.Context, tx *gorm.DB, pools []*types.KeywordPool) ([]*types.KeywordPool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(pools) == 0 {
		return []*types.KeywordPool{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

func (r *keywordPoolRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*types.KeywordPool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || orgID == uuid.Nil {
		return nil, nil
	}
	var pool types.KeywordPool
	err := transaction.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Limit(1).
		Find(&pool).Error
	if err != nil {
		return nil, err
	}
	if pool.ID == uuid.Nil {
		return nil, nil
	}
	return &pool, nil
}

func (r *keywordPoolRepo) GetByScope(ctx context.Context, tx *gorm.DB, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string) (*types.KeywordPool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if orgID == uuid.Nil || projectID == uuid.Nil {
		return nil, nil
	}
	q := transaction.WithContext(ctx).
		Where("organization_id = ? AND project_id = ? AND pool_type = ?", orgID, projectID, poolType)
	if groupScopeID == nil {
		q = q.Where("group_scope_id IS NULL")
	} else {
		q = q.Where("group_scope_id = ?", *groupScopeID)
	}
	var pool types.KeywordPool
	if err := q.Limit(1).Find(&pool).Error; err != nil {
		return nil, err
	}
	if pool.ID == uuid.Nil {
		return nil, nil
	}
	return &pool, nil
}

func (r *keywordPoolRepo) ListByProject(ctx context.Context, tx *gorm.DB, orgID, projectID uuid.UUID) ([]*types.KeywordPool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var pools []*types.KeywordPool
	if orgID == uuid.Nil || projectID == uuid.Nil {
		return pools, nil
	}
	err := transaction.WithContext(ctx).
		Where("organization_id = ? AND project_id = ?", orgID, projectID).
		Order("created_at ASC").
		Find(&pools).Error
	if err != nil {
		return nil, err
	}
	return pools, nil
}

func (r *keywordPoolRepo) UpdateFieldsCAS(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID, expectedVersion int64, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || orgID == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["version"] = gorm.Expr("version + 1")
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.KeywordPool{}).
		Where("id = ? AND organization_id = ? AND version = ?", id, orgID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
