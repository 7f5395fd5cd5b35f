package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sellerforge/listingops-backend/internal/keywords"
	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/repos"
	"github.com/sellerforge/listingops-backend/internal/types"
)

// PoolService is the façade over the keyword pool lifecycle:
// empty → uploaded → cleaned → grouped, with explicit human approval gates
// between stages and a compare-and-swap version check on every write.
type PoolService interface {
	GetOrCreate(ctx context.Context, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string) (*types.KeywordPool, error)
	Get(ctx context.Context, orgID, poolID uuid.UUID) (*types.KeywordPool, error)
	List(ctx context.Context, orgID, projectID uuid.UUID) ([]*types.KeywordPool, error)
	GetPlan(ctx context.Context, orgID, poolID uuid.UUID) (*GroupingPlan, error)

	Ingest(ctx context.Context, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string, incoming []string) (*types.KeywordPool, bool, string, error)

	PreviewClean(ctx context.Context, orgID, poolID uuid.UUID, settings types.CleanSettings) (*CleanProposal, error)
	ApproveClean(ctx context.Context, orgID, poolID uuid.UUID, cleaned []string, removed []types.RemovedKeyword) (*types.KeywordPool, error)

	GeneratePlan(ctx context.Context, orgID, poolID uuid.UUID, cfg types.GroupingConfig, skuVariants []string) (*GroupingPlan, error)
	ApplyOverride(ctx context.Context, orgID, actorID, poolID uuid.UUID, cmd OverrideCommand) (*GroupingPlan, error)
	ResetOverrides(ctx context.Context, orgID, poolID uuid.UUID) (*GroupingPlan, error)

	ApproveGrouping(ctx context.Context, orgID, poolID uuid.UUID, expectedVersion int64) (*types.KeywordPool, error)
	UnapproveGrouping(ctx context.Context, orgID, poolID uuid.UUID) (*types.KeywordPool, error)
}

// GroupingPlan is the externally visible view of a pool's partition: the
// current groups plus the override log layered on the base plan.
type GroupingPlan struct {
	PoolID    uuid.UUID                 `json:"pool_id"`
	Groups    []types.PlanGroup         `json:"groups"`
	Overrides []*types.GroupingOverride `json:"overrides"`
}

// CleanProposal is the cleaner's output, returned for human review; nothing
// is persisted until the caller approves it.
type CleanProposal struct {
	Cleaned []string               `json:"cleaned_keywords"`
	Removed []types.RemovedKeyword `json:"removed_keywords"`
}

// OverrideCommand is one manual correction to the current plan.
type OverrideCommand struct {
	Action           string `json:"action"`
	Phrase           string `json:"phrase,omitempty"`
	SourceGroupIndex *int   `json:"source_group_index,omitempty"`
	TargetGroupIndex int    `json:"target_group_index"`
	TargetLabel      string `json:"target_label,omitempty"`
}

type poolService struct {
	db           *gorm.DB
	log          *logger.Logger
	poolRepo     repos.KeywordPoolRepo
	groupRepo    repos.KeywordGroupRepo
	overrideRepo repos.GroupingOverrideRepo
	cleaner      CleanerService
	grouper      GrouperService
	notifier     PoolNotifier
	genTimeout   time.Duration
}

func NewPoolService(
	db *gorm.DB,
	baseLog *logger.Logger,
	poolRepo repos.KeywordPoolRepo,
	groupRepo repos.KeywordGroupRepo,
	overrideRepo repos.GroupingOverrideRepo,
	cleaner CleanerService,
	grouper GrouperService,
	notifier PoolNotifier,
	genTimeout time.Duration,
) PoolService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if genTimeout <= 0 {
		genTimeout = 120 * time.Second
	}
	return &poolService{
		db:           db,
		log:          baseLog.With("service", "PoolService"),
		poolRepo:     poolRepo,
		groupRepo:    groupRepo,
		overrideRepo: overrideRepo,
		cleaner:      cleaner,
		grouper:      grouper,
		notifier:     notifier,
		genTimeout:   genTimeout,
	}
}

func (s *poolService) GetOrCreate(ctx context.Context, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string) (*types.KeywordPool, error) {
	if !types.ValidPoolType(poolType) {
		return nil, fmt.Errorf("invalid pool type %q", poolType)
	}
	pool, err := s.poolRepo.GetByScope(ctx, nil, orgID, projectID, groupScopeID, poolType)
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}
	if pool != nil {
		return pool, nil
	}
	now := time.Now()
	pool = &types.KeywordPool{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ProjectID:      projectID,
		GroupScopeID:   groupScopeID,
		PoolType:       poolType,
		Status:         types.PoolStatusEmpty,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.poolRepo.Create(ctx, nil, []*types.KeywordPool{pool}); err != nil {
		// A concurrent first reference may have won the unique index; the
		// existing row is the pool in that case.
		existing, getErr := s.poolRepo.GetByScope(ctx, nil, orgID, projectID, groupScopeID, poolType)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return pool, nil
}

func (s *poolService) Get(ctx context.Context, orgID, poolID uuid.UUID) (*types.KeywordPool, error) {
	return s.requirePool(ctx, orgID, poolID)
}

func (s *poolService) List(ctx context.Context, orgID, projectID uuid.UUID) ([]*types.KeywordPool, error) {
	return s.poolRepo.ListByProject(ctx, nil, orgID, projectID)
}

func (s *poolService) GetPlan(ctx context.Context, orgID, poolID uuid.UUID) (*GroupingPlan, error) {
	pool, err := s.requirePool(ctx, orgID, poolID)
	if err != nil {
		return nil, err
	}
	return s.loadPlan(ctx, nil, pool.ID)
}

func (s *poolService) Ingest(ctx context.Context, orgID, projectID uuid.UUID, groupScopeID *uuid.UUID, poolType string, incoming []string) (*types.KeywordPool, bool, string, error) {
	pool, err := s.GetOrCreate(ctx, orgID, projectID, groupScopeID, poolType)
	if err != nil {
		return nil, false, "", err
	}

	merged := keywords.Merge(pool.RawKeywords, incoming)
	warning, err := keywords.Validate(merged)
	if err != nil {
		// Count gate failed: the pool is left exactly as it was.
		return nil, false, "", err
	}
	mergedIntoExisting := len(pool.RawKeywords) > 0

	// Cascading invalidation: a new upload voids every downstream approval.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.groupRepo.DeleteByPool(ctx, tx, pool.ID); err != nil {
			return err
		}
		if err := s.overrideRepo.DeleteByPool(ctx, tx, pool.ID); err != nil {
			return err
		}
		ok, err := s.poolRepo.UpdateFieldsCAS(ctx, tx, orgID, pool.ID, pool.Version, map[string]interface{}{
			"raw_keywords":     datatypes.JSONSlice[string](merged),
			"status":           types.PoolStatusUploaded,
			"cleaned_keywords": datatypes.JSONSlice[string]{},
			"removed_keywords": datatypes.JSONSlice[types.RemovedKeyword]{},
			"base_plan":        datatypes.JSONSlice[types.PlanGroup]{},
			"cleaned_at":       nil,
			"grouped_at":       nil,
			"approved_at":      nil,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentModification
		}
		return nil
	})
	if err != nil {
		return nil, false, "", err
	}

	fresh, err := s.requirePool(ctx, orgID, pool.ID)
	if err != nil {
		return nil, false, "", err
	}
	s.publish(ctx, "pool.ingested", fresh)
	s.log.Info("Ingested keywords", "pool_id", pool.ID, "count", len(merged), "merged", mergedIntoExisting)
	return fresh, mergedIntoExisting, warning, nil
}

func (s *poolService) PreviewClean(ctx context.Context, orgID, poolID uuid.UUID, settings types.CleanSettings) (*CleanProposal, error) {
	pool, err := s.requirePool(ctx, orgID, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Status == types.PoolStatusEmpty || len(pool.RawKeywords) == 0 {
		return nil, fmt.Errorf("%w: status is %q, nothing uploaded to clean", ErrInvalidTransition, pool.Status)
	}

	cctx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()
	cleaned, removed, err := s.cleaner.Clean(cctx, pool.RawKeywords, settings)
	if err != nil {
		// A failed preview leaves the pool exactly as it was, settings
		// included.
		return nil, err
	}

	// Record which settings the proposal was generated with; this is a pool
	// field write, so it rides the same version check as everything else.
	ok, err := s.poolRepo.UpdateFieldsCAS(ctx, nil, orgID, pool.ID, pool.Version, map[string]interface{}{
		"clean_settings": datatypes.NewJSONType(settings),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrentModification
	}
	return &CleanProposal{Cleaned: cleaned, Removed: removed}, nil
}

func (s *poolService) ApproveClean(ctx context.Context, orgID, poolID uuid.UUID, cleaned []string, removed []types.RemovedKeyword) (*types.KeywordPool, error) {
	pool, err := s.requirePool(ctx, orgID, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Status != types.PoolStatusUploaded {
		return nil, fmt.Errorf("%w: status is %q, expected %q", ErrInvalidTransition, pool.Status, types.PoolStatusUploaded)
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyCleanedSet
	}

	updates := map[string]interface{}{
		"cleaned_keywords": datatypes.JSONSlice[string](cleaned),
		"removed_keywords": datatypes.JSONSlice[types.RemovedKeyword](removed),
		"status":           types.PoolStatusCleaned,
	}
	if pool.CleanedAt == nil {
		updates["cleaned_at"] = time.Now()
	}
	ok, err := s.poolRepo.UpdateFieldsCAS(ctx, nil, orgID, pool.ID, pool.Version, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrentModification
	}

	fresh, err := s.requirePool(ctx, orgID, pool.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "pool.clean_approved", fresh)
	s.log.Info("Clean approved", "pool_id", pool.ID, "cleaned", len(cleaned), "removed", len(removed))
	return fresh, nil
}

func (s *poolService) GeneratePlan(ctx context.Context, orgID, poolID uuid.UUID, cfg types.GroupingConfig, skuVariants []string) (*GroupingPlan, error) {
	pool, err := s.requirePool(ctx, orgID, poolID)
	if err != nil {
		return nil, err
	}
	// Regeneration from grouped is allowed on purpose: reconfiguring the
	// basis is a common edit after seeing the first plan.
	if pool.Status != types.PoolStatusCleaned && pool.Status != types.PoolStatusGrouped {
		return nil, fmt.Errorf("%w: status is %q, expected %q or %q", ErrInvalidTransition, pool.Status, types.PoolStatusCleaned, types.PoolStatusGrouped)
	}
	if !types.ValidGroupingBasis(cfg.Basis) {
		return nil, fmt.Errorf("invalid grouping basis %q", cfg.Basis)
	}

	gctx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()
	planGroups, err := s.grouper.Group(gctx, pool.CleanedKeywords, cfg, skuVariants)
	if err != nil {
		// Generation failed: no partial plan is ever committed.
		return nil, err
	}

	rows := make([]*types.KeywordGroup, 0, len(planGroups))
	now := time.Now()
	for _, g := range planGroups {
		rows = append(rows, &types.KeywordGroup{
			ID:         uuid.New(),
			PoolID:     pool.ID,
			GroupIndex: g.GroupIndex,
			Label:      g.Label,
			Phrases:    datatypes.JSONSlice[string](g.Phrases),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.groupRepo.ReplaceForPool(ctx, tx, pool.ID, rows); err != nil {
			return err
		}
		// Overrides are scoped to one generation; regeneration drops them.
		if err := s.overrideRepo.DeleteByPool(ctx, tx, pool.ID); err != nil {
			return err
		}
		ok, err := s.poolRepo.UpdateFieldsCAS(ctx, tx, orgID, pool.ID, pool.Version, map[string]interface{}{
			"grouping_config": datatypes.NewJSONType(cfg),
			"base_plan":       datatypes.JSONSlice[types.PlanGroup](planGroups),
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentModification
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.requirePool(ctx, orgID, pool.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "pool.plan_generated", fresh)
	s.log.Info("Grouping plan generated", "pool_id", pool.ID, "basis", cfg.Basis, "groups", len(planGroups))
	return s.loadPlan(ctx, nil, pool.ID)
}

func (s *poolService) ApplyOverride(ctx context.Context, orgID, actorID, poolID uuid.UUID, cmd OverrideCommand) (*GroupingPlan, error) {
	pool, err := s.requirePool(ctx, orgID, poolID)
	if err != nil {
		return nil, err
	}
	groups, err := s.groupRepo.ListByPool(ctx, nil, pool.ID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if len(groups) == 0 {
		return nil, ErrNoPlan
	}

	byIndex := make(map[int]*types.KeywordGroup, len(groups))
	for _, g := range groups {
		byIndex[g.GroupIndex] = g
	}
	target, ok := byIndex[cmd.TargetGroupIndex]
	if !ok {
		return nil, fmt.Errorf("%w: target %d", ErrBadGroupIndex, cmd.TargetGroupIndex)
	}

	changed := make([]*types.KeywordGroup, 0, 2)
	switch cmd.Action {
	case types.OverrideActionMove:
		if cmd.Phrase == "" {
			return nil, fmt.Errorf("move override requires a phrase")
		}
		if cmd.SourceGroupIndex != nil {
			source, ok := byIndex[*cmd.SourceGroupIndex]
			if !ok {
				return nil, fmt.Errorf("%w: source %d", ErrBadGroupIndex, *cmd.SourceGroupIndex)
			}
			if source.GroupIndex != target.GroupIndex {
				if removePhrase(source, cmd.Phrase) {
					changed = append(changed, source)
				}
			}
		}
		if appendPhrase(target, cmd.Phrase) {
			changed = append(changed, target)
		}
		// Reject rather than dedupe: a phrase left in a third group means
		// the caller's view of the plan has diverged from the store's.
		sets := make([][]string, 0, len(groups))
		for _, g := range groups {
			sets = append(sets, g.Phrases)
		}
		if dup := keywords.DuplicateAcrossGroups(sets); dup != "" {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAssignment, dup)
		}
	case types.OverrideActionRename:
		if cmd.TargetLabel == "" {
			return nil, fmt.Errorf("rename override requires a target label")
		}
		if target.Label != cmd.TargetLabel {
			target.Label = cmd.TargetLabel
			changed = append(changed, target)
		}
	default:
		return nil, fmt.Errorf("invalid override action %q", cmd.Action)
	}

	event := &types.GroupingOverride{
		ID:               uuid.New(),
		PoolID:           pool.ID,
		Action:           cmd.Action,
		Phrase:           cmd.Phrase,
		SourceGroupIndex: cmd.SourceGroupIndex,
		TargetGroupIndex: cmd.TargetGroupIndex,
		TargetLabel:      cmd.TargetLabel,
		ActorID:          actorID,
		AppliedAt:        time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.groupRepo.Save(ctx, tx, changed); err != nil {
			return err
		}
		if _, err := s.overrideRepo.Append(ctx, tx, event); err != nil {
			return err
		}
		ok, err := s.poolRepo.UpdateFieldsCAS(ctx, tx, orgID, pool.ID, pool.Version, map[string]interface{}{})
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentModification
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.requirePool(ctx, orgID, pool.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "pool.override_applied", fresh)
	return s.loadPlan(ctx, nil, pool.ID)
}

func (s *poolService) ResetOverrides(ctx context.Context, orgID, poolID uuid.UUID) (*GroupingPlan, error) {
	pool, err := s.requirePool(ctx, orgID, poolID)
	if err != nil {
		return nil, err
	}
	if len(pool.BasePlan) == 0 {
		return nil, ErrNoPlan
	}

	rows := make([]*types.KeywordGroup, 0, len(pool.BasePlan))
	now := time.Now()
	for _, g := range pool.BasePlan {
		rows = append(rows, &types.KeywordGroup{
			ID:         uuid.New(),
			PoolID:     pool.ID,
			GroupIndex: g.GroupIndex,
			Label:      g.Label,
			Phrases:    datatypes.JSONSlice[string](g.Phrases),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.groupRepo.ReplaceForPool(ctx, tx, pool.ID, rows); err != nil {
			return err
		}
		if err := s.overrideRepo.DeleteByPool(ctx, tx, pool.ID); err != nil {
			return err
		}
		ok, err := s.poolRepo.UpdateFieldsCAS(ctx, tx, orgID, pool.ID, pool.Version, map[string]interface{}{})
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentModification
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.requirePool(ctx, orgID, pool.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "pool.overrides_reset", fresh)
	s.log.Info("Overrides reset", "pool_id", pool.ID)
	return s.loadPlan(ctx, nil, pool.ID)
}

func (s *poolService) ApproveGrouping(ctx context.Context, orgID, poolID uuid.UUID, expectedVersion int64) (*types.KeywordPool, error) {
	pool, err := s.requirePool(ctx, orgID, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Status != types.PoolStatusCleaned && pool.Status != types.PoolStatusGrouped {
		return nil, fmt.Errorf("%w: status is %q, pool was never cleaned", ErrInvalidTransition, pool.Status)
	}
	groups, err := s.groupRepo.ListByPool(ctx, nil, pool.ID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if len(groups) == 0 {
		return nil, ErrNoPlan
	}

	sets := make([][]string, 0, len(groups))
	total := 0
	for _, g := range groups {
		sets = append(sets, g.Phrases)
		total += len(g.Phrases)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: no group has any phrase", ErrIncompletePlan)
	}
	if err := keywords.CheckPartition(sets, pool.CleanedKeywords); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompletePlan, err)
	}

	// The authoritative approval write: conditional on the version the
	// caller read. A stale token means another editor got here first.
	now := time.Now()
	ok, err := s.poolRepo.UpdateFieldsCAS(ctx, nil, orgID, pool.ID, expectedVersion, map[string]interface{}{
		"status":      types.PoolStatusGrouped,
		"grouped_at":  now,
		"approved_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrentModification
	}

	fresh, err := s.requirePool(ctx, orgID, pool.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "pool.grouping_approved", fresh)
	s.log.Info("Grouping approved", "pool_id", pool.ID, "version", fresh.Version)
	return fresh, nil
}

func (s *poolService) UnapproveGrouping(ctx context.Context, orgID, poolID uuid.UUID) (*types.KeywordPool, error) {
	pool, err := s.requirePool(ctx, orgID, poolID)
	if err != nil {
		return nil, err
	}
	if pool.ApprovedAt == nil {
		return nil, fmt.Errorf("%w: pool is not approved", ErrInvalidTransition)
	}

	// Non-destructive: the plan and its override log stay intact, only the
	// approval stamp is withdrawn.
	ok, err := s.poolRepo.UpdateFieldsCAS(ctx, nil, orgID, pool.ID, pool.Version, map[string]interface{}{
		"approved_at": nil,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrentModification
	}

	fresh, err := s.requirePool(ctx, orgID, pool.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "pool.grouping_unapproved", fresh)
	return fresh, nil
}

func (s *poolService) requirePool(ctx context.Context, orgID, poolID uuid.UUID) (*types.KeywordPool, error) {
	pool, err := s.poolRepo.GetByID(ctx, nil, orgID, poolID)
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}
	if pool == nil {
		return nil, ErrNotFound
	}
	return pool, nil
}

func (s *poolService) loadPlan(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) (*GroupingPlan, error) {
	groups, err := s.groupRepo.ListByPool(ctx, tx, poolID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	events, err := s.overrideRepo.ListByPool(ctx, tx, poolID)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	plan := &GroupingPlan{PoolID: poolID, Groups: make([]types.PlanGroup, 0, len(groups)), Overrides: events}
	for _, g := range groups {
		plan.Groups = append(plan.Groups, g.ToPlanGroup())
	}
	return plan, nil
}

func (s *poolService) publish(ctx context.Context, eventType string, pool *types.KeywordPool) {
	err := s.notifier.PublishPoolEvent(ctx, PoolEvent{
		Type:           eventType,
		PoolID:         pool.ID,
		OrganizationID: pool.OrganizationID,
		Status:         pool.Status,
		Version:        pool.Version,
	})
	if err != nil {
		s.log.Warn("Pool event publish failed", "type", eventType, "pool_id", pool.ID, "error", err)
	}
}

func removePhrase(g *types.KeywordGroup, phrase string) bool {
	for i, p := range g.Phrases {
		if p == phrase {
			g.Phrases = append(g.Phrases[:i], g.Phrases[i+1:]...)
			return true
		}
	}
	return false
}

func appendPhrase(g *types.KeywordGroup, phrase string) bool {
	for _, p := range g.Phrases {
		if p == phrase {
			return false
		}
	}
	g.Phrases = append(g.Phrases, phrase)
	return true
}
