package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	OverrideActionMove   = "move"
	OverrideActionRename = "rename"
)

// GroupingOverride is one entry of the append-only override log for a pool's
// current plan generation. Replaying the log in Seq order against the base
// plan reproduces the current plan.
type GroupingOverride struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PoolID           uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_override_seq" json:"pool_id"`
	Seq              int       `gorm:"column:seq;not null;uniqueIndex:ux_override_seq" json:"seq"`
	Action           string    `gorm:"column:action;not null" json:"action"`
	Phrase           string    `gorm:"column:phrase" json:"phrase,omitempty"`
	SourceGroupIndex *int      `gorm:"column:source_group_index" json:"source_group_index,omitempty"`
	TargetGroupIndex int       `gorm:"column:target_group_index;not null" json:"target_group_index"`
	TargetLabel      string    `gorm:"column:target_label" json:"target_label,omitempty"`
	ActorID          uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	AppliedAt        time.Time `gorm:"column:applied_at;not null;default:CURRENT_TIMESTAMP" json:"applied_at"`
}

func (GroupingOverride) TableName() string { return "grouping_override" }
