package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// KeywordGroup is one group of a pool's current grouping plan. GroupIndex is
// the stable 0-based ordinal overrides address groups by.
type KeywordGroup struct {
	ID         uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	PoolID     uuid.UUID                   `gorm:"type:uuid;not null;index;uniqueIndex:ux_group_ordinal" json:"pool_id"`
	GroupIndex int                         `gorm:"column:group_index;not null;uniqueIndex:ux_group_ordinal" json:"group_index"`
	Label      string                      `gorm:"column:label;not null" json:"label"`
	Phrases    datatypes.JSONSlice[string] `gorm:"column:phrases;type:jsonb" json:"phrases"`
	CreatedAt  time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (KeywordGroup) TableName() string { return "keyword_group" }

// ToPlanGroup converts to the serialized snapshot form.
func (g *KeywordGroup) ToPlanGroup() PlanGroup {
	return PlanGroup{
		GroupIndex: g.GroupIndex,
		Label:      g.Label,
		Phrases:    append([]string(nil), g.Phrases...),
	}
}
