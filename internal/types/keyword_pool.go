package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Pool lifecycle statuses. Status only ever moves forward through an
// operation's approval gate; a re-upload resets it back to uploaded.
const (
	PoolStatusEmpty    = "empty"
	PoolStatusUploaded = "uploaded"
	PoolStatusCleaned  = "cleaned"
	PoolStatusGrouped  = "grouped"
)

const (
	PoolTypeBody   = "body"
	PoolTypeTitles = "titles"
)

// Grouping bases.
const (
	GroupingBasisSingle    = "single"
	GroupingBasisPerSKU    = "per_sku"
	GroupingBasisAttribute = "attribute"
	GroupingBasisCustom    = "custom"
)

func ValidPoolType(t string) bool {
	return t == PoolTypeBody || t == PoolTypeTitles
}

func ValidGroupingBasis(b string) bool {
	switch b {
	case GroupingBasisSingle, GroupingBasisPerSKU, GroupingBasisAttribute, GroupingBasisCustom:
		return true
	}
	return false
}

// CleanSettings are flags passed through to the external cleaner.
type CleanSettings struct {
	StripColors      bool `json:"strip_colors"`
	StripSizes       bool `json:"strip_sizes"`
	StripBrands      bool `json:"strip_brands"`
	StripCompetitors bool `json:"strip_competitors"`
}

// GroupingConfig parameterizes the external grouper.
type GroupingConfig struct {
	Basis           string `json:"basis"`
	AttributeName   string `json:"attribute_name,omitempty"`
	GroupCount      int    `json:"group_count,omitempty"`
	PhrasesPerGroup int    `json:"phrases_per_group,omitempty"`
}

// RemovedKeyword is a term the cleaner dropped, with its justification.
type RemovedKeyword struct {
	Term   string `json:"term"`
	Reason string `json:"reason"`
}

// PlanGroup is the serialized form of one group, used for the base-plan
// snapshot on the pool row and for grouper output.
type PlanGroup struct {
	GroupIndex int      `json:"group_index"`
	Label      string   `json:"label"`
	Phrases    []string `json:"phrases"`
}

// KeywordPool is the per-(organization, project, scope, type) container for a
// keyword lifecycle. Version is the CAS token: every write goes through a
// conditional UPDATE that requires the version read before the write and
// advances it by one.
type KeywordPool struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:ux_pool_scope" json:"organization_id"`
	ProjectID      uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:ux_pool_scope" json:"project_id"`
	GroupScopeID   *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:ux_pool_scope" json:"group_scope_id,omitempty"`
	PoolType       string     `gorm:"column:pool_type;not null;uniqueIndex:ux_pool_scope" json:"pool_type"`

	Status string `gorm:"column:status;not null;index;default:'empty'" json:"status"`

	RawKeywords     datatypes.JSONSlice[string]         `gorm:"column:raw_keywords;type:jsonb" json:"raw_keywords"`
	CleanedKeywords datatypes.JSONSlice[string]         `gorm:"column:cleaned_keywords;type:jsonb" json:"cleaned_keywords"`
	RemovedKeywords datatypes.JSONSlice[RemovedKeyword] `gorm:"column:removed_keywords;type:jsonb" json:"removed_keywords"`

	CleanSettings  datatypes.JSONType[CleanSettings]  `gorm:"column:clean_settings;type:jsonb" json:"clean_settings"`
	GroupingConfig datatypes.JSONType[GroupingConfig] `gorm:"column:grouping_config;type:jsonb" json:"grouping_config"`

	// BasePlan is the last generated (pre-override) plan. Reset restores
	// group rows from this snapshot instead of re-running the grouper, so a
	// non-deterministic grouper cannot make reset produce an unseen plan.
	BasePlan datatypes.JSONSlice[PlanGroup] `gorm:"column:base_plan;type:jsonb" json:"base_plan,omitempty"`

	CleanedAt  *time.Time `gorm:"column:cleaned_at" json:"cleaned_at,omitempty"`
	GroupedAt  *time.Time `gorm:"column:grouped_at" json:"grouped_at,omitempty"`
	ApprovedAt *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`

	Version   int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (KeywordPool) TableName() string { return "keyword_pool" }
