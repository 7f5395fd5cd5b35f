package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sellerforge/listingops-backend/internal/keywords"
	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/types"
)

// GrouperService is the external semantic grouper, consumed as a black box:
// it partitions the cleaned keyword set into labeled groups per the grouping
// config. For the per_sku basis it additionally receives the SKU-variant
// identifiers to group around.
type GrouperService interface {
	Group(ctx context.Context, cleaned []string, cfg types.GroupingConfig, skuVariants []string) ([]types.PlanGroup, error)
}

type aiGrouperService struct {
	log *logger.Logger
	ai  AIClient
}

func NewAIGrouperService(baseLog *logger.Logger, ai AIClient) GrouperService {
	return &aiGrouperService{
		log: baseLog.With("service", "GrouperService"),
		ai:  ai,
	}
}

var grouperSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"groups": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"label": map[string]any{"type": "string"},
					"phrases": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required":             []string{"label", "phrases"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"groups"},
	"additionalProperties": false,
}

func (s *aiGrouperService) Group(ctx context.Context, cleaned []string, cfg types.GroupingConfig, skuVariants []string) ([]types.PlanGroup, error) {
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: no cleaned keywords to group", ErrGenerationFailed)
	}

	system := "You partition Amazon listing keyword sets into semantic groups for content generation. " +
		"Assign EVERY input keyword to exactly one group, unchanged. No keyword may appear twice, none may be dropped, none may be invented."

	instr := map[string]any{
		"basis":    cfg.Basis,
		"keywords": cleaned,
	}
	switch cfg.Basis {
	case types.GroupingBasisPerSKU:
		instr["sku_variants"] = skuVariants
		instr["instruction"] = "create one group per SKU variant, labeled by the variant"
	case types.GroupingBasisAttribute:
		instr["attribute"] = cfg.AttributeName
		instr["instruction"] = "group by values of the named attribute"
	case types.GroupingBasisCustom:
		if cfg.GroupCount > 0 {
			instr["group_count"] = cfg.GroupCount
		}
		if cfg.PhrasesPerGroup > 0 {
			instr["phrases_per_group"] = cfg.PhrasesPerGroup
		}
		instr["instruction"] = "group by semantic similarity within the given bounds"
	default:
		instr["instruction"] = "produce a single group containing all keywords"
	}

	payload, err := json.Marshal(instr)
	if err != nil {
		return nil, err
	}

	obj, err := s.ai.GenerateJSON(ctx, system, string(payload), "keyword_grouping", grouperSchema)
	if err != nil {
		s.log.Error("Grouper call failed", "error", err, "basis", cfg.Basis)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var result struct {
		Groups []struct {
			Label   string   `json:"label"`
			Phrases []string `json:"phrases"`
		} `json:"groups"`
	}
	blob, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if err := json.Unmarshal(blob, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed grouper output: %v", ErrGenerationFailed, err)
	}
	if len(result.Groups) == 0 {
		return nil, fmt.Errorf("%w: grouper returned no groups", ErrGenerationFailed)
	}

	// A generated plan must already be a complete partition; a grouper that
	// duplicates, drops, or invents keywords is a failed generation, not
	// something to patch up silently.
	sets := make([][]string, 0, len(result.Groups))
	plan := make([]types.PlanGroup, 0, len(result.Groups))
	for i, g := range result.Groups {
		sets = append(sets, g.Phrases)
		plan = append(plan, types.PlanGroup{
			GroupIndex: i,
			Label:      g.Label,
			Phrases:    g.Phrases,
		})
	}
	if err := keywords.CheckPartition(sets, cleaned); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return plan, nil
}
