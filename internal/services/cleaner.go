package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sellerforge/listingops-backend/internal/logger"
	"github.com/sellerforge/listingops-backend/internal/types"
)

// CleanerService is the external keyword cleaner, consumed as a black box:
// it proposes a cleaned subset of the raw keywords plus the removed
// complement with per-term justifications. Nothing is written until a human
// approves the proposal.
type CleanerService interface {
	Clean(ctx context.Context, raw []string, settings types.CleanSettings) ([]string, []types.RemovedKeyword, error)
}

type aiCleanerService struct {
	log *logger.Logger
	ai  AIClient
}

func NewAICleanerService(baseLog *logger.Logger, ai AIClient) CleanerService {
	return &aiCleanerService{
		log: baseLog.With("service", "CleanerService"),
		ai:  ai,
	}
}

var cleanerSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"cleaned": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"removed": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"term":   map[string]any{"type": "string"},
					"reason": map[string]any{"type": "string"},
				},
				"required":             []string{"term", "reason"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"cleaned", "removed"},
	"additionalProperties": false,
}

func (s *aiCleanerService) Clean(ctx context.Context, raw []string, settings types.CleanSettings) ([]string, []types.RemovedKeyword, error) {
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("%w: no raw keywords to clean", ErrGenerationFailed)
	}

	var rules []string
	if settings.StripColors {
		rules = append(rules, "remove color-specific terms")
	}
	if settings.StripSizes {
		rules = append(rules, "remove size-specific terms")
	}
	if settings.StripBrands {
		rules = append(rules, "remove our own brand terms")
	}
	if settings.StripCompetitors {
		rules = append(rules, "remove competitor brand terms")
	}
	rules = append(rules, "remove misspellings, duplicates in meaning, and terms irrelevant to the product")

	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, err
	}

	system := "You clean Amazon listing keyword lists for an agency. " +
		"Given a raw keyword list, split it into a cleaned list and a removed list. " +
		"Every input term must land in exactly one of the two outputs, unchanged. " +
		"Give a short reason for every removed term. Rules: " + strings.Join(rules, "; ") + "."
	user := string(payload)

	obj, err := s.ai.GenerateJSON(ctx, system, user, "keyword_clean", cleanerSchema)
	if err != nil {
		s.log.Error("Cleaner call failed", "error", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var result struct {
		Cleaned []string               `json:"cleaned"`
		Removed []types.RemovedKeyword `json:"removed"`
	}
	blob, err := json.Marshal(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if err := json.Unmarshal(blob, &result); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed cleaner output: %v", ErrGenerationFailed, err)
	}

	// Reject terms the model invented; a cleaner may only partition its input.
	known := make(map[string]bool, len(raw))
	for _, term := range raw {
		known[strings.ToLower(strings.TrimSpace(term))] = true
	}
	for _, term := range result.Cleaned {
		if !known[strings.ToLower(strings.TrimSpace(term))] {
			return nil, nil, fmt.Errorf("%w: cleaner returned unknown term %q", ErrGenerationFailed, term)
		}
	}
	for _, rm := range result.Removed {
		if !known[strings.ToLower(strings.TrimSpace(rm.Term))] {
			return nil, nil, fmt.Errorf("%w: cleaner removed unknown term %q", ErrGenerationFailed, rm.Term)
		}
	}
	if len(result.Cleaned) == 0 {
		return nil, nil, fmt.Errorf("%w: cleaner removed every keyword", ErrGenerationFailed)
	}
	return result.Cleaned, result.Removed, nil
}
