package evolution

import (
	"fmt"

	"gep/internal/logging"
)

// =============================================================================
// MUTATOR
// =============================================================================
// Synthesizes a candidate code or prompt fragment from an intent via
// template lookup with generic fallback. A table miss is not a failure; only
// an unknown action is.

// Mutator generates candidate fragments from intents.
type Mutator struct{}

// NewMutator creates a mutator.
func NewMutator() *Mutator {
	return &Mutator{}
}

// Mutate dispatches purely on the intent's action. Exactly one of Code or
// Prompt is populated on success.
func (m *Mutator) Mutate(intent Intent) MutationResult {
	switch intent.Action {
	case ActionFix:
		return m.generateFix(intent)
	case ActionOptimize:
		return m.generateOptimization(intent)
	case ActionExplore:
		return m.generateExploration(intent)
	}

	logging.MutateDebug("unknown action %q for target %q", intent.Action, intent.Target)
	return MutationResult{Success: false, Description: "Unknown action type"}
}

func (m *Mutator) generateFix(intent Intent) MutationResult {
	target := intent.Target
	if target == "" {
		target = TargetUnknown
	}

	if tmpl, ok := fixTemplates[target]; ok {
		logging.Mutate("fix template hit for target %s", target)
		return MutationResult{
			Success:     true,
			Code:        tmpl.Code,
			Description: tmpl.Description,
			Changes:     []string{fmt.Sprintf("Added fix for %s", target)},
		}
	}

	return MutationResult{
		Success:     true,
		Code:        fmt.Sprintf(genericFixCode, target),
		Description: fmt.Sprintf("Placeholder fix for %s", target),
	}
}

func (m *Mutator) generateOptimization(intent Intent) MutationResult {
	target := intent.Target
	if target == "" {
		target = "general"
	}

	if tmpl, ok := promptTemplates[target]; ok {
		return MutationResult{
			Success:     true,
			Prompt:      fmt.Sprintf(tmpl.Prompt, target),
			Description: tmpl.Description,
			Changes:     []string{fmt.Sprintf("Added optimization for %s", target)},
		}
	}

	return MutationResult{
		Success:     true,
		Prompt:      fmt.Sprintf(genericOptimizePrompt, target),
		Description: fmt.Sprintf("Generic optimization for %s", target),
	}
}

func (m *Mutator) generateExploration(intent Intent) MutationResult {
	target := intent.Target
	if target == "" {
		target = TargetUnknown
	}

	return MutationResult{
		Success:     true,
		Prompt:      fmt.Sprintf(explorationPrompt, target),
		Description: fmt.Sprintf("Exploration task for %s", target),
		Changes:     []string{"Added exploration task"},
	}
}
