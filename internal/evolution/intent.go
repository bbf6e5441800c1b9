package evolution

import "gep/internal/logging"

// =============================================================================
// INTENT CLASSIFIER
// =============================================================================
// Maps a signal into an actionable intent: an action verb, the inferred
// target component, and a confidence score. Classification always proceeds;
// there is no failure path.

// actionMap maps a signal family to the concrete action. SignalInnovate is
// never produced by the generator today but stays classifiable for directly
// constructed signals.
var actionMap = map[SignalType]ActionType{
	SignalRepair:   ActionFix,
	SignalImprove:  ActionOptimize,
	SignalInnovate: ActionExplore,
}

// targetPatterns infers the component a pattern token points at.
var targetPatterns = map[string]string{
	"ConnectionError": "database_connection",
	"TimeoutError":    "api_timeout",
	"KeyError":        "data_access",
	"ValueError":      "data_validation",
	"NotFoundError":   "resource_lookup",
}

// TargetUnknown is reported when no pattern maps to a known component.
const TargetUnknown = "unknown"

// Confidence scoring constants: a 0.7 base, up to +0.2 from pattern
// richness, up to +0.1 from priority, capped at 1.0.
const (
	baseConfidence    = 0.7
	patternBonusStep  = 0.1
	patternBonusCap   = 0.2
	priorityBonusStep = 0.01
	maxConfidence     = 1.0
)

// IntentClassifier turns evolution signals into intents.
type IntentClassifier struct{}

// NewIntentClassifier creates an intent classifier.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{}
}

// Classify derives an intent from a signal. Unrecognized signal types
// default to fix. The intent context is the signal context extended with the
// signal's own patterns and priority, which win any key collision.
func (c *IntentClassifier) Classify(sig EvolutionSignal) Intent {
	action, ok := actionMap[sig.Type]
	if !ok {
		action = ActionFix
	}

	ctx := copyContext(sig.Context)
	ctx["patterns"] = append([]string(nil), sig.Patterns...)
	ctx["priority"] = sig.Priority

	target := inferTarget(sig.Patterns)
	confidence := calculateConfidence(sig)
	logging.Intent("%s signal -> %s %s confidence=%.2f", sig.Type, action, target, confidence)
	if target == TargetUnknown {
		logging.IntentDebug("no target pattern matched in %v", sig.Patterns)
	}

	return Intent{
		Action:     action,
		Target:     target,
		Context:    ctx,
		Confidence: confidence,
	}
}

// inferTarget scans the pattern list in order; the first entry present in
// the target table wins.
func inferTarget(patterns []string) string {
	for _, p := range patterns {
		if target, ok := targetPatterns[p]; ok {
			return target
		}
	}
	return TargetUnknown
}

func calculateConfidence(sig EvolutionSignal) float64 {
	patternBonus := float64(len(sig.Patterns)) * patternBonusStep
	if patternBonus > patternBonusCap {
		patternBonus = patternBonusCap
	}
	confidence := baseConfidence + patternBonus + float64(sig.Priority)*priorityBonusStep
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return confidence
}
