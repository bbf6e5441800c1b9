package evolution

import "gep/internal/logging"

// =============================================================================
// SIGNAL GENERATOR
// =============================================================================
// Converts a scan outcome into a typed evolution signal with a priority
// score. The mappings are closed tables; unrecognized issue types fall back
// to repair at the lowest base priority.

// signalTypeMap maps a detected issue to the evolution action family.
var signalTypeMap = map[IssueType]SignalType{
	IssueError:      SignalRepair,
	IssueStagnation: SignalRepair,
	IssueWarning:    SignalImprove,
}

// priorityMap gives the base priority per issue type.
var priorityMap = map[IssueType]int{
	IssueError:      10,
	IssueStagnation: 8,
	IssueWarning:    5,
}

// maxPriority caps signal priority after pattern bonuses are applied.
const maxPriority = 10

// SignalGenerator turns scan results into evolution signals.
type SignalGenerator struct{}

// NewSignalGenerator creates a signal generator.
func NewSignalGenerator() *SignalGenerator {
	return &SignalGenerator{}
}

// Generate derives a signal from a scan result. A clean scan yields
// SignalNone with zero priority and nothing else populated. Connection and
// timeout patterns each add an independent priority bonus before the cap.
func (g *SignalGenerator) Generate(scan ScanResult) EvolutionSignal {
	if !scan.HasIssue {
		return EvolutionSignal{Type: SignalNone, Priority: 0}
	}

	issueType := scan.IssueType
	if issueType == "" {
		issueType = IssueError
	}

	signalType, ok := signalTypeMap[issueType]
	if !ok {
		signalType = SignalRepair
	}
	priority, ok := priorityMap[issueType]
	if !ok {
		priority = 1
	}

	if containsPattern(scan.Patterns, "ConnectionError") {
		priority += 2
	}
	if containsPattern(scan.Patterns, "TimeoutError") {
		priority += 1
	}
	if priority > maxPriority {
		priority = maxPriority
	}

	source := ""
	if v, ok := scan.Context["source"].(string); ok {
		source = v
	}

	logging.Signal("%s signal from %q priority=%d", signalType, source, priority)
	logging.SignalDebug("issue %s -> signal %s, patterns=%v", issueType, signalType, scan.Patterns)

	return EvolutionSignal{
		Type:     signalType,
		Patterns: append([]string(nil), scan.Patterns...),
		Context:  copyContext(scan.Context),
		Priority: priority,
		Source:   source,
	}
}

func containsPattern(patterns []string, want string) bool {
	for _, p := range patterns {
		if p == want {
			return true
		}
	}
	return false
}

func copyContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
