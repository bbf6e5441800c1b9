package evolution

import (
	"strings"

	"gep/internal/logging"
)

// =============================================================================
// SCANNER
// =============================================================================
// Detects whether a single record indicates a problem and extracts known
// error-pattern tokens; also detects stagnation (the same failure pattern
// repeating across a batch). Scans are self-contained: no history accumulates
// between calls, so identical input always produces identical output.

// errorPatterns is the ordered list of tokens tested against log messages.
// Specific tokens come before generic markers so extraction order reflects
// specificity.
var errorPatterns = []string{
	"ConnectionError",
	"TimeoutError",
	"KeyError",
	"ValueError",
	"NotFoundError",
	"Error",
	"Exception",
	"Failed",
	"Timeout",
	"ConnectionRefused",
	"NotFound",
}

// stagnationPatterns are the tokens that indicate stagnation when repeated.
var stagnationPatterns = []string{
	"TimeoutError",
	"ConnectionError",
	"RateLimitError",
}

// DefaultStagnationThreshold is the repeat count at which a recurring error
// pattern is reported as stagnation.
const DefaultStagnationThreshold = 3

// Scanner inspects log records for error and stagnation patterns.
type Scanner struct {
	stagnationThreshold int
}

// NewScanner creates a scanner. A threshold < 1 falls back to the default.
func NewScanner(stagnationThreshold int) *Scanner {
	if stagnationThreshold < 1 {
		stagnationThreshold = DefaultStagnationThreshold
	}
	return &Scanner{stagnationThreshold: stagnationThreshold}
}

// Scan inspects a single log record. ERROR level always reports an issue
// (the pattern list may be empty); WARNING reports an issue only when at
// least one known pattern token is present; every other level is clean.
func (s *Scanner) Scan(rec LogRecord) ScanResult {
	level := strings.ToUpper(rec.Level)
	raw := rec

	switch level {
	case "ERROR":
		patterns := extractPatterns(rec.Message)
		logging.ScanDebug("error record from %q matched %d pattern(s)", rec.Source, len(patterns))
		return ScanResult{
			HasIssue:  true,
			IssueType: IssueError,
			Patterns:  patterns,
			Context:   map[string]any{"source": rec.Source, "level": level},
			RawLog:    &raw,
		}
	case "WARNING":
		patterns := extractPatterns(rec.Message)
		if len(patterns) > 0 {
			return ScanResult{
				HasIssue:  true,
				IssueType: IssueWarning,
				Patterns:  patterns,
				Context:   map[string]any{"source": rec.Source, "level": level},
				RawLog:    &raw,
			}
		}
	}

	return ScanResult{RawLog: &raw}
}

// DetectStagnation analyzes a batch of records for a failure pattern that
// repeats at or above the threshold. Only ERROR-level records count. When
// several tokens qualify, the one counted first wins. Counters are re-derived
// from the batch on every call.
func (s *Scanner) DetectStagnation(recs []LogRecord) ScanResult {
	var errorMessages []string
	for _, rec := range recs {
		if strings.ToUpper(rec.Level) == "ERROR" {
			errorMessages = append(errorMessages, rec.Message)
		}
	}

	counts := make(map[string]int)
	var order []string // first-counted order, for deterministic tie-breaking
	for _, msg := range errorMessages {
		for _, pattern := range stagnationPatterns {
			if strings.Contains(msg, pattern) {
				if counts[pattern] == 0 {
					order = append(order, pattern)
				}
				counts[pattern]++
			}
		}
	}

	for _, pattern := range order {
		if counts[pattern] >= s.stagnationThreshold {
			logging.Scan("stagnation detected: %s repeated %d times across %d errors",
				pattern, counts[pattern], len(errorMessages))
			return ScanResult{
				HasIssue:  true,
				IssueType: IssueStagnation,
				Patterns:  []string{pattern},
				Context: map[string]any{
					"count":        counts[pattern],
					"total_errors": len(errorMessages),
				},
			}
		}
	}

	return ScanResult{}
}

// extractPatterns returns every known token contained in the message, in
// table order. Containment is substring-based, so each token contributes at
// most one entry per call.
func extractPatterns(message string) []string {
	var patterns []string
	for _, pattern := range errorPatterns {
		if strings.Contains(message, pattern) {
			patterns = append(patterns, pattern)
		}
	}
	return patterns
}
