package evolution

// =============================================================================
// MUTATION TEMPLATES
// =============================================================================
// Closed lookup tables mapping a target component to a candidate fragment.
// Templates are data, not code: adding a new one means adding a table entry,
// never touching dispatch. Code fragments are plain Go source suitable for
// the validator's interpreter; prompt templates interpolate the target name.

// fixTemplate pairs literal fix code with its human-readable description.
type fixTemplate struct {
	Code        string
	Description string
}

// fixTemplates holds known fixes keyed by target component.
var fixTemplates = map[string]fixTemplate{
	"database_connection": {
		Code: `import "time"

// SafeConnect retries a connection with linear backoff, giving up after the
// last attempt fails.
func SafeConnect(connect func() (interface{}, error), retries int, delay time.Duration) (interface{}, error) {
	var err error
	for attempt := 0; attempt < retries; attempt++ {
		var conn interface{}
		conn, err = connect()
		if err == nil {
			return conn, nil
		}
		if attempt < retries-1 {
			time.Sleep(delay * time.Duration(attempt+1))
		}
	}
	return nil, err
}
`,
		Description: "Add retry logic for database connections",
	},
	"api_timeout": {
		Code: `import (
	"fmt"
	"time"
)

// CallWithTimeout runs fn and reports failure once the timeout elapses.
func CallWithTimeout(fn func() (string, error), timeout time.Duration) (string, error) {
	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := fn()
		done <- result{out, err}
	}()
	select {
	case r := <-done:
		return r.out, r.err
	case <-time.After(timeout):
		return "", fmt.Errorf("call exceeded %v timeout", timeout)
	}
}
`,
		Description: "Add timeout handling for API calls",
	},
	"data_access": {
		Code: `// SafeGet walks nested maps, returning def when any key is missing or an
// intermediate value is not a map.
func SafeGet(data map[string]interface{}, keys []string, def interface{}) interface{} {
	current := interface{}(data)
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return def
		}
		v, ok := m[key]
		if !ok {
			return def
		}
		current = v
	}
	return current
}
`,
		Description: "Add safe nested map access utility",
	},
}

// genericFixCode is the fallback body returned when no fix template matches
// the target. A table miss still produces a candidate.
const genericFixCode = `// ApplyFix is a placeholder fix for %s.
func ApplyFix() error {
	return nil
}
`

// promptTemplates holds optimization prompt templates keyed by target.
var promptTemplates = map[string]struct {
	Prompt      string
	Description string
}{
	"optimize": {
		Prompt: `When processing %s:
1. Cache results when possible
2. Use batch processing for multiple items
3. Implement early termination for failed cases
4. Log performance metrics for monitoring
`,
		Description: "Optimization prompt template",
	},
}

// genericOptimizePrompt is the fallback when no prompt template matches.
const genericOptimizePrompt = "Optimize %s for better performance"

// explorationPrompt is the fixed template for exploration intents.
const explorationPrompt = `Explore new approaches for %s:
1. Research alternative implementations
2. Identify potential improvements
3. Test experimental features
4. Document findings
`
