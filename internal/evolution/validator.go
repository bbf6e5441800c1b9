package evolution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"

	"gep/internal/logging"
)

// =============================================================================
// VALIDATOR
// =============================================================================
// Checks candidate fragments before they can become genes. Code fragments
// are parsed for syntactic validity first, then executed in the sandbox
// under a deadline; prompts get structural checks only. A validator never
// panics past its boundary: every outcome is a ValidationResult.

// DefaultValidationTimeout bounds sandbox execution when the caller's
// context carries no deadline of its own.
const DefaultValidationTimeout = 5 * time.Second

// maxPromptLength is the structural ceiling for prompt fragments.
const maxPromptLength = 10000

// Validator checks code and prompt candidates.
type Validator struct {
	timeout time.Duration
	sandbox *Sandbox
}

// NewValidator creates a validator. A non-positive timeout falls back to
// the default.
func NewValidator(timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = DefaultValidationTimeout
	}
	return &Validator{timeout: timeout, sandbox: NewSandbox()}
}

// ValidateCode checks a Go fragment: syntax first (no execution), then a
// restricted sandbox run. A syntax failure short-circuits; an execution
// fault is caught and reported with a typed diagnostic; a clean run reports
// elapsed execution time.
func (v *Validator) ValidateCode(ctx context.Context, code string) ValidationResult {
	if err := checkSyntax(code); err != nil {
		return ValidationResult{
			Passed: false,
			Error:  fmt.Sprintf("syntax error: %v", err),
		}
	}

	if err := v.sandbox.checkImports(code); err != nil {
		return ValidationResult{
			Passed: false,
			Error:  fmt.Sprintf("execution error: %v", err),
		}
	}

	var buf bytes.Buffer
	i, err := v.sandbox.session(&buf)
	if err != nil {
		return ValidationResult{
			Passed: false,
			Error:  fmt.Sprintf("execution error: %v", err),
		}
	}

	elapsed, err := v.runBounded(ctx, func() error { return eval(i, code) })
	if err != nil {
		if isDeadline(err) {
			logging.ValidateWarn("execution timed out after %v", v.timeout)
			return ValidationResult{
				Passed: false,
				Error:  fmt.Sprintf("execution timeout: %v", err),
			}
		}
		logging.ValidateDebug("execution fault after %v: %v", elapsed, err)
		return ValidationResult{
			Passed: false,
			Error:  fmt.Sprintf("execution error: %v", err),
		}
	}
	return ValidationResult{
		Passed:        true,
		Output:        buf.String(),
		ExecutionTime: elapsed,
	}
}

// runBounded runs fn on its own goroutine under the validator's deadline. On
// expiry the goroutine is abandoned; the deadline bounds the caller, not the
// runaway evaluation.
func (v *Validator) runBounded(ctx context.Context, fn func() error) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case err := <-errCh:
		return time.Since(start), err
	case <-ctx.Done():
		return time.Since(start), ctx.Err()
	}
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// evalTestBounded evaluates one test expression under the validator's
// deadline. The result travels through the channel so an abandoned evaluation
// cannot race a later read.
func (v *Validator) evalTestBounded(ctx context.Context, i *interp.Interpreter, expr string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	type verdict struct {
		ok  bool
		err error
	}
	ch := make(chan verdict, 1)
	go func() {
		ok, err := evalBool(i, expr)
		ch <- verdict{ok, err}
	}()
	select {
	case r := <-ch:
		return r.ok, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// ValidateWithTests validates the fragment, then re-executes it in a fresh,
// less restricted environment and evaluates each test expression against it
// in order, every step under the validator's deadline. A test passes when its
// expression evaluates without fault and, if it yields a bool, that bool is
// true. Each test is isolated: one test's fault never aborts the rest — except
// a timeout, which abandons the interpreter to the stuck expression and stops
// the run.
func (v *Validator) ValidateWithTests(ctx context.Context, code string, tests []string) ValidationResult {
	base := v.ValidateCode(ctx, code)
	if !base.Passed {
		return base
	}

	var buf bytes.Buffer
	i, err := v.sandbox.session(&buf)
	if err != nil {
		return ValidationResult{
			Passed: false,
			Error:  fmt.Sprintf("test execution error: %v", err),
		}
	}
	if _, err := v.runBounded(ctx, func() error { return eval(i, code) }); err != nil {
		if isDeadline(err) {
			logging.ValidateWarn("test setup timed out after %v", v.timeout)
			return ValidationResult{
				Passed: false,
				Error:  fmt.Sprintf("test execution timeout: %v", err),
			}
		}
		return ValidationResult{
			Passed: false,
			Error:  fmt.Sprintf("test execution error: %v", err),
		}
	}

	allPassed := true
	results := make([]TestOutcome, 0, len(tests))
	for idx, expr := range tests {
		outcome := TestOutcome{Index: idx + 1, Expr: expr}
		ok, err := v.evalTestBounded(ctx, i, expr)
		switch {
		case err != nil:
			outcome.Error = err.Error()
		case !ok:
			outcome.Error = "assertion is false"
		default:
			outcome.Passed = true
		}
		if !outcome.Passed {
			allPassed = false
		}
		results = append(results, outcome)
		if err != nil && isDeadline(err) {
			// The abandoned goroutine still owns the interpreter; running
			// further expressions on it would race.
			logging.ValidateWarn("test %d timed out after %v, remaining tests not run", outcome.Index, v.timeout)
			break
		}
	}

	logging.Validate("ran %d test(s), passed=%v", len(tests), allPassed)
	return ValidationResult{
		Passed:      allPassed,
		Output:      buf.String(),
		TestResults: results,
	}
}

// ValidatePrompt applies structural checks to a prompt fragment. All
// violations are collected rather than short-circuited and joined into one
// diagnostic.
func (v *Validator) ValidatePrompt(prompt string) ValidationResult {
	var issues []string

	if strings.TrimSpace(prompt) == "" {
		issues = append(issues, "prompt is empty")
	}
	if len(prompt) > maxPromptLength {
		issues = append(issues, fmt.Sprintf("prompt is too long (>%d chars)", maxPromptLength))
	}
	if strings.Count(prompt, "{") != strings.Count(prompt, "}") {
		issues = append(issues, "unbalanced braces in prompt template")
	}

	if len(issues) > 0 {
		return ValidationResult{Passed: false, Error: strings.Join(issues, "; ")}
	}
	return ValidationResult{Passed: true}
}

// checkSyntax parses the fragment without executing it. Fragments may be
// declaration-level (imports, funcs, types) or bare statements; both forms
// are tried, and the declaration-level diagnostic wins when neither parses.
func checkSyntax(code string) error {
	fset := token.NewFileSet()

	declSrc := code
	if !strings.HasPrefix(strings.TrimSpace(code), "package ") {
		declSrc = "package main\n\n" + code
	}
	_, declErr := parser.ParseFile(fset, "gene.go", declSrc, parser.AllErrors)
	if declErr == nil {
		return nil
	}

	stmtSrc := "package main\n\nfunc main() {\n" + code + "\n}\n"
	if _, err := parser.ParseFile(fset, "gene.go", stmtSrc, parser.AllErrors); err == nil {
		return nil
	}

	return declErr
}
