package evolution

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// =============================================================================
// SANDBOX EXECUTION
// =============================================================================
// Candidate code runs through the Yaegi interpreter instead of go build:
// interpretation cannot hang on the toolchain, needs no compilation step, and
// keeps execution inside the process where a deadline can cut it off. The
// import whitelist bounds capability, not wall-clock time - the caller is
// responsible for running Execute under a context deadline. This is a
// best-effort check, not a hardened security boundary.

// allowedImports is the whitelist applied to restricted execution. Packages
// granting filesystem, network, process, or unsafe access are absent on
// purpose (os, os/exec, net, net/http, syscall, unsafe, plugin).
var allowedImports = map[string]bool{
	"bytes":           true,
	"errors":          true,
	"fmt":             true,
	"math":            true,
	"regexp":          true,
	"sort":            true,
	"strconv":         true,
	"strings":         true,
	"time":            true,
	"unicode":         true,
	"unicode/utf8":    true,
	"encoding/json":   true,
	"encoding/base64": true,
}

// Sandbox runs Go fragments in an interpreter session.
type Sandbox struct{}

// NewSandbox creates a sandbox.
func NewSandbox() *Sandbox {
	return &Sandbox{}
}

// session opens a fresh interpreter with the full stdlib loaded and its
// output captured in buf. Used both for restricted runs (after the import
// whitelist has been enforced) and for the test environment, which must be
// able to call the functions the fragment defines.
func (s *Sandbox) session(buf *bytes.Buffer) (*interp.Interpreter, error) {
	i := interp.New(interp.Options{Stdout: buf, Stderr: buf})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	return i, nil
}

// checkImports rejects fragments importing anything outside the whitelist.
func (s *Sandbox) checkImports(code string) error {
	var forbidden []string
	for _, pkg := range importedPackages(code) {
		if !allowedImports[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %s", strings.Join(forbidden, ", "))
	}
	return nil
}

// importedPackages extracts import paths from a fragment, covering both
// single-line imports and import blocks, with or without aliases.
func importedPackages(code string) []string {
	var imports []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock && trimmed != "":
			imports = append(imports, importPath(trimmed))
		case strings.HasPrefix(trimmed, "import "):
			imports = append(imports, importPath(strings.TrimPrefix(trimmed, "import ")))
		}
	}
	return imports
}

// importPath strips an optional alias and the surrounding quotes.
func importPath(spec string) string {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[len(fields)-1], `"`)
}

// eval evaluates src in the interpreter, converting interpreter panics into
// errors so a hostile fragment cannot take down the caller.
func eval(i *interp.Interpreter, src string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, err = i.Eval(src)
	return err
}

// evalBool evaluates an expression and reports whether it held. Expressions
// that do not yield a bool pass as long as evaluation succeeds.
func evalBool(i *interp.Interpreter, expr string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	v, err := i.Eval(expr)
	if err != nil {
		return false, err
	}
	if v.IsValid() && v.Kind() == reflect.Bool {
		return v.Bool(), nil
	}
	return true, nil
}
