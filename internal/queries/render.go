package queries

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches double-brace template tokens like {{from_date}}.
// Single-brace executor placeholders like {path} are deliberately not
// matched and pass through untouched.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// UnboundPlaceholderError reports every token in a template that had no
// binding at render time. Rendering is all-or-nothing: a template with any
// unresolved token must never reach the query engine.
type UnboundPlaceholderError struct {
	Tokens []string
}

func (e *UnboundPlaceholderError) Error() string {
	return fmt.Sprintf("unbound template placeholders: %s", strings.Join(e.Tokens, ", "))
}

// Render substitutes every double-brace token in text from the supplied
// bindings. It fails with *UnboundPlaceholderError listing all missing
// tokens, or with the first invalid binding value (e.g. an enum outside
// its allowed set). Rendering is deterministic: identical text and
// bindings yield byte-identical output.
func Render(text string, b Bindings) (string, error) {
	var unbound []string
	seen := make(map[string]struct{})

	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := b[name]; !ok {
			unbound = append(unbound, name)
		}
	}

	if len(unbound) > 0 {
		sort.Strings(unbound)
		return "", &UnboundPlaceholderError{Tokens: unbound}
	}

	var renderErr error
	rendered := tokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		name := tokenPattern.FindStringSubmatch(tok)[1]
		binding := b[name]
		if binding.err != nil && renderErr == nil {
			renderErr = fmt.Errorf("invalid binding for %q: %w", name, binding.err)
		}
		return binding.value
	})
	if renderErr != nil {
		return "", renderErr
	}

	return rendered, nil
}
