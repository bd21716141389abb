package queries

import (
	"embed"
	"fmt"
	"sync"
)

//go:embed templates/*.sql
var templateFS embed.FS

var (
	templateCache   = make(map[string]string)
	templateCacheMu sync.RWMutex
)

// Get returns the named template's text. Templates are read from the
// embedded store once and cached for the process lifetime; callers
// re-render per request since bindings differ.
func Get(name string) (string, error) {
	templateCacheMu.RLock()
	text, ok := templateCache[name]
	templateCacheMu.RUnlock()
	if ok {
		return text, nil
	}

	raw, err := templateFS.ReadFile("templates/" + name + ".sql")
	if err != nil {
		return "", fmt.Errorf("unknown query template %q: %w", name, err)
	}

	templateCacheMu.Lock()
	templateCache[name] = string(raw)
	templateCacheMu.Unlock()

	return string(raw), nil
}

// RenderNamed loads a template by name and renders it in one step.
func RenderNamed(name string, b Bindings) (string, error) {
	text, err := Get(name)
	if err != nil {
		return "", err
	}
	return Render(text, b)
}
