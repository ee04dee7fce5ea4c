// Package render regenerates the derived artifact from a template and a
// snapshot.
package render

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gitstamp/internal/atomicfile"
	"gitstamp/internal/snapshot"
)

// placeholderPattern matches @NAME@ markers. Names follow the property
// naming convention (upper-case with underscores), which keeps literal
// @-signs in templates from being mistaken for markers.
var placeholderPattern = regexp.MustCompile(`@([A-Z][A-Z0-9_]*)@`)

// Renderer produces the artifact at a fixed output path.
//
// The artifact is the only file this component touches, and it is written as
// a pure function of (template, snapshot): no timestamps, no environment, no
// other state. Callers must invoke Write only when a change was detected, so
// the artifact's modification time moves only when its content can differ.
type Renderer struct {
	templatePath string
	artifactPath string
}

func NewRenderer(templatePath, artifactPath string) *Renderer {
	return &Renderer{templatePath: templatePath, artifactPath: artifactPath}
}

// Render substitutes every snapshot binding into the template and returns the
// artifact content.
//
// A template marker with no matching property means the artifact would be
// partially substituted, which is worse than failing, so this is an error.
// The template is scanned before substitution: marker-shaped text inside a
// substituted value (say, a commit subject) is plain content, not a marker.
func (r *Renderer) Render(snap snapshot.Snapshot) ([]byte, error) {
	raw, err := os.ReadFile(r.templatePath)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	content := string(raw)
	bindings := snap.Bindings()

	if unresolved := unresolvedMarkers(content, bindings); len(unresolved) > 0 {
		return nil, fmt.Errorf("template %s has unresolved placeholders: %s",
			r.templatePath, strings.Join(unresolved, ", "))
	}

	// Single pass over the template: substituted values are never rescanned,
	// so marker-shaped text inside a value stays literal.
	content = placeholderPattern.ReplaceAllStringFunc(content, func(marker string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(marker, "@"), "@")
		if value, ok := bindings[name]; ok {
			return value
		}
		return marker
	})
	return []byte(content), nil
}

// Write renders the artifact and atomically replaces the output file.
func (r *Renderer) Write(snap snapshot.Snapshot) error {
	content, err := r.Render(snap)
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(r.artifactPath, content, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

func unresolvedMarkers(content string, bindings map[string]string) []string {
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		if _, ok := bindings[m[1]]; !ok {
			seen[m[1]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
