// Package snapshot defines the canonical model of tracked repository state.
package snapshot

import (
	"fmt"
	"strconv"
	"strings"
)

// Property describes a single tracked repository fact.
//
// The recognized property set is fixed at compile time and ordered; the order
// is part of the persisted encoding, so existing entries must never be
// reordered. New properties are appended to the registry together with one
// extraction step in the vcs package.
type Property struct {
	// Name is the stable identifier, also used as the template placeholder.
	Name string

	// Sentinel is the value substituted when extraction of this property
	// fails.
	Sentinel string
}

// Registry is the ordered set of recognized properties.
//
// Appending here requires a matching extraction step in vcs.NewExtractor;
// the extractor constructor verifies the two stay aligned.
var Registry = []Property{
	{Name: "GIT_HEAD_SHA1", Sentinel: "NOTFOUND"},
	{Name: "GIT_IS_DIRTY", Sentinel: "false"},
	{Name: "GIT_BRANCH", Sentinel: "NOTFOUND"},
	{Name: "GIT_DESCRIBE", Sentinel: "NOTFOUND"},
	{Name: "GIT_COMMIT_AUTHOR", Sentinel: "NOTFOUND"},
	{Name: "GIT_COMMIT_EMAIL", Sentinel: "NOTFOUND"},
	{Name: "GIT_COMMIT_DATE_ISO8601", Sentinel: "NOTFOUND"},
	{Name: "GIT_COMMIT_SUBJECT", Sentinel: "NOTFOUND"},
}

// retrievedStateName is the leading success flag. It is not a Registry entry:
// it reports whether extraction as a whole succeeded, but it participates in
// both the encoding and template substitution.
const retrievedStateName = "GIT_RETRIEVED_STATE"

// Snapshot is one canonical capture of repository state.
//
// Values is parallel to Registry: Values[i] is the extracted (or sentinel)
// value for Registry[i]. A Snapshot is immutable once produced; each
// invocation produces exactly one.
type Snapshot struct {
	// RetrievedState is false when any extraction step failed.
	RetrievedState bool

	// Values holds one entry per Registry property, in Registry order.
	Values []string
}

// New builds a Snapshot, enforcing the Registry alignment invariant.
func New(retrieved bool, values []string) (Snapshot, error) {
	if len(values) != len(Registry) {
		return Snapshot{}, fmt.Errorf("snapshot requires %d values, got %d", len(Registry), len(values))
	}
	return Snapshot{RetrievedState: retrieved, Values: append([]string(nil), values...)}, nil
}

// Degraded returns the fully-degraded Snapshot: success flag false and every
// property at its sentinel.
func Degraded() Snapshot {
	values := make([]string, len(Registry))
	for i, p := range Registry {
		values[i] = p.Sentinel
	}
	return Snapshot{RetrievedState: false, Values: values}
}

// Encode flattens the Snapshot into its canonical textual form: the success
// flag first, then one line per property in Registry order. Values are quoted
// so that the encoding survives arbitrary commit subjects and author names.
//
// The Store persists these bytes and the Detector compares them; both must go
// through this single routine or identical states would compare unequal.
func (s Snapshot) Encode() []byte {
	var b strings.Builder
	b.WriteString(retrievedStateName)
	b.WriteByte('=')
	b.WriteString(strconv.FormatBool(s.RetrievedState))
	b.WriteByte('\n')
	for i, p := range Registry {
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(s.Values[i]))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Bindings returns the placeholder substitutions for template rendering:
// every Registry property plus the success flag.
func (s Snapshot) Bindings() map[string]string {
	out := make(map[string]string, len(Registry)+1)
	out[retrievedStateName] = strconv.FormatBool(s.RetrievedState)
	for i, p := range Registry {
		out[p.Name] = s.Values[i]
	}
	return out
}

// HasChanged reports whether the current Snapshot differs from the persisted
// encoding. A missing persisted state (found=false) is always a change: it
// forces first-time regeneration.
//
// Comparison is over encoded bytes, not field-by-field. This keeps the
// detector agnostic to the property schema at the cost of sensitivity to the
// encoding itself; Encode is the single shared routine for both sides.
func HasChanged(current Snapshot, persisted []byte, found bool) bool {
	if !found {
		return true
	}
	return string(current.Encode()) != string(persisted)
}
