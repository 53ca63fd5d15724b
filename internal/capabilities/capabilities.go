// Package capabilities implements capability sets ("stereotypes") used to
// match browser session requests against container-backed session factories.
//
// A capability set is a bag of key/value requirements describing a desired
// browser environment, e.g. {"browserName": "firefox"}. Stereotype payloads
// arrive as JSON strings embedded in the node configuration; they are parsed
// tolerantly (comments and trailing commas allowed) so that hand-maintained
// config files do not fail on formatting noise.
package capabilities

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/dockgrid/internal/model"
)

// Set is a capability set: a JSON object of session requirements.
//
// Sets are used both as stereotypes (the profile a factory advertises) and
// as incoming session requests. Two sets with the same keys and values are
// considered equal regardless of key order; Canonical provides the stable
// form used for deduplication and map grouping.
type Set map[string]any

// Parse deserializes a stereotype payload into a Set.
//
// The payload is first normalized with jsonc.ToJSON, which strips JSONC
// extensions (// comments, /* comments */, trailing commas) while leaving
// plain JSON untouched. The result must be a JSON object; any other JSON
// value (array, string, number) is a configuration error.
func Parse(payload string) (Set, error) {
	normalized := jsonc.ToJSON([]byte(payload))

	var set Set
	if err := json.Unmarshal(normalized, &set); err != nil {
		return nil, model.WrapConfigError(
			fmt.Sprintf("invalid stereotype payload %q", payload), err)
	}
	if set == nil {
		return nil, model.NewConfigError(
			fmt.Sprintf("stereotype payload %q is not a JSON object", payload))
	}
	return set, nil
}

// Canonical returns the stable string form of the set: JSON with keys in
// sorted order at every nesting level. encoding/json sorts map keys when
// marshaling, so marshaling the Set directly yields the canonical form.
//
// Canonical is used as the grouping key when collapsing duplicate
// stereotypes and when indexing routing-table entries.
func (s Set) Canonical() string {
	// Marshaling a map[string]any of decoded JSON values cannot fail.
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("capabilities: marshal canonical form: %v", err))
	}
	return string(data)
}

// BrowserName returns the "browserName" capability, or "" when absent.
// It is a convenience accessor for log output.
func (s Set) BrowserName() string {
	name, _ := s["browserName"].(string)
	return name
}

// Matches reports whether a session request is satisfied by this set when
// this set is used as a stereotype. Every capability named by the request
// must be present in the stereotype with a deeply-equal value; capabilities
// the request does not mention are unconstrained.
func (s Set) Matches(request Set) bool {
	for key, want := range request {
		got, ok := s[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// String returns the canonical form. Satisfies fmt.Stringer so sets render
// deterministically in logs.
func (s Set) String() string {
	return s.Canonical()
}
