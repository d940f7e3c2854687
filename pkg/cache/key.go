package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Namespace prefixes every fingerprint produced by Key.
const Namespace = "tiercache"

// objectKeyPrefix marks hot entries that mirror cold-store objects.
const objectKeyPrefix = "file:"

// Key represents a request fingerprint.
type Key struct {
	// Resource is the kind of data requested (e.g., "races/results")
	Resource string

	// Params are the identifying parameters (e.g., {"year": "2024"})
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: tiercache:resource:param1=val1:param2=val2
//
// Example:
//
//	tiercache:races/results:race_name=Saudi+Arabian+Grand+Prix:year=2024
//
// Resource segments, names and values are query-escaped, so the ':', '=' and
// ',' delimiters only ever come from the format itself. Multi-valued
// parameters are joined with commas in their given order.
func (k Key) String() string {
	parts := []string{Namespace}

	resource := strings.Trim(k.Resource, "/")
	if resource != "" {
		segments := strings.Split(resource, "/")
		for i, segment := range segments {
			segments[i] = url.QueryEscape(segment)
		}
		parts = append(parts, strings.Join(segments, "/"))
	}

	// Add params (sorted for determinism)
	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := make([]string, len(k.Params[name]))
			for i, v := range k.Params[name] {
				values[i] = url.QueryEscape(v)
			}
			parts = append(parts, url.QueryEscape(name)+"="+strings.Join(values, ","))
		}
	}

	return strings.Join(parts, ":")
}

// ObjectKey returns the hot-tier key mirroring a cold-store object.
func ObjectKey(name string) string {
	return objectKeyPrefix + name
}
