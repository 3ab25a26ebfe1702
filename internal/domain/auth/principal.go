package auth

import "reflect"

// nullPrincipalID is the distinguished id of the principal produced when no
// handler or resolver could establish an identity. It must never be returned
// to callers of the authentication manager.
const nullPrincipalID = "<null>"

// Principal is a resolved identity: a stable id plus multi-valued attributes.
// Attribute merges union values under the same key rather than overwrite.
type Principal struct {
	ID         string           `json:"id"`
	Attributes map[string][]any `json:"attributes,omitempty"`
}

// NewPrincipal constructs a principal with no attributes.
func NewPrincipal(id string) Principal {
	return Principal{ID: id}
}

// NewPrincipalWithAttributes constructs a principal with a copy of the given
// attribute map.
func NewPrincipalWithAttributes(id string, attributes map[string][]any) Principal {
	return Principal{ID: id, Attributes: CopyAttributes(attributes)}
}

// NullPrincipal returns the distinguished "no identity" principal.
func NullPrincipal() Principal {
	return Principal{ID: nullPrincipalID}
}

// IsNull reports whether this principal is the distinguished null principal.
func (p Principal) IsNull() bool { return p.ID == nullPrincipalID || p.ID == "" }

// CopyAttributes deep-copies a multi-valued attribute map.
func CopyAttributes(attributes map[string][]any) map[string][]any {
	if attributes == nil {
		return nil
	}
	out := make(map[string][]any, len(attributes))
	for k, vs := range attributes {
		out[k] = append([]any(nil), vs...)
	}
	return out
}

// MergeAttributes unions src into dst, preserving dst insertion values and
// appending only values not already present under the same key. The returned
// map is dst (allocated when nil).
func MergeAttributes(dst, src map[string][]any) map[string][]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string][]any, len(src))
	}
	for k, vs := range src {
		for _, v := range vs {
			if !containsValue(dst[k], v) {
				dst[k] = append(dst[k], v)
			}
		}
	}
	return dst
}

func containsValue(vs []any, v any) bool {
	for _, existing := range vs {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}
