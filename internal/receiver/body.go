package receiver

import "encoding/json"

// Body is a loosely typed interaction payload. Fields without a mapping rule
// are carried through untouched.
type Body map[string]interface{}

// Type returns the type discriminator, or "" when absent.
func (b Body) Type() string {
	return b.String("type")
}

// String returns the string at key, or "" when absent or not a string.
func (b Body) String(key string) string {
	s, _ := b[key].(string)
	return s
}

// Object returns the nested object at key, or nil.
func (b Body) Object(key string) Body {
	m, _ := b[key].(map[string]interface{})
	return m
}

// ID returns the id of the nested object at key, e.g. user.id.
func (b Body) ID(key string) string {
	return b.Object(key).String("id")
}

// clone copies the top level of b.
func (b Body) clone() Body {
	out := make(Body, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// present reports whether v counts as set: not null, false, zero or empty.
func present(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// copyField sets dst[to] to src[from] when src has the key, and removes
// dst[to] otherwise.
func copyField(dst Body, to string, src Body, from string) {
	if v, ok := src[from]; ok {
		dst[to] = v
		return
	}
	delete(dst, to)
}
