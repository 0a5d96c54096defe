package marketplace

// RawItem is one loosely-structured item record as returned by the
// marketplace API. The wire shape varies between endpoints and item ages, so
// nothing is assumed about which keys exist; every accessor tolerates absent
// or mistyped values and reports absence instead of panicking.
type RawItem map[string]any

// Obj returns a nested object, or an empty one when the key is absent or not
// an object.
func (r RawItem) Obj(key string) RawItem {
	if r == nil {
		return RawItem{}
	}
	if m, ok := r[key].(map[string]any); ok {
		return RawItem(m)
	}
	return RawItem{}
}

// Str returns a non-empty string value, or "".
func (r RawItem) Str(key string) string {
	if r == nil {
		return ""
	}
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// List returns a slice of objects, skipping entries that are not objects.
func (r RawItem) List(key string) []RawItem {
	if r == nil {
		return nil
	}
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]RawItem, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, RawItem(m))
		}
	}
	return out
}

// Val returns the raw value for key, or nil.
func (r RawItem) Val(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// FirstStr returns the first non-empty string among the given keys.
func (r RawItem) FirstStr(keys ...string) string {
	for _, k := range keys {
		if s := r.Str(k); s != "" {
			return s
		}
	}
	return ""
}
