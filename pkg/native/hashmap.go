package native

// HashMap backs a java.util.HashMap. Keys are host values chosen by the
// caller so that equal Java keys map to equal Go keys (string contents,
// int32 for Integer, a handle otherwise).
type HashMap struct {
	Data map[any]any
	keys []any
}

// NewHashMap creates an empty map.
func NewHashMap() *HashMap {
	return &HashMap{Data: make(map[any]any)}
}

// Get returns the value for key, or nil.
func (m *HashMap) Get(key any) any {
	return m.Data[key]
}

// Put stores a key-value pair and returns the previous value.
func (m *HashMap) Put(key, value any) any {
	old, ok := m.Data[key]
	if !ok {
		m.keys = append(m.keys, key)
	}
	m.Data[key] = value
	return old
}

// ContainsKey reports whether key has a mapping.
func (m *HashMap) ContainsKey(key any) bool {
	_, ok := m.Data[key]
	return ok
}

// Remove deletes key and returns its previous value.
func (m *HashMap) Remove(key any) any {
	old, ok := m.Data[key]
	if !ok {
		return nil
	}
	delete(m.Data, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return old
}

// Size returns the number of mappings.
func (m *HashMap) Size() int {
	return len(m.Data)
}

// Keys returns the keys in insertion order.
func (m *HashMap) Keys() []any {
	return append([]any{}, m.keys...)
}
