// SPDX-License-Identifier: MPL-2.0

// Package importmap implements the import map document: an insertion-ordered
// JSON representation, parsing of user-authored maps (comments and trailing
// commas allowed) and the specifier resolution algorithm browsers apply.
package importmap

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ImportMap is an import map document.
type ImportMap struct {
	Imports *SpecifierMap `json:"imports"`
	Scopes  *ScopeMap     `json:"scopes,omitempty"`
}

// New returns an empty import map.
func New() *ImportMap {
	return &ImportMap{Imports: NewSpecifierMap(), Scopes: NewScopeMap()}
}

// SpecifierMap maps specifiers to addresses, preserving insertion order.
// An empty address marks an invalid (blocked) entry.
type SpecifierMap struct {
	keys   []string
	values map[string]string
}

// NewSpecifierMap returns an empty map.
func NewSpecifierMap() *SpecifierMap {
	return &SpecifierMap{values: make(map[string]string)}
}

// Set stores address under specifier. Overwriting keeps the original position.
func (m *SpecifierMap) Set(specifier, address string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[specifier]; !ok {
		m.keys = append(m.keys, specifier)
	}
	m.values[specifier] = address
}

// Get returns the address stored under specifier.
func (m *SpecifierMap) Get(specifier string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[specifier]
	return v, ok
}

// Has reports whether specifier has an entry.
func (m *SpecifierMap) Has(specifier string) bool {
	_, ok := m.Get(specifier)
	return ok
}

// Keys returns the specifiers in insertion order.
func (m *SpecifierMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *SpecifierMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (m *SpecifierMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, k); err != nil {
				return nil, err
			}
			v, err := json.Marshal(m.values[k])
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. Non-string values are
// stored as blocked entries.
func (m *SpecifierMap) UnmarshalJSON(data []byte) error {
	*m = SpecifierMap{values: make(map[string]string)}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = ""
		}
		m.Set(key, s)
		return nil
	})
}

// ScopeMap maps scope prefixes to specifier maps, preserving insertion order.
type ScopeMap struct {
	keys   []string
	values map[string]*SpecifierMap
}

// NewScopeMap returns an empty map.
func NewScopeMap() *ScopeMap {
	return &ScopeMap{values: make(map[string]*SpecifierMap)}
}

// Get returns the specifier map for scope.
func (m *ScopeMap) Get(scope string) (*SpecifierMap, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[scope]
	return v, ok
}

// Ensure returns the specifier map for scope, creating an empty one if needed.
func (m *ScopeMap) Ensure(scope string) *SpecifierMap {
	if v, ok := m.Get(scope); ok {
		return v
	}
	v := NewSpecifierMap()
	m.Set(scope, v)
	return v
}

// Set stores the specifier map for scope.
func (m *ScopeMap) Set(scope string, specifiers *SpecifierMap) {
	if m.values == nil {
		m.values = make(map[string]*SpecifierMap)
	}
	if _, ok := m.values[scope]; !ok {
		m.keys = append(m.keys, scope)
	}
	m.values[scope] = specifiers
}

// Keys returns the scopes in insertion order.
func (m *ScopeMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of scopes.
func (m *ScopeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *ScopeMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, k); err != nil {
				return nil, err
			}
			v, err := m.values[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *ScopeMap) UnmarshalJSON(data []byte) error {
	*m = ScopeMap{values: make(map[string]*SpecifierMap)}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		inner := NewSpecifierMap()
		if err := inner.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("scope %q: %w", key, err)
		}
		m.Set(key, inner)
		return nil
	})
}

// MarshalIndent returns the document as indented JSON followed by a newline.
func (im *ImportMap) MarshalIndent() ([]byte, error) {
	doc := struct {
		Imports *SpecifierMap `json:"imports"`
		Scopes  *ScopeMap     `json:"scopes"`
	}{im.Imports, im.Scopes}
	if doc.Imports == nil {
		doc.Imports = NewSpecifierMap()
	}
	if doc.Scopes == nil {
		doc.Scopes = NewScopeMap()
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

// decodeObject walks the members of a JSON object in document order.
func decodeObject(data []byte, member func(key string, raw json.RawMessage) error) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected a JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := member(key, raw); err != nil {
			return err
		}
	}

	_, err = dec.Token()
	return err
}
