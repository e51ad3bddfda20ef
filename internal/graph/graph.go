// Package graph defines the typed object graph the gateway receives from
// the chat backend and feeds to the normalizer.
//
// Backend JSON is deserialized into a closed set of node variants (Scalar,
// Mapping, Sequence, Enum) instead of being inspected reflectively at
// request time. Enum-typed fields are identified up front by the schema
// table the caller hands to Decode.
package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is one node of a backend object graph.
type Node interface {
	node()
}

// Scalar is a plain JSON leaf: string, number, bool or null.
type Scalar struct {
	Value any
}

// Mapping is a JSON object.
type Mapping map[string]Node

// Sequence is a JSON array.
type Sequence []Node

// Enum is an enumerated field value carrying the platform's symbolic name,
// e.g. "supergroup" or "text_link".
type Enum string

func (Scalar) node()   {}
func (Mapping) node()  {}
func (Sequence) node() {}
func (Enum) node()     {}

// Decode deserializes raw backend JSON into a Node tree. String-valued
// object fields whose key appears in enumKeys become Enum nodes; everything
// else maps structurally. Numbers are preserved as json.Number so large
// platform identifiers survive a later re-encode intact.
func Decode(raw json.RawMessage, enumKeys map[string]bool) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding object graph: %w", err)
	}
	return fromValue(v, "", enumKeys), nil
}

func fromValue(v any, key string, enumKeys map[string]bool) Node {
	switch t := v.(type) {
	case map[string]any:
		m := make(Mapping, len(t))
		for k, child := range t {
			m[k] = fromValue(child, k, enumKeys)
		}
		return m
	case []any:
		s := make(Sequence, 0, len(t))
		for _, child := range t {
			s = append(s, fromValue(child, "", enumKeys))
		}
		return s
	case string:
		if enumKeys[key] {
			return Enum(t)
		}
		return Scalar{Value: t}
	default:
		return Scalar{Value: t}
	}
}

// Without returns a shallow copy of m with the given keys removed.
// The receiver is never modified.
func (m Mapping) Without(keys ...string) Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// String returns the node's value when it is a string scalar.
func (m Mapping) String(key string) (string, bool) {
	s, ok := m[key].(Scalar)
	if !ok {
		return "", false
	}
	v, ok := s.Value.(string)
	return v, ok
}
