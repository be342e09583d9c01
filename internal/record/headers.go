package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Header struct {
	Name   string
	Values []string
}

// Headers keeps header entries in insertion order with a case-folded index.
// Lookups are case-insensitive and return the first entry added under a name.
type Headers struct {
	list  []Header
	index map[string]int
}

func NewHeaders(entries ...Header) Headers {
	var h Headers
	for _, e := range entries {
		h.Add(e.Name, e.Values...)
	}
	return h
}

// Add appends values to the entry named name, creating it at the end of the
// order when it does not exist yet.
func (h *Headers) Add(name string, values ...string) {
	key := strings.ToLower(name)
	if i, ok := h.index[key]; ok {
		h.list[i].Values = append(h.list[i].Values, values...)
		return
	}
	if h.index == nil {
		h.index = make(map[string]int)
	}
	h.index[key] = len(h.list)
	h.list = append(h.list, Header{Name: name, Values: append([]string(nil), values...)})
}

// Get returns the first value stored under name.
func (h Headers) Get(name string) (string, bool) {
	i, ok := h.index[strings.ToLower(name)]
	if !ok || len(h.list[i].Values) == 0 {
		return "", ok
	}
	return h.list[i].Values[0], true
}

func (h Headers) Len() int {
	return len(h.list)
}

// All returns a copy of the entries in insertion order.
func (h Headers) All() []Header {
	out := make([]Header, len(h.list))
	for i, e := range h.list {
		out[i] = Header{Name: e.Name, Values: append([]string(nil), e.Values...)}
	}
	return out
}

func (h Headers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range h.list {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		vals, err := json.Marshal(nonNil(e.Values))
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(vals)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object whose members keep their document order.
// Each value may be a string or an array of strings.
func (h *Headers) UnmarshalJSON(data []byte) error {
	*h = Headers{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("headers: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("headers: expected name, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("headers: %s: %w", name, err)
		}
		vals, err := decodeValues(raw)
		if err != nil {
			return fmt.Errorf("headers: %s: %w", name, err)
		}
		h.Add(name, vals...)
	}
	_, err = dec.Token()
	return err
}

func decodeValues(raw json.RawMessage) ([]string, error) {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func (h Headers) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range h.list {
		vals := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, v := range e.Values {
			vals.Content = append(vals.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Name},
			vals,
		)
	}
	return node, nil
}

func (h *Headers) UnmarshalYAML(value *yaml.Node) error {
	*h = Headers{}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("headers: expected mapping at line %d", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			h.Add(key.Value, val.Value)
		case yaml.SequenceNode:
			var vals []string
			if err := val.Decode(&vals); err != nil {
				return fmt.Errorf("headers: %s: %w", key.Value, err)
			}
			h.Add(key.Value, vals...)
		default:
			return fmt.Errorf("headers: %s: unsupported value at line %d", key.Value, val.Line)
		}
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
