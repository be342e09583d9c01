package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// LoadFile reads exchanges from a .json, .yaml or .yml file holding either a
// single exchange or a list of them. Exchanges without an ID get a new one.
func LoadFile(path string) ([]Exchange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var out []Exchange
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		out, err = decodeJSON(data)
	case ".yaml", ".yml":
		out, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported record file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return Prepare(out)
}

// Prepare validates exchanges and assigns IDs where missing.
func Prepare(exs []Exchange) ([]Exchange, error) {
	for i := range exs {
		if strings.TrimSpace(exs[i].Record.ID) == "" {
			exs[i].Record.ID = uuid.NewString()
		}
		if err := exs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return exs, nil
}

func decodeJSON(data []byte) ([]Exchange, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Exchange
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one Exchange
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, err
	}
	return []Exchange{one}, nil
}

func decodeYAML(data []byte) ([]Exchange, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var list []Exchange
		if err := root.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one Exchange
	if err := root.Decode(&one); err != nil {
		return nil, err
	}
	return []Exchange{one}, nil
}
