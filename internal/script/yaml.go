package script

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// parseYAML reads either a document with a blocks list or a bare list of
// entries.
func parseYAML(data []byte) (*Script, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return &Script{}, nil
	}

	s := &Script{}
	switch root.Content[0].Kind {
	case yaml.SequenceNode:
		if err := root.Content[0].Decode(&s.Entries); err != nil {
			return nil, fmt.Errorf("decode blocks: %w", err)
		}
	case yaml.MappingNode:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(s); err != nil {
			return nil, fmt.Errorf("decode script: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode script: expected a mapping or a list")
	}
	return s, nil
}
