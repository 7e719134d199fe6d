package mechanism

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	keyEquation  = "equation"
	keyDuplicate = "duplicate"
)

// Equation returns the equation string declared by a reaction definition.
func Equation(reaction *yaml.Node) string {
	if v := mappingValue(reaction, keyEquation); v != nil {
		return v.Value
	}
	return ""
}

// IsDuplicate reports whether a reaction is flagged as one of several parallel
// definitions of the same equation.
func IsDuplicate(reaction *yaml.Node) bool {
	v := mappingValue(reaction, keyDuplicate)
	if v == nil {
		return false
	}
	var dup bool
	if err := v.Decode(&dup); err != nil {
		return false
	}
	return dup
}

// EncodeReaction serializes a single reaction definition.
// DecodeReaction(EncodeReaction(n)) encodes back to the same bytes.
func EncodeReaction(reaction *yaml.Node) (string, error) {
	if reaction == nil || reaction.Kind != yaml.MappingNode {
		return "", fmt.Errorf("reaction is not a mapping")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(reaction); err != nil {
		return "", fmt.Errorf("failed to encode reaction: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode reaction: %w", err)
	}
	return buf.String(), nil
}

// DecodeReaction parses a serialized reaction definition.
func DecodeReaction(def string) (*yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(def), &root); err != nil {
		return nil, fmt.Errorf("failed to decode reaction: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("failed to decode reaction: empty definition")
	}
	node := root.Content[0]
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to decode reaction: not a mapping")
	}
	if strings.TrimSpace(Equation(node)) == "" {
		return nil, fmt.Errorf("failed to decode reaction: missing %q", keyEquation)
	}
	return node, nil
}

// ClearDuplicate removes the duplicate marker from a serialized reaction.
// Every other field is left as it was.
func ClearDuplicate(def string) (string, error) {
	node, err := DecodeReaction(def)
	if err != nil {
		return "", err
	}
	kept := node.Content[:0:0]
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == keyDuplicate {
			continue
		}
		kept = append(kept, node.Content[i], node.Content[i+1])
	}
	node.Content = kept
	return EncodeReaction(node)
}
