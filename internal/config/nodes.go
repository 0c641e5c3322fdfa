package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// lowerKeys lowercases every mapping key below n so definition files accept
// "Check", "CHECK GROUP" and friends.
func lowerKeys(n *yaml.Node) {
	if n == nil {
		return
	}
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind == yaml.ScalarNode {
				key.Value = strings.ToLower(strings.TrimSpace(key.Value))
			}
		}
	}
	for _, child := range n.Content {
		lowerKeys(child)
	}
}

// findMapValue returns the value node for key in a mapping node.
func findMapValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// missingKey returns the first key of keys absent from mapping.
func missingKey(mapping *yaml.Node, keys ...string) string {
	for _, k := range keys {
		v := findMapValue(mapping, k)
		if v == nil || (v.Kind == yaml.ScalarNode && v.Tag == "!!null") {
			return k
		}
	}
	return ""
}
