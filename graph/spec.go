package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeSpec is the declarative description of a single node in a graph
// document. Type selects a registered constructor, Set carries static
// configuration, and In wires named inputs to upstream node outputs.
type NodeSpec struct {
	Type string              `json:"type" yaml:"type"`
	ID   string              `json:"id,omitempty" yaml:"id,omitempty"`
	Set  map[string]any      `json:"set,omitempty" yaml:"set,omitempty"`
	In   map[string]EdgeList `json:"in,omitempty" yaml:"in,omitempty"`
}

// Edge names an upstream node and the key to read from its emitted value.
type Edge struct {
	Node string `json:"node" yaml:"node"`
	Out  string `json:"out,omitempty" yaml:"out,omitempty"`
}

// EdgeList accepts either a single edge object or a list of edges, so
// simple wirings stay terse in documents:
//
//	in:
//	  prompt: {node: input-1, out: text}
//	  context:
//	    - {node: fetch-1, out: data}
//	    - {node: config-1, out: region}
type EdgeList []Edge

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *EdgeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		var e Edge
		if err := value.Decode(&e); err != nil {
			return err
		}
		*l = EdgeList{e}
		return nil
	case yaml.SequenceNode:
		var edges []Edge
		if err := value.Decode(&edges); err != nil {
			return err
		}
		*l = EdgeList(edges)
		return nil
	default:
		return fmt.Errorf("graph: edge list must be a mapping or a sequence, got %v", value.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *EdgeList) UnmarshalJSON(data []byte) error {
	var edges []Edge
	if err := json.Unmarshal(data, &edges); err == nil {
		*l = EdgeList(edges)
		return nil
	}

	var e Edge
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}

	*l = EdgeList{e}
	return nil
}

// Document is the top-level shape of a graph file.
type Document struct {
	Nodes []NodeSpec `json:"nodes" yaml:"nodes"`
}

// LoadDocument decodes a YAML graph document from r. JSON documents also
// parse, since YAML is a superset.
func LoadDocument(r io.Reader) (*Document, error) {
	var doc Document

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("graph: decode document: %w", err)
	}

	return &doc, nil
}

// LoadFile reads and decodes the graph document at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graph: open document: %w", err)
	}
	defer f.Close()

	return LoadDocument(f)
}
