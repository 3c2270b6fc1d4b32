package dag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
)

// RawNode is the wire shape of one node in a source DAG file. It accepts
// both the canonical field names and the legacy spelling
// ("row_index"/"dependency_nodes") some upstream generators still emit, and
// tolerates both string and numeric ids.
type RawNode struct {
	ID               json.RawMessage   `json:"id,omitempty"`
	RowIndex         json.RawMessage   `json:"row_index,omitempty"`
	Type             string            `json:"type,omitempty"`
	Parents          []json.RawMessage `json:"parents,omitempty"`
	DependencyNodes  []json.RawMessage `json:"dependency_nodes,omitempty"`
	Level            int               `json:"level"`
	Cost             int               `json:"cost,omitempty"`
	IsSuper          bool              `json:"is_super,omitempty"`
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty id")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%d", n), nil
	}
	return "", fmt.Errorf("id is neither string nor number: %s", string(raw))
}

// toNode resolves the legacy-vs-canonical field aliases and converts a
// RawNode into a validated Node. The node's Kind defaults to NORMAL when
// Type is empty, matching raw (un-rewritten) input graphs where every node
// is an undifferentiated accumulation node.
func (r *RawNode) toNode() (*Node, error) {
	idRaw := r.ID
	if len(idRaw) == 0 {
		idRaw = r.RowIndex
	}
	id, err := decodeID(idRaw)
	if err != nil {
		return nil, fmt.Errorf("node id: %w", err)
	}

	parentsRaw := r.Parents
	if parentsRaw == nil {
		parentsRaw = r.DependencyNodes
	}
	parents := make([]string, 0, len(parentsRaw))
	for _, p := range parentsRaw {
		pid, err := decodeID(p)
		if err != nil {
			return nil, fmt.Errorf("node %q parent: %w", id, err)
		}
		parents = append(parents, pid)
	}

	kind := KindNormal
	if r.Type != "" {
		kind, err = ParseKind(r.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
	}

	cost := r.Cost
	if cost == 0 {
		cost = len(parents) + 1
	}

	return &Node{
		ID:      id,
		Kind:    kind,
		Parents: parents,
		Level:   r.Level,
		Cost:    cost,
	}, nil
}

// ParseNodes decodes a raw DAG document (a JSON array of RawNode objects)
// and builds a validated DAG.
func ParseNodes(data []byte) (*DAG, error) {
	var raw []RawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedDag, "decode dag json", err)
	}

	nodes := make([]*Node, 0, len(raw))
	for i, r := range raw {
		n, err := r.toNode()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeMalformedDag,
				fmt.Sprintf("node at index %d", i), err)
		}
		nodes = append(nodes, n)
	}

	return New(nodes)
}

// LoadFile reads and parses a raw DAG JSON file from disk.
func LoadFile(path string) (*DAG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "read dag file", err)
	}
	return ParseNodes(data)
}

// nodeJSON is the canonical (non-legacy) wire shape written for a rewritten
// DAG, a node-split output, or round-tripped debugging output.
type nodeJSON struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Parents []string `json:"parents"`
	Level   int      `json:"level"`
	Cost    int      `json:"cost"`
}

func toNodeJSON(n *Node) nodeJSON {
	parents := n.Parents
	if parents == nil {
		parents = []string{}
	}
	return nodeJSON{
		ID:      n.ID,
		Type:    n.Kind.String(),
		Parents: parents,
		Level:   n.Level,
		Cost:    n.Cost,
	}
}

// Write encodes the DAG's nodes, in insertion order, as canonical DAG JSON.
func (g *DAG) Write(w io.Writer) error {
	out := make([]nodeJSON, 0, g.Len())
	for _, n := range g.Nodes() {
		out = append(out, toNodeJSON(n))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "encode dag json", err)
	}
	return nil
}

// WriteFile writes the DAG to path as canonical DAG JSON.
func (g *DAG) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "create dag file", err)
	}
	defer f.Close()
	return g.Write(f)
}
