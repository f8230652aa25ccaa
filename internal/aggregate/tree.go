package aggregate

import (
	"harvest/internal/descriptor"
	"harvest/internal/discovery"
	"harvest/internal/extract"
)

// Required node attribute keys, present on every node in this order.
const (
	AttrSourceFile   = "source_file"
	AttrRelativePath = "relative_path"
	AttrFormat       = "format"
	AttrModality     = "modality"
	AttrLoad         = "load"
	AttrCondition    = "condition"
	AttrSeverity     = "severity"
	AttrLabel        = "label"
	AttrOutcome      = "outcome"
)

// AttrTimestampOrigin names how row i of a Success node's channels maps to
// time. It holds TimestampFromIncrement or TimestampSampleIndex.
const (
	AttrTimestampOrigin    = "timestamp_origin"
	TimestampFromIncrement = "start_value+i*increment"
	TimestampSampleIndex   = "sample_index"
)

// TimestampOrigin derives the time axis from attrs: start_value (default 0)
// plus i times a positive increment, else the sample index.
func TimestampOrigin(attrs extract.Metadata) string {
	if inc, ok := attrs.Float64("increment"); ok && inc > 0 {
		return TimestampFromIncrement
	}
	return TimestampSampleIndex
}

// RequiredAttributes lists the keys every node carries.
var RequiredAttributes = []string{
	AttrSourceFile,
	AttrRelativePath,
	AttrFormat,
	AttrModality,
	AttrLoad,
	AttrCondition,
	AttrSeverity,
	AttrLabel,
	AttrOutcome,
}

// Node is one output entry keyed by (modality, label).
type Node struct {
	Modality   string
	Label      string
	Descriptor descriptor.Descriptor
	SourceFile string
	RelPath    string
	Format     discovery.Format
	Outcome    extract.Kind
	Attributes extract.Metadata
	Channels   []extract.Channel
}

// SampleCount returns the total samples held by the node.
func (n *Node) SampleCount() int {
	total := 0
	for _, ch := range n.Channels {
		total += len(ch.Samples)
	}
	return total
}

// Group holds the nodes of one modality in insertion order.
type Group struct {
	Modality string
	Nodes    []*Node
	byLabel  map[string]*Node
}

// Node returns the node stored under label.
func (g *Group) Node(label string) (*Node, bool) {
	if g == nil {
		return nil, false
	}
	if g.byLabel == nil {
		for _, n := range g.Nodes {
			if n.Label == label {
				return n, true
			}
		}
		return nil, false
	}
	n, ok := g.byLabel[label]
	return n, ok
}

// Tree is the complete output hierarchy with modalities in first-seen order.
type Tree struct {
	Groups []*Group
}

// Group returns the group for modality.
func (t *Tree) Group(modality string) (*Group, bool) {
	if t == nil {
		return nil, false
	}
	for _, g := range t.Groups {
		if g.Modality == modality {
			return g, true
		}
	}
	return nil, false
}

// Node returns the node at (modality, label).
func (t *Tree) Node(modality, label string) (*Node, bool) {
	g, ok := t.Group(modality)
	if !ok {
		return nil, false
	}
	return g.Node(label)
}

// NodeCount returns the number of nodes across every group.
func (t *Tree) NodeCount() int {
	if t == nil {
		return 0
	}
	total := 0
	for _, g := range t.Groups {
		total += len(g.Nodes)
	}
	return total
}

// ChannelCount returns the number of channels across every node.
func (t *Tree) ChannelCount() int {
	if t == nil {
		return 0
	}
	total := 0
	for _, g := range t.Groups {
		for _, n := range g.Nodes {
			total += len(n.Channels)
		}
	}
	return total
}

// AddGroup appends an empty group, used when rebuilding a tree from storage.
func (t *Tree) AddGroup(modality string) *Group {
	if g, ok := t.Group(modality); ok {
		return g
	}
	g := &Group{Modality: modality, byLabel: map[string]*Node{}}
	t.Groups = append(t.Groups, g)
	return g
}

// AddNode appends n to the group without collision checks, used when
// rebuilding a tree from storage.
func (g *Group) AddNode(n *Node) {
	if g.byLabel == nil {
		g.byLabel = map[string]*Node{}
	}
	g.Nodes = append(g.Nodes, n)
	g.byLabel[n.Label] = n
}
