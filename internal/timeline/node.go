package timeline

import "time"

type Kind string

const (
	KindScope Kind = "scope"
	KindStamp Kind = "stamp"
)

// Node is a timed span of work (scope) or a point event (stamp) with nested
// children. Nodes are built once by a collector and only read afterwards.
type Node struct {
	Kind       Kind          `json:"kind"                 yaml:"kind"`
	Name       string        `json:"name"                 yaml:"name"`
	Category   string        `json:"category,omitempty"   yaml:"category,omitempty"`
	Timestamp  time.Time     `json:"timestamp"            yaml:"timestamp"`
	Duration   time.Duration `json:"duration"             yaml:"duration"`
	Children   []Node        `json:"children,omitempty"   yaml:"children,omitempty"`
	Incomplete bool          `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
}

func (n Node) End() time.Time {
	if n.Duration <= 0 {
		return n.Timestamp
	}
	return n.Timestamp.Add(n.Duration)
}

func (n Node) IsScope() bool {
	return n.Kind == KindScope
}

func (n Node) clone() Node {
	out := n
	if len(n.Children) > 0 {
		out.Children = make([]Node, len(n.Children))
		for i, ch := range n.Children {
			out.Children[i] = ch.clone()
		}
	}
	return out
}

// Walk visits n and its descendants depth first, parents before children.
func (n Node) Walk(fn func(node Node, depth int)) {
	n.walk(fn, 0)
}

func (n Node) walk(fn func(Node, int), depth int) {
	fn(n, depth)
	for _, ch := range n.Children {
		ch.walk(fn, depth+1)
	}
}
