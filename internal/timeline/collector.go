package timeline

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNoOpenScope = errors.New("timeline: no open scope")
	ErrNoTimeline  = errors.New("timeline: no timeline recorded")
)

// Collector assembles a Node tree from Begin/End pairs. Scopes nest in the
// order they are opened; stamps attach to the innermost open scope.
type Collector struct {
	mu    sync.Mutex
	roots []Node
	stack []*Node
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Begin(name, category string, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = append(c.stack, &Node{
		Kind:      KindScope,
		Name:      name,
		Category:  category,
		Timestamp: ts,
	})
}

func (c *Collector) End(ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		return ErrNoOpenScope
	}
	c.closeTopLocked(ts, false)
	return nil
}

func (c *Collector) Stamp(name, category string, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachLocked(Node{Kind: KindStamp, Name: name, Category: category, Timestamp: ts})
}

// Complete closes every scope that is still open at ts.
func (c *Collector) Complete(ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.stack) > 0 {
		c.closeTopLocked(ts, true)
	}
}

// Timeline returns a snapshot of the closed scopes. Several top-level scopes
// are wrapped in a synthetic root spanning all of them.
func (c *Collector) Timeline() (Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch len(c.roots) {
	case 0:
		return Node{}, false
	case 1:
		return c.roots[0].clone(), true
	}

	root := Node{Kind: KindScope, Name: "timeline"}
	var end time.Time
	for i, n := range c.roots {
		if i == 0 || n.Timestamp.Before(root.Timestamp) {
			root.Timestamp = n.Timestamp
		}
		if n.End().After(end) {
			end = n.End()
		}
		root.Children = append(root.Children, n.clone())
	}
	root.Duration = end.Sub(root.Timestamp)
	return root, true
}

func (c *Collector) closeTopLocked(ts time.Time, incomplete bool) {
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]

	if ts.Before(top.Timestamp) {
		ts = top.Timestamp
	}
	top.Duration = ts.Sub(top.Timestamp)
	top.Incomplete = incomplete
	c.attachLocked(*top)
}

func (c *Collector) attachLocked(n Node) {
	if len(c.stack) == 0 {
		c.roots = append(c.roots, n)
		return
	}
	parent := c.stack[len(c.stack)-1]
	parent.Children = append(parent.Children, n)
}
