package timeline

import "time"

// Row is one line of an interval summary.
type Row struct {
	Depth      int
	Name       string
	Category   string
	Kind       Kind
	Offset     time.Duration
	Duration   time.Duration
	Incomplete bool
	// Active is the merged duration of the scope children; HasActive reports
	// whether the node had any scope children at all.
	Active    time.Duration
	HasActive bool
}

// Summarize flattens root into rows, offsets measured from root's timestamp.
func Summarize(root Node) []Row {
	var rows []Row
	root.Walk(func(n Node, depth int) {
		row := Row{
			Depth:      depth,
			Name:       n.Name,
			Category:   n.Category,
			Kind:       n.Kind,
			Offset:     n.Timestamp.Sub(root.Timestamp),
			Incomplete: n.Incomplete,
		}
		if n.IsScope() {
			row.Duration = n.Duration
			if hasScopeChild(n.Children) {
				row.Active = TotalActiveDuration(n.Children)
				row.HasActive = true
			}
		}
		rows = append(rows, row)
	})
	return rows
}

func hasScopeChild(children []Node) bool {
	for _, ch := range children {
		if ch.IsScope() {
			return true
		}
	}
	return false
}
