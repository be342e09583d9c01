package timeline

import "time"

type span struct {
	start time.Time
	end   time.Time
}

// TotalActiveDuration returns the time covered by the scope children, counting
// overlapping spans once. Ranges are merged online: a child joins the first
// merged range whose [start, end] contains the child's start, stretching that
// range's end when needed; otherwise it opens a new range. A child starting
// before an existing range it overlaps is not folded into it, so the result
// depends on child order.
func TotalActiveDuration(children []Node) time.Duration {
	var merged []span
	for _, ch := range children {
		if !ch.IsScope() {
			continue
		}
		cur := span{start: ch.Timestamp, end: ch.End()}

		found := false
		for i := range merged {
			m := &merged[i]
			if cur.start.Before(m.start) || cur.start.After(m.end) {
				continue
			}
			if cur.end.After(m.end) {
				m.end = cur.end
			}
			found = true
			break
		}
		if !found {
			merged = append(merged, cur)
		}
	}

	var total time.Duration
	for _, m := range merged {
		total += m.end.Sub(m.start)
	}
	return total
}
