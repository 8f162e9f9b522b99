// Package diskplan decides which sectors of a virtual disk need to be
// streamed: the allocation planner discovers which sectors are in use at
// all, and the intersector narrows that down to the sectors CBT reports
// as changed since the reference point.
package diskplan

import "fmt"

// Interval is a half-open byte range [Start, Start+Length). A list of
// Intervals produced by this package is always sorted by Start and
// pairwise disjoint.
type Interval struct {
	Start  uint64
	Length uint64
}

// End returns the exclusive end offset of the interval.
func (iv Interval) End() uint64 { return iv.Start + iv.Length }

func (iv Interval) String() string {
	return fmt.Sprintf("[%d, %d)", iv.Start, iv.End())
}
