package diskplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntersectWorkedExample(t *testing.T) {
	// Mirrors the canonical example: sectors 0-9, changed = {1,2,3},{5,6},{9},
	// allocated = {0,1},{3..7}. Expected saved = {1},{3},{5,6}.
	changed := []Interval{{Start: 1, Length: 3}, {Start: 5, Length: 2}, {Start: 9, Length: 1}}
	allocated := []Interval{{Start: 0, Length: 2}, {Start: 3, Length: 5}}

	got := Intersect(changed, allocated)
	want := []Interval{{Start: 1, Length: 1}, {Start: 3, Length: 1}, {Start: 5, Length: 2}}
	assert.Equal(t, want, got)
}

func TestIntersectEmptyInputs(t *testing.T) {
	assert.Empty(t, Intersect(nil, nil))
	assert.Empty(t, Intersect([]Interval{{Start: 0, Length: 10}}, nil))
	assert.Empty(t, Intersect(nil, []Interval{{Start: 0, Length: 10}}))
}

func TestIntersectSkipsZeroLengthChanged(t *testing.T) {
	changed := []Interval{{Start: 5, Length: 0}, {Start: 10, Length: 5}}
	allocated := []Interval{{Start: 0, Length: 20}}
	got := Intersect(changed, allocated)
	assert.Equal(t, []Interval{{Start: 10, Length: 5}}, got)
}

func TestIntersectNoOverlapReturnsEmpty(t *testing.T) {
	changed := []Interval{{Start: 0, Length: 5}}
	allocated := []Interval{{Start: 100, Length: 5}}
	assert.Empty(t, Intersect(changed, allocated))
}

func TestIntersectFullyContainedAllocated(t *testing.T) {
	changed := []Interval{{Start: 0, Length: 100}}
	allocated := []Interval{{Start: 10, Length: 5}, {Start: 50, Length: 5}}
	got := Intersect(changed, allocated)
	assert.Equal(t, []Interval{{Start: 10, Length: 5}, {Start: 50, Length: 5}}, got)
}

func TestIntersectIsMonotoneInStartOffset(t *testing.T) {
	changed := []Interval{{Start: 0, Length: 30}, {Start: 40, Length: 30}}
	allocated := []Interval{{Start: 5, Length: 10}, {Start: 20, Length: 5}, {Start: 45, Length: 5}}
	got := Intersect(changed, allocated)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Start, got[i].Start)
	}
}
