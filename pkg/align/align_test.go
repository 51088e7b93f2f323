package align

import (
	"reflect"
	"testing"
)

var (
	seriesA = []int{0, 1, 13, 25, 15, 6, 99}
	seriesB = []int{100, 2, 12, 14, 18, 30, 115, 1000}
)

func TestAlign(t *testing.T) {
	got := Align(seriesA, seriesB)
	want := Mapping{0: Absent, 1: 2, 6: Absent, 13: 12, 15: 14, 25: 18, 99: 100}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Align() = %v, want %v", got, want)
	}
}

func TestAlignEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		a, b []int
		want Mapping
	}{
		{"empty source", nil, []int{1, 2}, Mapping{}},
		{"empty target", []int{3, 1}, nil, Mapping{1: Absent, 3: Absent}},
		{"identity", []int{4, 7, 9}, []int{9, 4, 7}, Mapping{4: 4, 7: 7, 9: 9}},
		{"equidistant takes first", []int{5}, []int{4, 6}, Mapping{5: 4}},
		{"prefers target below", []int{50, 60}, []int{1, 49}, Mapping{50: 49, 60: Absent}},
		{"duplicates collapse", []int{3, 3, 8}, []int{3, 8, 8}, Mapping{3: 3, 8: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Align(tt.a, tt.b)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Align() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlignIsOrderPreserving(t *testing.T) {
	a := []int{3, 9, 14, 21, 22, 40}
	b := []int{1, 8, 10, 20, 23, 41, 60}

	m := Align(a, b)
	prev := Absent
	for _, x := range sortedUnique(a) {
		y := m[x]
		if y == Absent {
			continue
		}
		if y <= prev {
			t.Fatalf("mapping crosses at %d -> %d (previous target %d)", x, y, prev)
		}
		prev = y
	}
}

func TestAlignAll(t *testing.T) {
	got := AlignAll(seriesA, seriesB)
	want := Mapping{0: 115, 1: 2, 6: 30, 13: 12, 15: 14, 25: 18, 99: 100}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("AlignAll() = %v, want %v", got, want)
	}
}

func TestAlignAllAbsentCount(t *testing.T) {
	tests := []struct {
		name string
		a, b []int
	}{
		{"more sources", []int{1, 5, 9, 13, 17, 21}, []int{2, 30, 11}},
		{"more targets", []int{4, 8}, []int{1, 2, 3, 50, 60}},
		{"equal", []int{10, 20, 30}, []int{31, 1, 2}},
		{"no targets", []int{10, 20}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := AlignAll(tt.a, tt.b)
			wantAbsent := len(tt.a) - len(tt.b)
			if wantAbsent < 0 {
				wantAbsent = 0
			}
			if absent := len(m) - m.Matched(); absent != wantAbsent {
				t.Errorf("absent = %d, want %d (mapping %v)", absent, wantAbsent, m)
			}
			assertDistinctTargets(t, m)
		})
	}
}

func TestAlignAllSets(t *testing.T) {
	shared := []int{100, 2, 12, 14, 18, 30, 115, 1000}
	candidates := map[int][]int{
		0:  shared,
		1:  {12},
		2:  {3, 12, 14},
		8:  {12},
		13: {3, 12, 14},
		25: shared,
		15: shared,
		6:  shared,
		99: {3},
	}

	got := AlignAllSets(candidates)
	want := Mapping{
		1:  Absent,
		8:  12,
		99: 3,
		2:  Absent,
		13: 14,
		0:  2,
		6:  100,
		15: 18,
		25: 30,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AlignAllSets() = %v, want %v", got, want)
	}

	// the single-candidate keys got served before anyone else
	if got[8] != 12 || got[99] != 3 {
		t.Errorf("most constrained keys not served first: %v", got)
	}
	assertDistinctTargets(t, got)

	for k, target := range got {
		if target == Absent {
			continue
		}
		found := false
		for _, c := range candidates[k] {
			if c == target {
				found = true
			}
		}
		if !found {
			t.Errorf("key %d mapped to %d outside its candidates", k, target)
		}
	}
}

func TestAlignAllSetsEmpty(t *testing.T) {
	got := AlignAllSets(map[int][]int{4: nil, 7: {7}})
	want := Mapping{4: Absent, 7: 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AlignAllSets() = %v, want %v", got, want)
	}
}

func assertDistinctTargets(t *testing.T, m Mapping) {
	t.Helper()
	seen := make(map[int]int)
	for k, target := range m {
		if target == Absent {
			continue
		}
		if other, ok := seen[target]; ok {
			t.Errorf("target %d used by %d and %d", target, other, k)
		}
		seen[target] = k
	}
}
