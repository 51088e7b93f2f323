package inference

// Occurrences returns the start offsets (0-based, ascending) of the
// non-overlapping occurrences of short in long. The search restarts right
// after the end of each occurrence, so "AA" occurs in "AAAA" at 0 and 2.
func Occurrences(short, long string) []int {
	if short == "" || len(short) > len(long) {
		return nil
	}
	var starts []int
	for i := 0; i+len(short) <= len(long); {
		if long[i:i+len(short)] == short {
			starts = append(starts, i)
			i += len(short)
			continue
		}
		i++
	}
	return starts
}

// relation returns the score bonus and the site shifts carrying a site on
// other onto sequence: the same sequence maps 1:1, and when one sequence
// contains the other there is one shift per occurrence. ok is false for
// unrelated sequences.
func relation(sequence, other string) (bonus float64, shifts []int, ok bool) {
	switch {
	case sequence == other:
		return ConfidentOtherOffset, []int{0}, true
	case len(other) > len(sequence):
		for _, start := range Occurrences(sequence, other) {
			shifts = append(shifts, -start)
		}
	case len(sequence) > len(other):
		shifts = Occurrences(other, sequence)
	}
	if len(shifts) == 0 {
		return 0, nil, false
	}
	return ConfidentRelatedOffset, shifts, true
}
