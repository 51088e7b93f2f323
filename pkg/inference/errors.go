package inference

import "fmt"

// IntegrityError reports a site assignment that does not place every
// modification occurrence of a peptide.
type IntegrityError struct {
	Key      string
	Sequence string
	Expected int
	Actual   int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("match %s (%s): %d modification sites assigned, expected %d",
		e.Key, e.Sequence, e.Actual, e.Expected)
}

// ModificationNotFoundError reports a modification name unknown to the provider.
type ModificationNotFoundError struct {
	Name string
}

func (e *ModificationNotFoundError) Error() string {
	return fmt.Sprintf("modification not found: %s", e.Name)
}
