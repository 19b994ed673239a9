package ancestry

// Set is a collection of unique entity ids that remembers insertion order.
type Set struct {
	ids   []string
	index map[string]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// Add inserts id and reports whether it was new.
func (s *Set) Add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Has reports whether id is in the set.
func (s *Set) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of ids.
func (s *Set) Len() int {
	return len(s.ids)
}

// IDs returns the ids in insertion order. The slice is a copy.
func (s *Set) IDs() []string {
	return append([]string(nil), s.ids...)
}
