package core

// Sequence hands out arrival numbers. Orders compare by sequence within a
// price level, lower first.
type Sequence struct {
	last uint64
}

// Next returns the next arrival number
func (s *Sequence) Next() uint64 {
	s.last++
	return s.last
}
