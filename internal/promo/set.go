package promo

import "storefront/internal/model"

// Set is an ordered collection of promo definitions keyed by normalized
// code. Adding a code that is already present replaces the earlier entry
// in place.
type Set struct {
	index  map[string]int
	promos []model.PromoCode
}

// NewSet creates an empty set sized for capacity definitions.
func NewSet(capacity int) *Set {
	return &Set{
		index:  make(map[string]int, capacity),
		promos: make([]model.PromoCode, 0, capacity),
	}
}

// Add inserts p, replacing any definition with the same code.
func (s *Set) Add(p model.PromoCode) {
	p.Code = model.NormalizeCode(p.Code)
	if i, ok := s.index[p.Code]; ok {
		s.promos[i] = p
		return
	}
	s.index[p.Code] = len(s.promos)
	s.promos = append(s.promos, p)
}

// Merge adds every definition of other, in order.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, p := range other.promos {
		s.Add(p)
	}
}

// Contains checks if a code exists in the set.
func (s *Set) Contains(code string) bool {
	_, ok := s.index[model.NormalizeCode(code)]
	return ok
}

// Get returns the definition stored for code.
func (s *Set) Get(code string) (model.PromoCode, bool) {
	i, ok := s.index[model.NormalizeCode(code)]
	if !ok {
		return model.PromoCode{}, false
	}
	return s.promos[i], true
}

// Size returns the number of distinct codes in the set.
func (s *Set) Size() int {
	return len(s.promos)
}

// Promos returns the definitions in first-insertion order.
func (s *Set) Promos() []model.PromoCode {
	out := make([]model.PromoCode, len(s.promos))
	copy(out, s.promos)
	return out
}
