package types

import "math/big"

// Supply is the pool-wide token accounting singleton. Total tracks the portion
// of the pool's external holdings the protocol has claimed; Minimum is the
// part already committed to account balances; Pending is the sum of all
// outstanding issued-but-unaccepted grants.
type Supply struct {
	Total   *big.Int `json:"total"`
	Minimum *big.Int `json:"minimum"`
	Pending *big.Int `json:"pending"`
}

// NewSupply returns a zeroed supply record.
func NewSupply() *Supply {
	return &Supply{Total: big.NewInt(0), Minimum: big.NewInt(0), Pending: big.NewInt(0)}
}

// Normalize replaces nil fields with zero values.
func (s *Supply) Normalize() *Supply {
	if s == nil {
		return NewSupply()
	}
	if s.Total == nil {
		s.Total = big.NewInt(0)
	}
	if s.Minimum == nil {
		s.Minimum = big.NewInt(0)
	}
	if s.Pending == nil {
		s.Pending = big.NewInt(0)
	}
	return s
}

// Clone returns a deep copy of the supply record.
func (s *Supply) Clone() *Supply {
	if s == nil {
		return NewSupply()
	}
	clone := NewSupply()
	if s.Total != nil {
		clone.Total = new(big.Int).Set(s.Total)
	}
	if s.Minimum != nil {
		clone.Minimum = new(big.Int).Set(s.Minimum)
	}
	if s.Pending != nil {
		clone.Pending = new(big.Int).Set(s.Pending)
	}
	return clone
}

// Available is the admin-transferable surplus: total minus the committed
// minimum minus all in-flight pending issuances.
func (s *Supply) Available() *big.Int {
	c := s.Clone()
	avail := new(big.Int).Sub(c.Total, c.Minimum)
	avail.Sub(avail, c.Pending)
	if avail.Sign() < 0 {
		return big.NewInt(0)
	}
	return avail
}
