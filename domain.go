// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// A Domain owns an ordered list of variables, each with an integer bound (the
// number of values the variable ranges over). Levels are numbered bottom-up
// from 1 to NumVars; level 0 is the terminal level. In relation forests,
// negative levels denote the primed (next-state) copy of the variable at the
// same absolute value.
type Domain struct {
	bounds    []int // bounds[v] is the bound of variable v, 1-based
	level2var []int // level2var[k] is the variable at level k, 1-based
	var2level []int // inverse of level2var
	forests   []*Forest
}

// CreateDomainBottomUp returns a new domain with len(bounds) variables, where
// bounds[0] is the bound of the variable at the bottom-most level. Every
// bound must be at least 2.
func CreateDomainBottomUp(bounds []int) (*Domain, error) {
	if len(bounds) == 0 {
		return nil, errf(InvalidArgument, "empty bounds vector")
	}
	d := &Domain{
		bounds:    make([]int, len(bounds)+1),
		level2var: make([]int, len(bounds)+1),
		var2level: make([]int, len(bounds)+1),
	}
	for k, sz := range bounds {
		if sz < 2 {
			return nil, errf(InvalidAssignment, "bound %d for variable %d, must be at least 2", sz, k+1)
		}
		d.bounds[k+1] = sz
		d.level2var[k+1] = k + 1
		d.var2level[k+1] = k + 1
	}
	return d, nil
}

// NumVars returns the number of variables in the domain.
func (d *Domain) NumVars() int {
	return len(d.bounds) - 1
}

// Bound returns the bound of the variable at level k (or -k for a primed
// level).
func (d *Domain) Bound(level int) (int, error) {
	if level < 0 {
		level = -level
	}
	if level < 1 || level > d.NumVars() {
		return 0, errf(InvalidVariable, "no variable at level %d", level)
	}
	return d.bounds[d.level2var[level]], nil
}

// VarAtLevel returns the variable currently sitting at level k.
func (d *Domain) VarAtLevel(level int) (int, error) {
	if level < 0 {
		level = -level
	}
	if level < 1 || level > d.NumVars() {
		return 0, errf(InvalidLevel, "no variable at level %d", level)
	}
	return d.level2var[level], nil
}

// bound is the unchecked form used by forests on already validated levels.
func (d *Domain) bound(level int32) int {
	if level < 0 {
		level = -level
	}
	return d.bounds[d.level2var[level]]
}

func (d *Domain) register(f *Forest) {
	d.forests = append(d.forests, f)
}
