// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// Process-wide state: the operation registry behind the generic Apply entry
// point. Initialize and Cleanup are reference counted, so libraries built on
// top of this one can pair their own calls without coordination.

var libRefs int

type applyFn struct {
	arity int
	run   func(f *Forest, args []Edge) (Edge, error)
}

var opRegistry map[string]applyFn

// Initialize sets up the library tables and the operation registry. The
// first call creates them; later calls only increment a reference count.
func Initialize() {
	libRefs++
	if libRefs > 1 {
		return
	}
	opRegistry = make(map[string]applyFn)
	reg2 := func(name string, run func(f *Forest, a, b Edge) (Edge, error)) {
		opRegistry[name] = applyFn{2, func(f *Forest, args []Edge) (Edge, error) {
			return run(f, args[0], args[1])
		}}
	}
	reg1 := func(name string, run func(f *Forest, a Edge) (Edge, error)) {
		opRegistry[name] = applyFn{1, func(f *Forest, args []Edge) (Edge, error) {
			return run(f, args[0])
		}}
	}
	reg2(opNames[opUnion], (*Forest).Union)
	reg2(opNames[opIntersect], (*Forest).Intersect)
	reg2(opNames[opDifference], (*Forest).Difference)
	reg1(opNames[opComplement], (*Forest).Complement)
	reg1(opNames[opCopy], (*Forest).CopyEdge)
	reg2(opNames[opMin], (*Forest).Min)
	reg2(opNames[opMax], (*Forest).Max)
	reg2(opNames[opPlus], (*Forest).Plus)
	reg2(opNames[opMinus], (*Forest).Minus)
	reg2(opNames[opTimes], (*Forest).Times)
	reg2(opNames[opDivide], (*Forest).Divide)
	reg2(opNames[opEqual], (*Forest).Equal)
	reg2(opNames[opNotEqual], (*Forest).NotEqual)
	reg2(opNames[opLess], (*Forest).Less)
	reg2(opNames[opLessEq], (*Forest).LessEq)
	reg2(opNames[opGreater], (*Forest).Greater)
	reg2(opNames[opGreaterEq], (*Forest).GreaterEq)
	reg2(opNames[opPreImage], (*Forest).PreImage)
	reg2(opNames[opPostImage], (*Forest).PostImage)
	reg2(opNames[opCross], (*Forest).CrossProduct)
	reg2(opNames[opMatVec], (*Forest).MatVecMult)
	reg2(opNames[opVecMat], (*Forest).VecMatMult)
	reg1(opNames[opLift], (*Forest).LiftEV)
	reg2("reachable-bfs", (*Forest).ReachableBFS)
	reg2("reachable-dfs", (*Forest).ReachableDFS)
	reg1("transitive-closure", (*Forest).TransitiveClosure)
}

// Cleanup tears the library state down once every Initialize has been
// matched.
func Cleanup() {
	if libRefs == 0 {
		return
	}
	libRefs--
	if libRefs == 0 {
		opRegistry = nil
	}
}

// Apply runs a registered operation by name: the generic entry point behind
// the one-method-per-operation surface.
func (f *Forest) Apply(name string, args ...Edge) (Edge, error) {
	if opRegistry == nil {
		return Edge{}, errf(Miscellaneous, "library not initialized")
	}
	fn, ok := opRegistry[name]
	if !ok {
		return Edge{}, errf(UnknownOperation, "no operation named %q", name)
	}
	if len(args) != fn.arity {
		return Edge{}, errf(InvalidArgument, "%s takes %d arguments, got %d", name, fn.arity, len(args))
	}
	return fn.run(f, args)
}
