// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import "math"

// Nodes are referenced through plain integer handles. Handle 0 is the
// transparent terminal (false, the integer 0, or the real 0). Strictly
// negative handles are the other terminals, with the terminal value packed in
// the low 32 bits of -1-h. Strictly positive handles index the forest address
// table. Terminal handles therefore never collide with non-terminal ones.

// termTrue is the boolean true terminal. It doubles as the omega terminal
// that every path of an edge-valued diagram ends in.
const termTrue = -1

// evInf is the edge value attached to absent children in EV+ forests.
const evInf = math.MaxInt64

func isTerminal(h int) bool { return h <= 0 }

func terminalOfBool(v bool) int {
	if v {
		return termTrue
	}
	return 0
}

func boolOfTerminal(h int) bool { return h != 0 }

func terminalOfInt(v int64) int {
	if v == 0 {
		return 0
	}
	return -1 - int(uint32(int32(v)))
}

func intOfTerminal(h int) int64 {
	if h == 0 {
		return 0
	}
	return int64(int32(uint32(-1 - h)))
}

func terminalOfFloat(v float64) int {
	if v == 0 {
		return 0
	}
	return -1 - int(math.Float32bits(float32(v)))
}

func floatOfTerminal(h int) float64 {
	if h == 0 {
		return 0
	}
	return float64(math.Float32frombits(uint32(-1 - h)))
}

// terminalInt returns the value encoded by terminal h in forest f as an
// int64: 0 or 1 for booleans, the integer itself, and real values truncated
// toward zero.
func (f *Forest) terminalInt(h int) int64 {
	switch f.rtype {
	case Boolean:
		if boolOfTerminal(h) {
			return 1
		}
		return 0
	case Integer:
		return intOfTerminal(h)
	default:
		return int64(floatOfTerminal(h))
	}
}

func (f *Forest) terminalFloat(h int) float64 {
	switch f.rtype {
	case Boolean:
		if boolOfTerminal(h) {
			return 1
		}
		return 0
	case Integer:
		return float64(intOfTerminal(h))
	default:
		return floatOfTerminal(h)
	}
}

// evFloatBits packs an EV* edge value into the raw int64 slot format: the
// float64 bit pattern. EV+ values are stored as the int64 itself.
func evFloatBits(v float64) int64 { return int64(math.Float64bits(v)) }

func evFloatOfBits(b int64) float64 { return math.Float64frombits(uint64(b)) }

func float32bitsOf(v float64) uint32 { return math.Float32bits(float32(v)) }

// evIdentity is the identity edge value of the forest labeling: 0 for EV+,
// 1.0 for EV*, and 0 in the multi-terminal case where values are unused.
func (f *Forest) evIdentity() int64 {
	if f.label == EVTimes {
		return evFloatBits(1)
	}
	return 0
}

// evTransparent is the edge value stored alongside an absent (zero) child.
func (f *Forest) evTransparent() int64 {
	switch f.label {
	case EVPlus:
		return evInf
	case EVTimes:
		return evFloatBits(0)
	default:
		return 0
	}
}

// evCompose accumulates edge value b under edge value a along a path.
func (f *Forest) evCompose(a, b int64) int64 {
	switch f.label {
	case EVPlus:
		if a == evInf || b == evInf {
			return evInf
		}
		return a + b
	case EVTimes:
		return evFloatBits(evFloatOfBits(a) * evFloatOfBits(b))
	default:
		return 0
	}
}

// evClose reports whether two edge values collapse in the unique table. EV+
// values compare exactly; EV* values compare with a relative closeness of
// 1e-6, falling back to an absolute threshold around zero.
func (f *Forest) evClose(a, b int64) bool {
	if f.label != EVTimes {
		return a == b
	}
	x, y := evFloatOfBits(a), evFloatOfBits(b)
	if x == y {
		return true
	}
	if x == 0 {
		return math.Abs(y) <= 1e-10
	}
	return math.Abs((y-x)/x) <= 1e-6
}
