package phase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chrissnell/taup/pkg/velocity"
)

// LegKind is the category of one token of a phase name.
type LegKind int

const (
	KindEnd          LegKind = iota
	KindMajor                // P, S
	KindHead                 // Pn, Sn
	KindCrust                // Pg, Pb, Sg, Sb
	KindDiff                 // Pdiff, Sdiff
	KindUp                   // p, s
	KindOuterCore            // K
	KindOuterCoreUp          // k
	KindInnerCore            // I, J
	KindTopReflect           // m, c, i, vX
	KindUnderReflect         // ^X
	KindSurfaceWave          // 4.0kmps
	numKinds
)

var kindNames = [...]string{
	KindEnd:          "end",
	KindMajor:        "major",
	KindHead:         "head",
	KindCrust:        "crust",
	KindDiff:         "diffracted",
	KindUp:           "upgoing",
	KindOuterCore:    "outer core",
	KindOuterCoreUp:  "upgoing outer core",
	KindInnerCore:    "inner core",
	KindTopReflect:   "topside reflection",
	KindUnderReflect: "underside reflection",
	KindSurfaceWave:  "surface wave",
}

func (k LegKind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("LegKind(%d)", int(k))
}

// Boundary names the discontinuity a reflection token refers to.
type Boundary int

const (
	BoundaryNone Boundary = iota
	BoundaryMoho
	BoundaryCMB
	BoundaryIOCB
	BoundaryDepth
)

// EndToken terminates every tokenized phase name.
const EndToken = "END"

// Leg is one parsed token.
type Leg struct {
	Token    string
	Kind     LegKind
	Boundary Boundary
	// Depth is the requested reflector depth for BoundaryDepth.
	Depth float64
	// Velocity is the group velocity in km/s of a surface wave.
	Velocity float64
}

// Wave returns the wave type the leg travels as. ok is false for legs that
// take the wave type of the leg before them (K) or carry none.
func (l Leg) Wave() (w velocity.WaveType, ok bool) {
	switch l.Kind {
	case KindMajor, KindHead, KindCrust, KindDiff:
		if l.Token[0] == 'S' {
			return velocity.SWave, true
		}
		return velocity.PWave, true
	case KindUp:
		if l.Token == "s" {
			return velocity.SWave, true
		}
		return velocity.PWave, true
	case KindOuterCoreUp:
		return velocity.PWave, true
	case KindInnerCore:
		if l.Token == "J" {
			return velocity.SWave, true
		}
		return velocity.PWave, true
	}
	return velocity.PWave, false
}

// region of the planet a leg travels in.
type region int

const (
	regionNone region = iota
	regionMantle
	regionOuterCore
	regionInnerCore
)

func (l Leg) region() region {
	switch l.Kind {
	case KindMajor, KindHead, KindCrust, KindDiff, KindUp:
		return regionMantle
	case KindOuterCore, KindOuterCoreUp:
		return regionOuterCore
	case KindInnerCore:
		return regionInnerCore
	}
	return regionNone
}

func (l Leg) isReflection() bool {
	return l.Kind == KindTopReflect || l.Kind == KindUnderReflect
}

// Tokenize splits a phase name into leg tokens and appends END.
func Tokenize(name string) ([]string, error) {
	var tokens []string
	bad := func(i int, why string) error {
		return fmt.Errorf("%w: %q at offset %d: %s", ErrPhaseGrammar, name, i, why)
	}

	for i := 0; i < len(name); {
		c := name[i]
		switch {
		case strings.IndexByte("KIJkpsmci", c) >= 0:
			tokens = append(tokens, name[i:i+1])
			i++
		case c == 'P' || c == 'S':
			switch {
			case strings.HasPrefix(name[i+1:], "diff"):
				tokens = append(tokens, name[i:i+5])
				i += 5
			case i+1 < len(name) && strings.IndexByte("gbn", name[i+1]) >= 0:
				tokens = append(tokens, name[i:i+2])
				i += 2
			default:
				tokens = append(tokens, name[i:i+1])
				i++
			}
		case c == '^' || c == 'v':
			if i+1 >= len(name) {
				return nil, bad(i, "reflection without a boundary")
			}
			if strings.IndexByte("mci", name[i+1]) >= 0 {
				tokens = append(tokens, name[i:i+2])
				i += 2
				continue
			}
			n := numberLen(name[i+1:])
			if n == 0 {
				return nil, bad(i, "reflection boundary must be m, c, i or a depth")
			}
			tokens = append(tokens, name[i:i+1+n])
			i += 1 + n
		case isDigit(c) || c == '.':
			n := numberLen(name[i:])
			if !strings.HasPrefix(name[i+n:], "kmps") {
				return nil, bad(i, "a number must be a reflector depth or a kmps velocity")
			}
			tokens = append(tokens, name[i:i+n+4])
			i += n + 4
		default:
			return nil, bad(i, fmt.Sprintf("unknown character %q", c))
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty phase name", ErrPhaseGrammar)
	}
	return append(tokens, EndToken), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func numberLen(s string) int {
	n := 0
	for n < len(s) && (isDigit(s[n]) || s[n] == '.') {
		n++
	}
	return n
}

// classify turns a validated token into a Leg.
func classify(tok string) (Leg, error) {
	l := Leg{Token: tok}
	switch {
	case tok == EndToken:
		l.Kind = KindEnd
	case tok == "P" || tok == "S":
		l.Kind = KindMajor
	case tok == "Pn" || tok == "Sn":
		l.Kind = KindHead
	case tok == "Pg" || tok == "Pb" || tok == "Sg" || tok == "Sb":
		l.Kind = KindCrust
	case tok == "Pdiff" || tok == "Sdiff":
		l.Kind = KindDiff
	case tok == "p" || tok == "s":
		l.Kind = KindUp
	case tok == "K":
		l.Kind = KindOuterCore
	case tok == "k":
		l.Kind = KindOuterCoreUp
	case tok == "I" || tok == "J":
		l.Kind = KindInnerCore
	case tok == "m" || tok == "c" || tok == "i":
		l.Kind = KindTopReflect
		l.Boundary = namedBoundary(tok[0])
	case tok[0] == '^' || tok[0] == 'v':
		l.Kind = KindUnderReflect
		if tok[0] == 'v' {
			l.Kind = KindTopReflect
		}
		if b := namedBoundary(tok[1]); b != BoundaryNone && len(tok) == 2 {
			l.Boundary = b
			break
		}
		d, err := strconv.ParseFloat(tok[1:], 64)
		if err != nil || d < 0 {
			return l, fmt.Errorf("%w: bad reflector depth in %q", ErrPhaseGrammar, tok)
		}
		l.Boundary, l.Depth = BoundaryDepth, d
	case strings.HasSuffix(tok, "kmps"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "kmps"), 64)
		if err != nil || !(v > 0) {
			return l, fmt.Errorf("%w: bad surface wave velocity in %q", ErrPhaseGrammar, tok)
		}
		l.Kind, l.Velocity = KindSurfaceWave, v
	default:
		return l, fmt.Errorf("%w: unknown leg %q", ErrPhaseGrammar, tok)
	}
	return l, nil
}

func namedBoundary(c byte) Boundary {
	switch c {
	case 'm':
		return BoundaryMoho
	case 'c':
		return BoundaryCMB
	case 'i':
		return BoundaryIOCB
	}
	return BoundaryNone
}
