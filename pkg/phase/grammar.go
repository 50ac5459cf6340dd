package phase

import (
	"fmt"
	"slices"
	"strings"
)

var (
	openingLegs       = []string{"P", "S", "p", "s", "Pg", "Pb", "Pn", "Pdiff", "Sg", "Sb", "Sn", "Sdiff"}
	expertOpeningLegs = []string{"K", "k", "I"}
)

// Validate checks a tokenized phase name against the phase grammar. It
// returns a description of the first violation found, or "" if the legs are
// acceptable. Expert mode widens the set of legs a phase may open with.
func Validate(legs []string, expert bool) string {
	if len(legs) == 0 {
		return "phase has no legs"
	}
	for i, leg := range legs[:len(legs)-1] {
		if leg == EndToken {
			return fmt.Sprintf("leg %q follows %s", legs[i+1], EndToken)
		}
	}
	if legs[len(legs)-1] != EndToken {
		return fmt.Sprintf("last leg must be %s, not %q", EndToken, legs[len(legs)-1])
	}

	// Diffracted and surface waves may stand alone.
	if len(legs) == 2 && (legs[0] == "Pdiff" || legs[0] == "Sdiff" || strings.HasSuffix(legs[0], "kmps")) {
		return ""
	}
	for _, leg := range legs {
		if strings.HasSuffix(leg, "kmps") {
			return fmt.Sprintf("surface wave %q cannot be combined with other legs", leg)
		}
	}

	if !slices.Contains(openingLegs, legs[0]) && !(expert && slices.Contains(expertOpeningLegs, legs[0])) {
		allowed := openingLegs
		if expert {
			allowed = append(append([]string(nil), openingLegs...), expertOpeningLegs...)
		}
		return fmt.Sprintf("first leg %q must be one of %s", legs[0], strings.Join(allowed, ","))
	}

	for i := 0; i+1 < len(legs); i++ {
		cur, next := legs[i], legs[i+1]
		switch {
		case isReflectionToken(cur) && isReflectionToken(next):
			return fmt.Sprintf("two reflections %q and %q with no leg between them", cur, next)
		case isMantleToken(cur) && isInnerCoreToken(next), isInnerCoreToken(cur) && isMantleToken(next):
			return fmt.Sprintf("%q cannot be adjacent to %q", cur, next)
		case cur == "m" && next == "K", cur == "K" && next == "m":
			return fmt.Sprintf("%q cannot be adjacent to %q", cur, next)
		}
	}
	return ""
}

// Parse tokenizes and validates a phase name.
func Parse(name string, expert bool) ([]Leg, error) {
	tokens, err := Tokenize(name)
	if err != nil {
		return nil, err
	}
	if msg := Validate(tokens, expert); msg != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrPhaseGrammar, name, msg)
	}
	legs := make([]Leg, len(tokens))
	for i, tok := range tokens {
		if legs[i], err = classify(tok); err != nil {
			return nil, err
		}
	}
	return legs, nil
}

func isReflectionToken(tok string) bool {
	switch {
	case tok == "m" || tok == "c" || tok == "i":
		return true
	case len(tok) > 1 && (tok[0] == '^' || tok[0] == 'v'):
		return true
	}
	return false
}

func isMantleToken(tok string) bool {
	return tok == "p" || tok == "s" || tok == "P" || tok == "S" || slices.Contains(openingLegs, tok)
}

func isInnerCoreToken(tok string) bool {
	return tok == "I" || tok == "J" || tok == "i"
}
