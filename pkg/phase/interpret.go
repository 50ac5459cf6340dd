package phase

import (
	"fmt"
	"math"

	"github.com/chrissnell/taup/pkg/tau"
	"github.com/chrissnell/taup/pkg/velocity"
)

// Action is what a ray does at the end of a run of branches.
type Action int

const (
	ActionNone Action = iota
	ActionTurn
	ActionReflectUnderside
	ActionReflectTopside
	ActionTransUp
	ActionTransDown
	ActionEnd
)

var actionNames = [...]string{"none", "turn", "reflect underside", "reflect topside", "transmit up", "transmit down", "end"}

func (a Action) String() string {
	if a >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Segment is one traversal of a tau branch.
type Segment struct {
	Branch int               `json:"branch"`
	Wave   velocity.WaveType `json:"wave"`
	Down   bool              `json:"down"`
	// Action is set on the last segment of each run.
	Action Action `json:"action"`
	// Head marks a segment after which the ray runs along the boundary
	// below it as a head or diffracted wave.
	Head bool `json:"head,omitempty"`
}

// interpreter walks a leg sequence against a tau model and accumulates the
// branch traversal and ray parameter bounds.
type interpreter struct {
	tMod     *tau.Model
	segments []Segment
	branch   int
	down     bool
	wave     velocity.WaveType
	action   Action
	minP     float64
	maxP     float64
	noRay    bool
}

// rule appends the branches for cur given its neighbours.
type rule func(it *interpreter, cur, next Leg) error

type legPair struct{ cur, next LegKind }

var toSurface = []LegKind{KindMajor, KindHead, KindCrust, KindDiff, KindEnd}

// transitions is the complete set of leg pairs with a ray interpretation.
// Pairs missing from the table are grammar errors.
var transitions = buildTransitions()

func buildTransitions() map[legPair]rule {
	t := map[legPair]rule{}
	set := func(cur LegKind, nexts []LegKind, r rule) {
		for _, n := range nexts {
			t[legPair{cur, n}] = r
		}
	}

	set(KindMajor, toSurface, turnThenSurface)
	set(KindMajor, []LegKind{KindTopReflect}, reflectTopside)
	set(KindMajor, []LegKind{KindUnderReflect}, reflectUnderside)
	set(KindMajor, []LegKind{KindOuterCore}, transDown)

	set(KindUp, toSurface, upToSurface)
	set(KindUp, []LegKind{KindUnderReflect}, reflectUnderside)

	set(KindHead, toSurface, headWave)
	set(KindDiff, toSurface, diffracted)
	set(KindCrust, toSurface, crustal)
	set(KindCrust, []LegKind{KindUnderReflect}, reflectUnderside)

	set(KindOuterCore, []LegKind{KindMajor}, transUp)
	set(KindOuterCore, []LegKind{KindOuterCore}, reflectInside)
	set(KindOuterCore, []LegKind{KindInnerCore}, transDown)
	set(KindOuterCore, []LegKind{KindTopReflect}, reflectTopside)
	set(KindOuterCore, []LegKind{KindUnderReflect}, reflectUnderside)

	set(KindOuterCoreUp, []LegKind{KindMajor}, transUp)
	set(KindOuterCoreUp, []LegKind{KindOuterCore}, reflectInside)
	set(KindOuterCoreUp, []LegKind{KindUnderReflect}, reflectUnderside)

	set(KindInnerCore, []LegKind{KindOuterCore}, transUp)
	set(KindInnerCore, []LegKind{KindInnerCore}, reflectInside)
	set(KindInnerCore, []LegKind{KindTopReflect}, reflectTopside)
	set(KindInnerCore, []LegKind{KindUnderReflect}, reflectUnderside)

	// Reflection tokens are consumed by the leg before them.
	all := make([]LegKind, 0, numKinds)
	for k := LegKind(0); k < numKinds; k++ {
		all = append(all, k)
	}
	set(KindTopReflect, all, nop)
	set(KindUnderReflect, all, nop)
	set(KindSurfaceWave, []LegKind{KindEnd}, nop)
	return t
}

func nop(*interpreter, Leg, Leg) error { return nil }

// interpret builds the traversal for legs.
func interpret(tMod *tau.Model, legs []Leg) (*interpreter, error) {
	it := &interpreter{tMod: tMod, maxP: -1, minP: -1}
	if legs[0].Kind == KindSurfaceWave {
		return it, nil
	}
	if !tMod.SlownessModel().Options().AllowInnerCoreS {
		for _, l := range legs {
			if l.Token == "J" {
				it.noRay = true
				return it, nil
			}
		}
	}

	first := legs[0]
	it.wave, _ = first.Wave()
	it.down = first.Kind != KindUp && first.Kind != KindOuterCoreUp
	src := tMod.SourceBranch()
	it.branch = src
	if !it.down {
		it.branch = src - 1
	}
	if src >= tMod.NumBranches() {
		it.noRay = true
		return it, nil
	}
	it.maxP = tMod.Branch(it.wave, src).MaxRayParam
	if src > 0 {
		it.maxP = math.Max(it.maxP, tMod.Branch(it.wave, src-1).MinTurnRayParam)
	}
	it.minP = 0

	for i := 0; i+1 < len(legs) && !it.noRay; i++ {
		cur, next := legs[i], legs[i+1]
		r, ok := transitions[legPair{cur.Kind, next.Kind}]
		if !ok {
			return nil, fmt.Errorf("%w: %q cannot be followed by %q", ErrPhaseGrammar, cur.Token, next.Token)
		}
		if w, ok := cur.Wave(); ok {
			if len(it.segments) > 0 && w != it.wave {
				if err := it.convert(w); err != nil {
					return nil, err
				}
			}
			it.wave = w
		}
		if err := r(it, cur, next); err != nil {
			return nil, err
		}
	}
	if it.noRay || it.maxP < 0 || it.minP > it.maxP {
		it.noRay = true
	}
	return it, nil
}

// branchOK reports whether i indexes a real branch.
func (it *interpreter) branchOK(i int) bool {
	return i >= 0 && i < it.tMod.NumBranches()
}

func (it *interpreter) br(i int) *tau.Branch { return it.tMod.Branch(it.wave, i) }

// add appends branches start through end and applies the end action to the
// ray parameter bounds.
func (it *interpreter) add(start, end int, action Action) {
	if it.noRay {
		return
	}
	var check int
	switch action {
	case ActionTransUp:
		check = end - 1
	case ActionTransDown:
		check = end + 1
	default:
		check = end
	}
	if !it.branchOK(end) || !it.branchOK(check) || !it.branchOK(start) {
		it.noRay = true
		return
	}

	var down bool
	offset := 0
	switch action {
	case ActionTurn:
		down = true
		it.minP = math.Max(it.minP, it.br(end).MinTurnRayParam)
	case ActionReflectUnderside, ActionEnd:
		it.maxP = math.Min(it.maxP, it.br(end).MaxRayParam)
	case ActionReflectTopside:
		down = true
		it.maxP = math.Min(it.maxP, it.br(end).MinTurnRayParam)
	case ActionTransUp:
		offset = -1
		it.maxP = math.Min(it.maxP, it.br(end-1).MinTurnRayParam)
	case ActionTransDown:
		down = true
		offset = 1
		it.maxP = math.Min(it.maxP, it.br(end+1).MaxRayParam)
	}

	if down && start > end || !down && start < end {
		it.noRay = true
		return
	}
	step := 1
	if !down {
		step = -1
	}
	for i := start; ; i += step {
		it.segments = append(it.segments, Segment{Branch: i, Wave: it.wave, Down: down})
		if i == end {
			break
		}
	}
	it.segments[len(it.segments)-1].Action = action
	it.action = action
	it.branch = end + offset
	it.down = action == ActionReflectUnderside || action == ActionTransDown
}

// convert tightens the bounds for a change of wave type at the end of the
// last run, since the ray must exist on both sides of the conversion.
func (it *interpreter) convert(to velocity.WaveType) error {
	from := it.wave
	b := it.segments[len(it.segments)-1].Branch
	get := func(w velocity.WaveType, i int) (*tau.Branch, bool) {
		if !it.branchOK(i) {
			return nil, false
		}
		return it.tMod.Branch(w, i), true
	}

	var x, y *tau.Branch
	var okx, oky bool
	switch it.action {
	case ActionReflectUnderside:
		x, okx = get(from, b)
		y, oky = get(to, b)
		if okx && oky {
			it.maxP = math.Min(it.maxP, math.Min(x.MaxRayParam, y.MaxRayParam))
		}
	case ActionReflectTopside:
		x, okx = get(from, b)
		y, oky = get(to, b)
		if okx && oky {
			it.maxP = math.Min(it.maxP, math.Min(x.MinTurnRayParam, y.MinTurnRayParam))
		}
	case ActionTransUp:
		x, okx = get(from, b)
		y, oky = get(to, b-1)
		if okx && oky {
			it.maxP = math.Min(it.maxP, math.Min(x.MaxRayParam, y.MinTurnRayParam))
		}
	case ActionTransDown:
		x, okx = get(from, b)
		y, oky = get(to, b+1)
		if okx && oky {
			it.maxP = math.Min(it.maxP, math.Min(x.MinTurnRayParam, y.MaxRayParam))
		}
	default:
		return fmt.Errorf("%w: cannot convert %v to %v after %v", ErrPhaseGrammar, from, to, it.action)
	}
	if !okx || !oky {
		it.noRay = true
	}
	return nil
}

// regionTop and regionBottom bound the branches a leg travels in.
func (it *interpreter) regionTop(r region) int {
	switch r {
	case regionOuterCore:
		return it.tMod.CMBBranch()
	case regionInnerCore:
		return it.tMod.IOCBBranch()
	}
	return 0
}

func (it *interpreter) regionBottom(r region) int {
	switch r {
	case regionMantle:
		return it.tMod.CMBBranch() - 1
	case regionOuterCore:
		return it.tMod.IOCBBranch() - 1
	}
	return it.tMod.NumBranches() - 1
}

// boundaryBranch resolves a reflection token to the branch below it.
func (it *interpreter) boundaryBranch(l Leg) int {
	switch l.Boundary {
	case BoundaryMoho:
		return it.tMod.MohoBranch()
	case BoundaryCMB:
		return it.tMod.CMBBranch()
	case BoundaryIOCB:
		return it.tMod.IOCBBranch()
	}
	return it.tMod.ClosestBranchToDepth(l.Depth)
}

func (it *interpreter) turnIfDown(r region) {
	if it.down {
		it.add(it.branch, it.regionBottom(r), ActionTurn)
	}
}

func (it *interpreter) surface(next Leg) {
	if next.Kind == KindEnd {
		it.add(it.branch, 0, ActionEnd)
		return
	}
	it.add(it.branch, 0, ActionReflectUnderside)
}

func turnThenSurface(it *interpreter, cur, next Leg) error {
	it.turnIfDown(cur.region())
	it.surface(next)
	return nil
}

func upToSurface(it *interpreter, _, next Leg) error {
	it.surface(next)
	return nil
}

func reflectTopside(it *interpreter, _, next Leg) error {
	if !it.down {
		it.noRay = true
		return nil
	}
	it.add(it.branch, it.boundaryBranch(next)-1, ActionReflectTopside)
	return nil
}

func reflectUnderside(it *interpreter, cur, next Leg) error {
	it.turnIfDown(cur.region())
	it.add(it.branch, it.boundaryBranch(next), ActionReflectUnderside)
	return nil
}

func transDown(it *interpreter, cur, _ Leg) error {
	if !it.down {
		it.noRay = true
		return nil
	}
	it.add(it.branch, it.regionBottom(cur.region()), ActionTransDown)
	return nil
}

func transUp(it *interpreter, cur, _ Leg) error {
	it.turnIfDown(cur.region())
	it.add(it.branch, it.regionTop(cur.region()), ActionTransUp)
	return nil
}

func reflectInside(it *interpreter, cur, _ Leg) error {
	it.turnIfDown(cur.region())
	it.add(it.branch, it.regionTop(cur.region()), ActionReflectUnderside)
	return nil
}

func crustal(it *interpreter, _, next Leg) error {
	moho := it.tMod.MohoBranch()
	if moho == 0 || it.branch >= moho {
		it.noRay = true
		return nil
	}
	if it.down {
		it.add(it.branch, moho-1, ActionTurn)
	}
	it.surface(next)
	return nil
}

// headWave travels along the top of the mantle at the slowness just below
// the Moho.
func headWave(it *interpreter, _, next Leg) error {
	moho := it.tMod.MohoBranch()
	if moho == 0 || !it.branchOK(moho) || !it.down {
		it.noRay = true
		return nil
	}
	return it.critical(it.br(moho).MaxRayParam, moho, next)
}

// diffracted travels along the bottom of the mantle at the slowness just
// above the core.
func diffracted(it *interpreter, _, next Leg) error {
	cmb := it.tMod.CMBBranch()
	if !it.branchOK(cmb) || !it.down {
		it.noRay = true
		return nil
	}
	return it.critical(it.br(cmb-1).MinTurnRayParam, cmb-1, next)
}

// critical forces a turn at branch end and pins the ray parameter to p.
func (it *interpreter) critical(p float64, end int, next Leg) error {
	if it.maxP < p || it.minP > p {
		it.noRay = true
		return nil
	}
	it.add(it.branch, end, ActionTurn)
	if it.noRay {
		return nil
	}
	it.segments[len(it.segments)-1].Head = true
	it.minP, it.maxP = p, p
	it.surface(next)
	return nil
}
