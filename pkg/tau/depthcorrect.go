package tau

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrissnell/taup/pkg/slowness"
	"github.com/chrissnell/taup/pkg/velocity"
	"gonum.org/v1/gonum/floats"
)

// DepthCorrect returns a model for a source at depth. The receiver must be a
// surface-source model and is never modified; calling again with the same
// depth yields an identical model.
func (m *Model) DepthCorrect(depth float64) (*Model, error) {
	if !m.IsSurfaceSource() {
		return nil, fmt.Errorf("%w: model already corrected to %v km", ErrTauModel, m.sourceDepth)
	}
	if math.IsNaN(depth) || depth < 0 || depth > m.Radius() {
		return nil, fmt.Errorf("%w: source depth %v outside [0, %v]", ErrTauModel, depth, m.Radius())
	}
	for i, b := range m.branches[velocity.PWave] {
		if b.TopDepth == depth {
			return m.withSource(depth, i), nil
		}
	}
	if depth == m.Radius() {
		return m.withSource(depth, m.NumBranches()), nil
	}
	return m.splitBranch(depth)
}

func (m *Model) withSource(depth float64, branch int) *Model {
	c := *m
	c.sourceDepth = depth
	c.sourceBranch = branch
	c.noDisconDepths = append([]float64(nil), m.noDisconDepths...)
	return &c
}

// splitBranch first lets the slowness model cut its samples at depth, then
// inserts any new ray parameters into every branch and divides the branch
// containing depth. The deep half is the original minus the shallow half.
func (m *Model) splitBranch(depth float64) (*Model, error) {
	sMod := m.sMod
	var newPs []float64
	for _, w := range []velocity.WaveType{velocity.SWave, velocity.PWave} {
		res, err := sMod.SplitLayer(depth, w)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTauModel, err)
		}
		sMod = res.Model
		if res.Outcome == slowness.SplitNew {
			newPs = append(newPs, res.RayParam)
		}
		m.log.Debugw("split slowness for source", "wave", w, "depth", depth, "outcome", res.Outcome, "p", res.RayParam)
	}

	k, err := m.FindBranch(depth)
	if err != nil {
		return nil, err
	}
	rayParams, idx, fresh := mergeRayParams(m.rayParams, newPs)

	shift := func(i int) int {
		if i > k {
			return i + 1
		}
		return i
	}
	c := &Model{
		sMod:           sMod,
		rayParams:      rayParams,
		sourceDepth:    depth,
		sourceBranch:   k + 1,
		mohoBranch:     shift(m.mohoBranch),
		cmbBranch:      shift(m.cmbBranch),
		iocbBranch:     shift(m.iocbBranch),
		noDisconDepths: append(append([]float64(nil), m.noDisconDepths...), depth),
		log:            m.log,
	}

	for _, w := range waveTypes {
		bs := make([]*Branch, 0, m.NumBranches()+1)
		for i, b := range m.branches[w] {
			nb := b
			if len(fresh) > 0 {
				if nb, err = b.insertColumns(sMod, rayParams, idx, fresh); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrTauModel, err)
				}
			}
			if i != k {
				bs = append(bs, nb)
				continue
			}
			shallow, deep, err := divideBranch(sMod, nb, depth, rayParams, fresh)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrTauModel, err)
			}
			bs = append(bs, shallow, deep)
		}
		c.branches[w] = bs
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	m.log.Debugw("depth corrected tau model", "depth", depth, "source_branch", c.sourceBranch, "new_ray_params", len(fresh))
	return c, nil
}

func divideBranch(sMod *slowness.Model, orig *Branch, depth float64, rayParams []float64, fresh []int) (*Branch, *Branch, error) {
	shallow, err := newBranch(sMod, orig.WaveType, orig.TopDepth, depth, orig.MaxRayParam, rayParams)
	if err != nil {
		return nil, nil, err
	}
	deep := &Branch{
		WaveType:        orig.WaveType,
		TopDepth:        depth,
		BotDepth:        orig.BotDepth,
		MaxRayParam:     shallow.MinRayParam,
		MinTurnRayParam: orig.MinTurnRayParam,
		MinRayParam:     orig.MinRayParam,
	}
	n := len(rayParams)
	deep.Dist = floats.SubTo(make([]float64, n), orig.Dist, shallow.Dist)
	deep.Time = floats.SubTo(make([]float64, n), orig.Time, shallow.Time)
	deep.Tau = floats.SubTo(make([]float64, n), orig.Tau, shallow.Tau)
	for _, pos := range fresh {
		if err := deep.setColumn(sMod, pos, rayParams[pos]); err != nil {
			return nil, nil, err
		}
	}
	for i, p := range rayParams {
		if p > deep.MaxRayParam {
			deep.Dist[i], deep.Time[i], deep.Tau[i] = 0, 0, 0
		}
	}
	return shallow, deep, nil
}

// mergeRayParams inserts newPs into the decreasing array old. idx maps old
// positions to merged positions and fresh lists the inserted positions.
func mergeRayParams(old, newPs []float64) (merged []float64, idx, fresh []int) {
	var add []float64
	for _, p := range newPs {
		if containsFloat(old, p) || containsFloat(add, p) {
			continue
		}
		add = append(add, p)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(add)))

	merged = make([]float64, 0, len(old)+len(add))
	idx = make([]int, len(old))
	i, j := 0, 0
	for i < len(old) || j < len(add) {
		if j < len(add) && (i == len(old) || add[j] > old[i]) {
			fresh = append(fresh, len(merged))
			merged = append(merged, add[j])
			j++
			continue
		}
		idx[i] = len(merged)
		merged = append(merged, old[i])
		i++
	}
	return merged, idx, fresh
}

func containsFloat(xs []float64, x float64) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
