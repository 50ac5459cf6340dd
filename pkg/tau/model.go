// Package tau integrates a slowness model into tau branches: for every
// depth interval between critical depths, the distance, time and tau of rays
// at a shared set of ray parameters. A model for a buried source is derived
// from the surface-source model by DepthCorrect.
package tau

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/taup/pkg/slowness"
	"github.com/chrissnell/taup/pkg/velocity"
	"go.uber.org/zap"
)

var waveTypes = [...]velocity.WaveType{velocity.PWave, velocity.SWave}

// Model is an immutable tau model. Branch arrays may be shared between a
// surface model and models derived from it and must not be modified.
type Model struct {
	sMod         *slowness.Model
	rayParams    []float64
	branches     [2][]*Branch
	sourceDepth  float64
	sourceBranch int
	mohoBranch   int
	cmbBranch    int
	iocbBranch   int
	// depths that split a branch for a source rather than marking structure
	noDisconDepths []float64
	log            *zap.SugaredLogger
}

// Option configures New.
type Option func(*Model)

// WithLogger sets the logger used for construction summaries.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}

// New builds the surface-source tau model for sMod.
func New(sMod *slowness.Model, opts ...Option) (*Model, error) {
	if sMod == nil {
		return nil, fmt.Errorf("%w: nil slowness model", ErrTauModel)
	}
	m := &Model{sMod: sMod, log: sMod.Logger()}
	for _, o := range opts {
		o(m)
	}

	m.rayParams = surfaceRayParams(sMod)

	crit := sMod.CriticalDepths()
	var minP [2]float64
	for _, w := range waveTypes {
		minP[w] = sMod.Layer(0, w).TopP
	}
	for k := 0; k < len(crit)-1; k++ {
		top, bot := crit[k], crit[k+1]
		for _, w := range waveTypes {
			b, err := newBranch(sMod, w, top.Depth, bot.Depth, minP[w], m.rayParams)
			if err != nil {
				return nil, fmt.Errorf("%w: branch %d: %w", ErrTauModel, k, err)
			}
			m.branches[w] = append(m.branches[w], b)

			// the next maximum may sit just below a discontinuity into a high
			// slowness zone, so check both ends and the sample above the bottom
			topL := sMod.Layer(layerNum(top, w), w)
			botL := sMod.Layer(layerNum(bot, w)-1, w)
			minP[w] = math.Min(minP[w], math.Min(topL.TopP, botL.BotP))
			ia, err := sMod.LayerNumberAbove(bot.Depth, w)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrTauModel, err)
			}
			minP[w] = math.Min(minP[w], sMod.Layer(ia, w).BotP)
		}
	}

	vMod := sMod.VelocityModel()
	m.mohoBranch = m.closestBranchTop(vMod.MohoDepth)
	m.cmbBranch = m.closestBranchTop(vMod.CMBDepth)
	m.iocbBranch = m.closestBranchTop(vMod.IOCBDepth)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.log.Debugw("built tau model",
		"model", vMod.Name,
		"ray_params", len(m.rayParams),
		"branches", m.NumBranches(),
		"moho_branch", m.mohoBranch,
		"cmb_branch", m.cmbBranch,
		"iocb_branch", m.iocbBranch,
	)
	return m, nil
}

// surfaceRayParams takes every S sample bottom that lowers the running
// minimum slowness. S slowness exceeds P everywhere outside fluids and the
// P boundaries are already S boundaries, so P reuses the same array.
func surfaceRayParams(sMod *slowness.Model) []float64 {
	minP := sMod.Layer(0, velocity.SWave).TopP
	ps := []float64{minP}
	for i := 0; i < sMod.NumLayers(velocity.SWave); i++ {
		if p := sMod.Layer(i, velocity.SWave).BotP; p < minP {
			ps = append(ps, p)
			minP = p
		}
	}
	return ps
}

func layerNum(c slowness.CriticalDepth, w velocity.WaveType) int {
	if w == velocity.PWave {
		return c.PLayerNum
	}
	return c.SLayerNum
}

// closestBranchTop returns the branch whose top is nearest depth, or
// NumBranches when the centre is nearer.
func (m *Model) closestBranchTop(depth float64) int {
	best, bestDiff := 0, math.MaxFloat64
	for i, b := range m.branches[velocity.PWave] {
		if diff := math.Abs(b.TopDepth - depth); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if math.Abs(m.sMod.Radius()-depth) < bestDiff {
		return m.NumBranches()
	}
	return best
}

// ClosestBranchToDepth returns the branch whose top is the structural
// boundary nearest depth, ignoring depths added for a source.
func (m *Model) ClosestBranchToDepth(depth float64) int {
	best, bestDiff := 0, math.MaxFloat64
	for i, b := range m.branches[velocity.PWave] {
		if m.IsNoDisconDepth(b.TopDepth) {
			continue
		}
		if diff := math.Abs(b.TopDepth - depth); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if math.Abs(m.sMod.Radius()-depth) < bestDiff {
		return m.NumBranches()
	}
	return best
}

// FindBranch returns the branch with top <= depth < bot, or the last branch
// at the centre.
func (m *Model) FindBranch(depth float64) (int, error) {
	bs := m.branches[velocity.PWave]
	for i, b := range bs {
		if b.TopDepth <= depth && depth < b.BotDepth {
			return i, nil
		}
	}
	if n := len(bs); n > 0 && depth == bs[n-1].BotDepth {
		return n - 1, nil
	}
	return 0, fmt.Errorf("%w: no branch at depth %v", ErrTauModel, depth)
}

// Validate checks that ray parameters strictly decrease, P and S branches
// share boundaries, and each branch's minimum ray parameter is the next
// branch's maximum.
func (m *Model) Validate() error {
	var errs []error
	for i := 1; i < len(m.rayParams); i++ {
		if !(m.rayParams[i] < m.rayParams[i-1]) {
			errs = append(errs, fmt.Errorf("%w: ray parameters not decreasing at %d: %v >= %v",
				ErrTauModel, i, m.rayParams[i], m.rayParams[i-1]))
			break
		}
	}

	bp, bs := m.branches[velocity.PWave], m.branches[velocity.SWave]
	if len(bp) == 0 || len(bp) != len(bs) {
		return errors.Join(append(errs, fmt.Errorf("%w: %d P and %d S branches", ErrTauModel, len(bp), len(bs)))...)
	}
	for i := range bp {
		if bp[i].TopDepth != bs[i].TopDepth || bp[i].BotDepth != bs[i].BotDepth {
			errs = append(errs, fmt.Errorf("%w: P and S branch %d boundaries differ", ErrTauModel, i))
		}
	}
	for _, w := range waveTypes {
		for i, b := range m.branches[w] {
			if err := b.validate(len(m.rayParams)); err != nil {
				errs = append(errs, err)
			}
			if i == 0 {
				continue
			}
			prev := m.branches[w][i-1]
			if prev.BotDepth != b.TopDepth {
				errs = append(errs, fmt.Errorf("%w: %v branches %d and %d are not contiguous", ErrTauModel, w, i-1, i))
			}
			if prev.MinRayParam != b.MaxRayParam {
				errs = append(errs, fmt.Errorf("%w: %v branch %d min ray param %v != branch %d max %v",
					ErrTauModel, w, i-1, prev.MinRayParam, i, b.MaxRayParam))
			}
		}
	}
	if m.sourceBranch < 0 || m.sourceBranch > len(bp) {
		errs = append(errs, fmt.Errorf("%w: source branch %d out of range", ErrTauModel, m.sourceBranch))
	}
	return errors.Join(errs...)
}

// SlownessModel returns the slowness model the branches were integrated on.
func (m *Model) SlownessModel() *slowness.Model { return m.sMod }

// Radius returns the planet radius in km.
func (m *Model) Radius() float64 { return m.sMod.Radius() }

// Name returns the velocity model name.
func (m *Model) Name() string { return m.sMod.VelocityModel().Name }

// RayParams returns a copy of the shared ray parameter array, largest first.
func (m *Model) RayParams() []float64 { return append([]float64(nil), m.rayParams...) }

// NumRayParams returns the number of ray parameters.
func (m *Model) NumRayParams() int { return len(m.rayParams) }

// RayParam returns ray parameter i.
func (m *Model) RayParam(i int) float64 { return m.rayParams[i] }

// NumBranches returns the number of branches per wave type.
func (m *Model) NumBranches() int { return len(m.branches[velocity.PWave]) }

// Branch returns branch i for w. The result is shared and read-only.
func (m *Model) Branch(w velocity.WaveType, i int) *Branch { return m.branches[w][i] }

// SourceDepth returns the source depth this model was built for.
func (m *Model) SourceDepth() float64 { return m.sourceDepth }

// SourceBranch returns the branch whose top is the source depth.
func (m *Model) SourceBranch() int { return m.sourceBranch }

// MohoBranch returns the branch whose top is the Moho.
func (m *Model) MohoBranch() int { return m.mohoBranch }

// CMBBranch returns the branch whose top is the core-mantle boundary.
func (m *Model) CMBBranch() int { return m.cmbBranch }

// IOCBBranch returns the branch whose top is the inner core boundary.
func (m *Model) IOCBBranch() int { return m.iocbBranch }

// IsSurfaceSource reports whether the source is at the surface.
func (m *Model) IsSurfaceSource() bool { return m.sourceDepth == 0 }

// NoDisconDepths returns branch boundaries that exist only for a source.
func (m *Model) NoDisconDepths() []float64 {
	return append([]float64(nil), m.noDisconDepths...)
}

// IsNoDisconDepth reports whether depth is a source-only branch boundary.
func (m *Model) IsNoDisconDepth(depth float64) bool {
	for _, d := range m.noDisconDepths {
		if d == depth {
			return true
		}
	}
	return false
}

// Logger returns the model's logger.
func (m *Model) Logger() *zap.SugaredLogger { return m.log }
