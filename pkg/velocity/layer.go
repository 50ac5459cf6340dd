package velocity

import "fmt"

// WaveType selects compressional or shear propagation.
type WaveType int

const (
	PWave WaveType = iota
	SWave
)

// String returns "P" or "S".
func (w WaveType) String() string {
	if w == PWave {
		return "P"
	}
	return "S"
}

// Other returns the opposite wave type.
func (w WaveType) Other() WaveType {
	if w == PWave {
		return SWave
	}
	return PWave
}

// Layer is one depth interval of a velocity model. Velocities are in km/s
// and vary linearly with depth between the top and bottom values.
type Layer struct {
	TopDepth     float64 `json:"top_depth" yaml:"top_depth"`
	BotDepth     float64 `json:"bot_depth" yaml:"bot_depth"`
	TopPVelocity float64 `json:"top_p_velocity" yaml:"top_p_velocity"`
	BotPVelocity float64 `json:"bot_p_velocity" yaml:"bot_p_velocity"`
	TopSVelocity float64 `json:"top_s_velocity" yaml:"top_s_velocity"`
	BotSVelocity float64 `json:"bot_s_velocity" yaml:"bot_s_velocity"`
}

// EvaluateAtTop returns the velocity at the top of the layer.
func (l Layer) EvaluateAtTop(w WaveType) float64 {
	if w == PWave {
		return l.TopPVelocity
	}
	return l.TopSVelocity
}

// EvaluateAtBottom returns the velocity at the bottom of the layer.
func (l Layer) EvaluateAtBottom(w WaveType) float64 {
	if w == PWave {
		return l.BotPVelocity
	}
	return l.BotSVelocity
}

// EvaluateAt linearly interpolates the velocity at depth, which must lie
// within the layer.
func (l Layer) EvaluateAt(depth float64, w WaveType) float64 {
	top := l.EvaluateAtTop(w)
	bot := l.EvaluateAtBottom(w)
	if l.BotDepth == l.TopDepth {
		return top
	}
	slope := (bot - top) / (l.BotDepth - l.TopDepth)
	return top + slope*(depth-l.TopDepth)
}

// Thickness returns BotDepth - TopDepth.
func (l Layer) Thickness() float64 {
	return l.BotDepth - l.TopDepth
}

// IsFluid reports whether the layer carries no shear waves.
func (l Layer) IsFluid() bool {
	return l.TopSVelocity == 0 && l.BotSVelocity == 0
}

func (l Layer) String() string {
	return fmt.Sprintf("%.3f-%.3f km  P %.4f-%.4f  S %.4f-%.4f",
		l.TopDepth, l.BotDepth, l.TopPVelocity, l.BotPVelocity, l.TopSVelocity, l.BotSVelocity)
}
