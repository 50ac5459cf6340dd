package slowness

import "fmt"

// DepthRange is either a high slowness zone, whose RayParam is the slowness
// at its lower boundary, or a fluid zone, whose RayParam is unused.
type DepthRange struct {
	TopDepth float64 `json:"top_depth"`
	BotDepth float64 `json:"bot_depth"`
	RayParam float64 `json:"ray_param"`
}

// Contains reports whether TopDepth <= depth <= BotDepth.
func (r DepthRange) Contains(depth float64) bool {
	return r.TopDepth <= depth && depth <= r.BotDepth
}

func (r DepthRange) String() string {
	return fmt.Sprintf("%.3f-%.3f km p=%.4f", r.TopDepth, r.BotDepth, r.RayParam)
}

// CriticalDepth is a discontinuity or local slowness extremum. Tau branch
// boundaries are exactly the critical depths. PLayerNum and SLayerNum index
// the first slowness sample at or below Depth, or the sample count at the
// centre.
type CriticalDepth struct {
	Depth       float64 `json:"depth"`
	VelLayerNum int     `json:"vel_layer_num"`
	PLayerNum   int     `json:"p_layer_num"`
	SLayerNum   int     `json:"s_layer_num"`
}
