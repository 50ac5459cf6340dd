package phase

import "math"

// Arrival is one ray of a phase reaching a requested distance.
type Arrival struct {
	Name       string  `json:"phase"`
	PuristName string  `json:"purist_name"`
	Time       float64 `json:"time"`
	// Dist is the distance travelled in degrees, which exceeds 180 for rays
	// going the long way round or wrapping.
	Dist        float64 `json:"dist"`
	SearchDist  float64 `json:"search_dist"`
	RayParam    float64 `json:"ray_param"`
	SourceDepth float64 `json:"source_depth"`
	// TakeoffAngle and IncidentAngle are measured from vertically down at
	// the source and vertically up at the receiver, in degrees.
	TakeoffAngle  float64 `json:"takeoff_angle"`
	IncidentAngle float64 `json:"incident_angle"`
	// RayParamIndex is the curve sample at the start of the bracket.
	RayParamIndex int `json:"ray_param_index"`

	Pierce []PathPoint `json:"pierce,omitempty"`
	Path   []PathPoint `json:"path,omitempty"`
}

// RayParamDeg returns the ray parameter in s/deg.
func (a Arrival) RayParamDeg() float64 { return a.RayParam * math.Pi / 180 }

// DistRadians returns Dist in radians.
func (a Arrival) DistRadians() float64 { return a.Dist * math.Pi / 180 }

// PathPoint is a point along a ray. Dist is in degrees from the source.
type PathPoint struct {
	RayParam float64 `json:"p"`
	Time     float64 `json:"time"`
	Dist     float64 `json:"dist"`
	Depth    float64 `json:"depth"`
}
