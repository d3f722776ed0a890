package config

import (
	"math"

	"github.com/golang/geo/r3"
)

// PlanResponse is the answer to one PlanRequest.
type PlanResponse struct {
	ID      string `json:"id"`
	Mode    Mode   `json:"mode"`
	Success bool   `json:"success"`
	// Waypoints lead from the start to the goal or chosen view. On failure they hold the best partial
	// path, which may be empty.
	Waypoints []Point `json:"waypoints"`
	// Smoothed holds the resampled spline when the request asked for one.
	Smoothed []Point `json:"smoothed,omitempty"`

	// FoundNBVWithSufficientGain and BestGain are only set in nbv mode.
	FoundNBVWithSufficientGain *bool    `json:"found_nbv_with_sufficient_gain,omitempty"`
	BestGain                   *float64 `json:"best_gain,omitempty"`

	Iterations     int    `json:"iterations"`
	MapUnavailable bool   `json:"map_unavailable,omitempty"`
	Error          string `json:"error,omitempty"`
}

// NewPlanResponse returns an unsuccessful response for req with no waypoints.
func NewPlanResponse(req *PlanRequest) *PlanResponse {
	return &PlanResponse{ID: req.ID, Mode: req.Mode, Waypoints: []Point{}}
}

// SetWaypoints stores the path.
func (r *PlanResponse) SetWaypoints(vs []r3.Vector) {
	r.Waypoints = PointsFromVectors(vs)
}

// SetGain records the nbv outcome. A gain that is not finite, such as when no view could be scored,
// is left out.
func (r *PlanResponse) SetGain(found bool, bestGain float64) {
	r.FoundNBVWithSufficientGain = &found
	if !math.IsNaN(bestGain) && !math.IsInf(bestGain, 0) {
		r.BestGain = &bestGain
	}
}
