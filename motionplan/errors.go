package motionplan

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ErrMapUnavailable is matched by errors.Is on a failure of a run that started without any occupancy map.
var ErrMapUnavailable = errors.New("occupancy map unavailable")

var errPlannerFailed = errors.New("motion planner failed to find path")

// ConfigurationError is returned for a tuning parameter that is out of range. Values are never clamped.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func newConfigurationError(field string, value interface{}, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// PlanningFailure is returned when the iteration budget is exhausted or the run is cancelled. It
// carries the best partial result found so far.
type PlanningFailure struct {
	Iterations int
	// Partial is the path to the node nearest the goal, or to the best-gain node in next-best-view mode.
	Partial Waypoints
	// BestGain is the highest gain seen in next-best-view mode and NaN otherwise.
	BestGain float64
	// MapUnavailable is set when the run started without an occupancy map.
	MapUnavailable bool
	// Cause is set when the run was stopped early, such as by context cancellation.
	Cause error
}

func (e *PlanningFailure) Error() string {
	var sb strings.Builder
	sb.WriteString(errPlannerFailed.Error())
	fmt.Fprintf(&sb, " after %d iterations", e.Iterations)
	if !math.IsNaN(e.BestGain) && !math.IsInf(e.BestGain, 0) {
		fmt.Fprintf(&sb, ", best gain %.4f", e.BestGain)
	}
	if e.MapUnavailable {
		sb.WriteString(": ")
		sb.WriteString(ErrMapUnavailable.Error())
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the cause of an early stop.
func (e *PlanningFailure) Unwrap() error {
	return e.Cause
}

// Is matches ErrMapUnavailable when the run had no map.
func (e *PlanningFailure) Is(target error) bool {
	return target == ErrMapUnavailable && e.MapUnavailable
}
