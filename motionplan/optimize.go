package motionplan

// optimizeWaypoints greedily shortcuts a path: from each kept waypoint it jumps to the farthest later
// waypoint with a free straight segment. Endpoints are kept and the result never has more points than
// the input.
func (mp *RRTPlanner) optimizeWaypoints(waypoints Waypoints) Waypoints {
	if len(waypoints) < 3 {
		return waypoints
	}
	for i := 1; i < len(waypoints); i++ {
		for _, o := range mp.observers {
			o.BeforeWaypointOptimization(waypoints[i-1], waypoints[i])
		}
	}

	optimized := Waypoints{waypoints[0]}
	for i := 0; i < len(waypoints)-1; {
		j := len(waypoints) - 1
		for ; j > i+1; j-- {
			if mp.checkPath(waypoints[i], waypoints[j]) {
				break
			}
		}
		optimized = append(optimized, waypoints[j])
		i = j
	}

	for i := 1; i < len(optimized); i++ {
		for _, o := range mp.observers {
			o.AfterWaypointOptimization(optimized[i-1], optimized[i])
		}
	}
	mp.logger.Debugw("optimized waypoints", "before", len(waypoints), "after", len(optimized))
	return optimized
}
