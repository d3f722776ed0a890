package config

import (
	"testing"

	"go.viam.com/test"
)

func TestSchemas(t *testing.T) {
	data, err := MarshalSchema(RequestSchema())
	test.That(t, err, test.ShouldBeNil)
	for _, field := range []string{
		"rrt_config", "nbv_config", "probability_of_testing_full_path_from_new_node_to_goal",
		"gain_of_interest_threshold", "depth_range", "spacing",
	} {
		test.That(t, string(data), test.ShouldContainSubstring, field)
	}

	data, err = MarshalSchema(ResponseSchema())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "found_nbv_with_sufficient_gain")
	test.That(t, string(data), test.ShouldContainSubstring, "waypoints")
}
