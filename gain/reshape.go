package gain

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// ReshapeFunc is a monotonic non-decreasing function applied to the raw weighted sum.
type ReshapeFunc func(float64) float64

// Identity returns x.
func Identity(x float64) float64 {
	return x
}

// SignedSquare is x*|x|, which spreads high gains apart and keeps the sign.
func SignedSquare(x float64) float64 {
	return x * math.Abs(x)
}

// SignedSqrt is sign(x)*sqrt(|x|).
func SignedSqrt(x float64) float64 {
	return math.Copysign(math.Sqrt(math.Abs(x)), x)
}

// Log1p is sign(x)*log(1+|x|).
func Log1p(x float64) float64 {
	return math.Copysign(math.Log1p(math.Abs(x)), x)
}

var reshapers = map[string]ReshapeFunc{
	"identity":      Identity,
	"signed_square": SignedSquare,
	"signed_sqrt":   SignedSqrt,
	"log1p":         Log1p,
}

// ReshapeByName looks up a named reshaping function. The empty name is identity.
func ReshapeByName(name string) (ReshapeFunc, error) {
	if name == "" {
		return Identity, nil
	}
	fn, ok := reshapers[name]
	if !ok {
		return nil, errors.Errorf("unknown reshape function %q, expected one of %v", name, ReshapeNames())
	}
	return fn, nil
}

// ReshapeNames returns the registered reshaping function names in sorted order.
func ReshapeNames() []string {
	names := make([]string, 0, len(reshapers))
	for name := range reshapers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
