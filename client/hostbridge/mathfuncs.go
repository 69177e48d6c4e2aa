package hostbridge

import (
	"math"

	"github.com/fabioarnold/blobbyvolley2/common/math32"
)

// mathFuncs maps import names to the libm functions the guest links
// against. Signatures follow C: the *f variants are float32, the rest
// float64, abs is int. float32 results are computed in float64 and rounded
// once. roundf rounds half away from zero and ldexp scales exactly.
var mathFuncs = map[string]any{
	"fmodf":  math32.Mod,
	"sinf":   math32.Sin,
	"cosf":   math32.Cos,
	"roundf": math32.Round,
	"expf":   math32.Exp,
	"fabs":   math.Abs,
	"abs":    absInt32,
	"sqrt":   math.Sqrt,
	"pow":    math.Pow,
	"ceil":   math.Ceil,
	"ldexp":  ldexp,
}

func absInt32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

func ldexp(x float64, exp int32) float64 {
	return math.Ldexp(x, int(exp))
}
