package hostrt

import (
	"math"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// MathSqrt implements Viper.Math.Sqrt.
func (r *Runtime) MathSqrt(v rtval.Value) (rtval.Value, error) {
	return rtval.Float(il.F64, math.Sqrt(v.F)), nil
}

// MathPow implements Viper.Math.Pow.
func (r *Runtime) MathPow(a, b rtval.Value) (rtval.Value, error) {
	return rtval.Float(il.F64, math.Pow(a.F, b.F)), nil
}

// MathFloor implements Viper.Math.Floor.
func (r *Runtime) MathFloor(v rtval.Value) (rtval.Value, error) {
	return rtval.Float(il.F64, math.Floor(v.F)), nil
}

// MathCeil implements Viper.Math.Ceil.
func (r *Runtime) MathCeil(v rtval.Value) (rtval.Value, error) {
	return rtval.Float(il.F64, math.Ceil(v.F)), nil
}
