package forecast

import "math"

// LinearGlide interpolates from start to end over total periods and holds at
// end afterwards. total <= 0 means the glide is already complete.
func LinearGlide(start, end float64, step, total int) float64 {
	if total <= 0 {
		return end
	}
	if step <= 0 {
		return start
	}
	if step >= total {
		return end
	}
	return start + (end-start)*float64(step)/float64(total)
}

// QuarterlyRate converts an annualized growth rate to its per-quarter
// compounding equivalent: (1+g)^(1/4) - 1.
func QuarterlyRate(annual float64) float64 {
	return math.Pow(1+annual, 0.25) - 1
}

// GrowthCurve glides an annualized revenue growth rate from a start value to
// a floor over a decay horizon, then holds flat at the floor.
type GrowthCurve struct {
	Start         float64
	Floor         float64
	DecayQuarters int
}

// Rate returns the annualized growth rate for 0-based forecast quarter q.
func (c GrowthCurve) Rate(q int) float64 {
	return LinearGlide(c.Start, c.Floor, q, c.DecayQuarters)
}

// QuarterlyRate returns the per-quarter multiplier minus one for quarter q.
func (c GrowthCurve) QuarterlyRate(q int) float64 {
	return QuarterlyRate(c.Rate(q))
}

// MarginGlide moves gross margin from the seeded current value toward the
// target over the glide horizon, then holds.
type MarginGlide struct {
	Start         float64
	Target        float64
	GlideQuarters int
}

// Margin returns the gross margin fraction for quarter q.
func (m MarginGlide) Margin(q int) float64 {
	return LinearGlide(m.Start, m.Target, q, m.GlideQuarters)
}

// BlendRamp ramps the driver-revenue blend weight linearly from the start
// weight to the end weight, then holds at the end weight.
type BlendRamp struct {
	StartWeight  float64
	EndWeight    float64
	RampQuarters int
}

// Weight returns the driver blend weight for quarter q, in [0,1].
func (b BlendRamp) Weight(q int) float64 {
	return LinearGlide(b.StartWeight, b.EndWeight, q, b.RampQuarters)
}
