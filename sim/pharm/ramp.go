package pharm

import "fmt"

// RampProfile describes the three-segment ramp experiment: hold at FirstDose,
// ramp linearly to SecondDose around the first transition time, hold, ramp
// toward ThirdDose around the second transition time, hold. Ramp is the
// segment width in timesteps; each transition is centered on its configured
// timestep with a symmetric buffer of Ramp/2 on either side.
type RampProfile struct {
	FirstDose       float64
	SecondDose      float64
	ThirdDose       float64
	TransitionTimes [2]int
	Ramp            int
}

// Generate produces the ramp-up/ramp-down concentration curve.
func (r RampProfile) Generate(horizon int) ([]float64, error) {
	if r.Ramp <= 0 {
		return nil, fmt.Errorf("ramp width must be positive, got %d", r.Ramp)
	}
	if r.TransitionTimes[1] <= r.TransitionTimes[0] {
		return nil, fmt.Errorf("transition times must be increasing, got %v", r.TransitionTimes)
	}

	slope := (r.SecondDose - r.FirstDose) / float64(r.Ramp)
	buffer := float64(r.Ramp) / 2

	times := [4]float64{
		float64(r.TransitionTimes[0]) - buffer,
		float64(r.TransitionTimes[0]) + buffer,
		float64(r.TransitionTimes[1]) - buffer,
		float64(r.TransitionTimes[1]) + buffer,
	}

	curve := make([]float64, horizon)
	for t := 0; t < horizon; t++ {
		ft := float64(t)
		// an early transition can place the ramp window before t=0; the
		// value preceding the curve is the first-segment hold
		prev := r.FirstDose
		if t > 0 {
			prev = curve[t-1]
		}
		switch {
		case ft < times[0]:
			curve[t] = r.FirstDose
		case ft < times[1]:
			curve[t] = prev + slope
		case ft < times[2]:
			curve[t] = r.SecondDose
		case ft < times[3] && prev+slope < r.ThirdDose:
			curve[t] = prev + slope
		default:
			curve[t] = r.ThirdDose
		}
	}
	return curve, nil
}
