package pharm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRampProfile_Segments(t *testing.T) {
	profile := RampProfile{
		FirstDose:       1,
		SecondDose:      101,
		ThirdDose:       10,
		TransitionTimes: [2]int{250, 750},
		Ramp:            100,
	}

	curve, err := profile.Generate(1000)
	require.NoError(t, err)
	require.Len(t, curve, 1000)

	// initial hold
	assert.Equal(t, 1.0, curve[0])
	assert.Equal(t, 1.0, curve[199])

	// up-ramp: slope 1 per timestep, centered on the first transition
	assert.InDelta(t, 2.0, curve[200], 1e-9)
	assert.InDelta(t, 51.0, curve[249], 1e-9)
	assert.InDelta(t, 101.0, curve[299], 1e-9)

	// plateau at the second dose
	assert.Equal(t, 101.0, curve[300])
	assert.Equal(t, 101.0, curve[699])

	// step down to the third dose (the positive up-slope cannot descend)
	assert.Equal(t, 10.0, curve[700])
	assert.Equal(t, 10.0, curve[999])
}

func TestRampProfile_RampDownWhenThirdDoseAbovePlateau(t *testing.T) {
	profile := RampProfile{
		FirstDose:       0,
		SecondDose:      50,
		ThirdDose:       80,
		TransitionTimes: [2]int{100, 300},
		Ramp:            100,
	}

	curve, err := profile.Generate(400)
	require.NoError(t, err)

	// the second transition keeps ramping while below the third dose
	assert.InDelta(t, 50.5, curve[250], 1e-9)
	assert.InDelta(t, 75.0, curve[299], 1e-9)
	assert.Equal(t, 80.0, curve[350])
}

func TestRampProfile_EarlyFirstTransition(t *testing.T) {
	// the ramp window around the first transition starts before t=0; the
	// curve must ramp from the first dose immediately instead of panicking
	profile := RampProfile{
		FirstDose:       1,
		SecondDose:      50,
		ThirdDose:       10,
		TransitionTimes: [2]int{10, 300},
		Ramp:            40,
	}

	curve, err := profile.Generate(400)
	require.NoError(t, err)
	require.Len(t, curve, 400)

	// slope 49/40 per timestep from the first dose, truncated window
	assert.InDelta(t, 2.225, curve[0], 1e-9)
	assert.InDelta(t, 37.75, curve[29], 1e-9)
	assert.Equal(t, 50.0, curve[30])
	assert.Equal(t, 50.0, curve[279])
	assert.Equal(t, 10.0, curve[280])
	assert.Equal(t, 10.0, curve[399])
}

func TestRampProfile_Validation(t *testing.T) {
	_, err := RampProfile{TransitionTimes: [2]int{100, 300}}.Generate(400)
	assert.Error(t, err, "ramp width must be positive")

	_, err = RampProfile{Ramp: 100, TransitionTimes: [2]int{300, 100}}.Generate(400)
	assert.Error(t, err, "transition times must be increasing")
}
