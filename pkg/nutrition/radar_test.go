package nutrition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRadar(t *testing.T) {
	p := &Profile{
		Food:     "half of everything",
		FDCID:    9,
		Calories: 1000,
		Protein:  25,
		Fat:      39,
		Carbs:    150,
		Sugar:    25,
		Fiber:    14,
		Sodium:   1150,
	}

	r := Radar(p)
	require.NotNil(t, r)
	assert.Equal(t, "half of everything", r.Title)
	assert.Equal(t, Nutrients, r.Labels)
	require.Len(t, r.Values, 7)
	for _, v := range r.Values {
		assert.InDelta(t, 0.5, v, 0.0001)
	}

	require.Len(t, r.Points, 8)
	assert.Equal(t, r.Points[0], r.Points[7])
	assert.Zero(t, r.Points[0].Angle)
	assert.InDelta(t, 2*math.Pi/7, r.Points[1].Angle, 0.0001)
	assert.Equal(t, Sodium, r.Points[6].Label)
}

func TestRadar_Nil(t *testing.T) {
	assert.Nil(t, Radar(nil))
}
