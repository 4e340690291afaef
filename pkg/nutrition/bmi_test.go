package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBMI(t *testing.T) {
	got, err := BMI(170, 65)
	require.NoError(t, err)
	assert.InDelta(t, 22.49, got, 0.01)

	got, err = BMI(180, 81)
	require.NoError(t, err)
	assert.InDelta(t, 25, got, 0.0001)
}

func TestBMI_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		height float64
		weight float64
	}{
		{"zero height", 0, 70},
		{"negative weight", 170, -1},
		{"too tall", 300, 70},
		{"too light", 170, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BMI(tt.height, tt.weight)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestBMICategory(t *testing.T) {
	tests := []struct {
		bmi  float64
		want string
	}{
		{17, "Underweight"},
		{18.5, "Normal weight"},
		{24.9, "Normal weight"},
		{25, "Overweight"},
		{32, "Obesity class I"},
		{37, "Obesity class II"},
		{45, "Obesity class III"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BMICategory(tt.bmi))
	}
}
