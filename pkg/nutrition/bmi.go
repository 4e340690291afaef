package nutrition

import "fmt"

const (
	minHeightCm = 50
	maxHeightCm = 250
	minWeightKg = 10
	maxWeightKg = 400
)

// BMI expects height in centimeters and weight in kilograms.
func BMI(heightCm, weightKg float64) (float64, error) {
	if !(heightCm > 0) || !(weightKg > 0) {
		return 0, fmt.Errorf("%w: height and weight must be positive", ErrInvalidInput)
	}
	if heightCm < minHeightCm || heightCm > maxHeightCm || weightKg < minWeightKg || weightKg > maxWeightKg {
		return 0, fmt.Errorf("%w: height/weight out of plausible range", ErrInvalidInput)
	}

	h := heightCm / 100
	return weightKg / (h * h), nil
}

// BMICategory returns the WHO category label for bmi.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25.0:
		return "Normal weight"
	case bmi < 30.0:
		return "Overweight"
	case bmi < 35.0:
		return "Obesity class I"
	case bmi < 40.0:
		return "Obesity class II"
	default:
		return "Obesity class III"
	}
}
