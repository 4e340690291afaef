package nutrition

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Activity is an exercise type.
type Activity string

const (
	Running  Activity = "Running"
	Swimming Activity = "Swimming"
	Cycling  Activity = "Cycling"
	Walking  Activity = "Walking"
)

// Activities lists the exercises in display order.
var Activities = []Activity{Running, Swimming, Cycling, Walking}

const (
	defaultSpeedKmh  = 5.0
	overweightBMI    = 25
	overweightFactor = 0.9
	olderAge         = 40
	olderFactor      = 0.95
	minutesPerHour   = 60
	roundingDecimals = 2
)

var baseSpeedKmh = map[Activity]float64{
	Running:  9,
	Swimming: 3,
	Cycling:  15,
	Walking:  5,
}

var kcalPerMinute = map[Activity]float64{
	Running:  10,
	Swimming: 14,
	Cycling:  8,
	Walking:  4,
}

// ParseActivity matches an exercise name case-insensitively.
func ParseActivity(s string) (Activity, error) {
	for _, a := range Activities {
		if strings.EqualFold(strings.TrimSpace(s), string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: activity %q", ErrInvalidInput, s)
}

// Exercise is how long and how far to go to burn a calorie amount.
type Exercise struct {
	Activity   Activity `json:"activity" yaml:"activity"`
	TimeMin    int      `json:"time_min" yaml:"timeMin"`
	DistanceKm float64  `json:"distance_km" yaml:"distanceKm"`
	SpeedKmh   float64  `json:"speed_kmh" yaml:"speedKmh"`
}

// round2 rounds the exact binary value of v to 2 decimals, so 2.565
// (stored just below) becomes 2.56.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', roundingDecimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// EstimateSpeed returns the speed in km/h for activity, reduced 10% for
// BMI over 25 and a further 5% for age over 40. Unknown activities use 5 km/h.
func EstimateSpeed(activity Activity, bmi, age float64) float64 {
	speed, ok := baseSpeedKmh[activity]
	if !ok {
		speed = defaultSpeedKmh
	}
	if bmi > overweightBMI {
		speed *= overweightFactor
	}
	if age > olderAge {
		speed *= olderFactor
	}
	return round2(speed)
}

// ExerciseForCalories returns, per activity, the time and distance needed
// to burn calories.
func ExerciseForCalories(calories, bmi, age float64) map[Activity]Exercise {
	out := make(map[Activity]Exercise, len(Activities))
	for _, a := range Activities {
		minutes := calories / kcalPerMinute[a]
		speed := EstimateSpeed(a, bmi, age)
		out[a] = Exercise{
			Activity:   a,
			TimeMin:    int(math.RoundToEven(minutes)),
			DistanceKm: round2(minutes / minutesPerHour * speed),
			SpeedKmh:   speed,
		}
	}
	return out
}

// ExerciseList returns ExerciseForCalories in Activities order.
func ExerciseList(calories, bmi, age float64) []Exercise {
	m := ExerciseForCalories(calories, bmi, age)
	list := make([]Exercise, 0, len(m))
	for _, a := range Activities {
		list = append(list, m[a])
	}
	return list
}
