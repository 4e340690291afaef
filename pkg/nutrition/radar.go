package nutrition

import "math"

// RadarPoint is one spoke of the chart.
type RadarPoint struct {
	Label Nutrient `json:"label" yaml:"label"`
	Value float64  `json:"value" yaml:"value"`
	Angle float64  `json:"angle" yaml:"angle"`
}

// RadarChart holds a profile normalized by daily values. Points repeats the
// first spoke at the end to close the shape.
type RadarChart struct {
	Title  string       `json:"title" yaml:"title"`
	FDCID  int64        `json:"fdc_id" yaml:"fdcId"`
	Labels []Nutrient   `json:"labels" yaml:"labels"`
	Values []float64    `json:"values" yaml:"values"`
	Points []RadarPoint `json:"points" yaml:"points"`
}

// Radar normalizes p by DailyValues over Nutrients.
func Radar(p *Profile) *RadarChart {
	if p == nil {
		return nil
	}

	n := len(Nutrients)
	r := &RadarChart{
		Title:  p.Food,
		FDCID:  p.FDCID,
		Labels: append([]Nutrient(nil), Nutrients...),
		Values: make([]float64, 0, n),
		Points: make([]RadarPoint, 0, n+1),
	}

	for i, l := range Nutrients {
		v := p.Value(l) / DailyValues[l]
		r.Values = append(r.Values, v)
		r.Points = append(r.Points, RadarPoint{
			Label: l,
			Value: v,
			Angle: 2 * math.Pi * float64(i) / float64(n),
		})
	}
	r.Points = append(r.Points, r.Points[0])

	return r
}
