// Package features turns user, item and frequency state into the
// numeric vector consumed by the contextual bandit. Build is pure: the
// replay path recomputes vectors offline and must reproduce the live
// ones bit for bit.
package features

import "strconv"

// Pillars is the fixed behaviour-change domain vocabulary, in encoding
// order.
var Pillars = []string{
	"smoking",
	"alcohol",
	"nutrition",
	"physical_activity",
	"emotional_wellbeing",
}

// PillarsWithComponents lists the pillars whose assessments may carry a
// component breakdown.
var PillarsWithComponents = map[string]bool{
	"nutrition":           true,
	"emotional_wellbeing": true,
}

// InterventionTypes is the multi-label tag vocabulary for items, in
// encoding order.
var InterventionTypes = []string{
	"Education",
	"Enablement",
	"Environmental Restructuring",
	"Incentivisation",
	"Modelling",
	"Training",
	"Persuasion",
	"Restrictions",
}

// Reference-level categories dropped from one-hot encodings.
var (
	pillarLeaveOut = map[string]bool{"smoking": true}
	centerLeaveOut = map[string]bool{"IEO": true}
)

// Demographic vocabulary. Education maps to an ordinal in [0,1] after
// dropping the "other" level; gender maps through an explicit table.
var (
	recruitmentCenters = []string{"IEO", "ICO", "UMFCD", "UNIPA"}
	educationLevels    = []string{"no-education", "primary", "secondary", "vocational", "university", "postgraduate"}
	genderNumeric      = map[string]float64{"female": 0, "decline": 0.5, "other": 0.5, "male": 1}

	ageMin = 45.0
	ageMax = 80.0
)

// TypeMixture renormalizes an item's tag set into a weight vector over
// InterventionTypes. Unrecognized tags are ignored; no recognized tag
// yields the zero vector.
func TypeMixture(types []string) []float64 {
	mix := make([]float64, len(InterventionTypes))
	n := 0.0
	for _, t := range types {
		for i, known := range InterventionTypes {
			if t == known {
				mix[i] = 1
				n++
				break
			}
		}
	}
	if n == 0 {
		return mix
	}
	for i := range mix {
		mix[i] /= n
	}
	return mix
}

func recognizedTypeCount(types []string) int {
	n := 0
	for _, t := range types {
		for _, known := range InterventionTypes {
			if t == known {
				n++
				break
			}
		}
	}
	return n
}

func pillarLevels() []string {
	out := make([]string, 0, len(Pillars))
	for _, p := range Pillars {
		if !pillarLeaveOut[p] {
			out = append(out, p)
		}
	}
	return out
}

func centerLevels() []string {
	out := make([]string, 0, len(recruitmentCenters))
	for _, c := range recruitmentCenters {
		if !centerLeaveOut[c] {
			out = append(out, c)
		}
	}
	return out
}

// Key renders a vector as a structural map key so that two vectors
// computed independently compare by value.
func Key(vec []float64) string {
	buf := make([]byte, 0, len(vec)*8)
	for i, v := range vec {
		if i > 0 {
			buf = append(buf, '|')
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return string(buf)
}
