package features

import "fmt"

// Base block names in output order. Hc (current-pillar score) exists in
// the schema but ships disabled; H carries all pillar scores.
var baseBlockOrder = []string{
	"D", "H", "Hc", "ND", "P", "MF", "TF", "IT", "NIT", "IF", "RF", "ER", "PR", "MS",
}

// Interaction terms, appended after the base blocks in this order.
var interactionOrder = []string{
	"MF_x_TF_sched",
	"MF_x_RF_sched",
	"MF_x_IF_sched",
	"NIT_x_IF_sched",
	"AGEc_x_RF_sched",
	"AGEc_x_IT",
	"Hc_x_RF_sched",
	"Hc_x_IT",
}

// Schema is the static description of the feature vector: which blocks
// and interactions are enabled plus the frequency caps that scale the
// counters. Output dimensionality is derivable from the schema alone.
type Schema struct {
	flags             map[string]bool
	maxPerMission     int
	maxSamePerMission int
}

func NewSchema(flags map[string]bool, maxPerMission, maxSamePerMission int) (*Schema, error) {
	known := map[string]bool{}
	for _, k := range baseBlockOrder {
		known[k] = true
	}
	for _, k := range interactionOrder {
		known[k] = true
	}
	for k := range flags {
		if !known[k] {
			return nil, fmt.Errorf("unknown feature flag %q", k)
		}
	}
	copied := make(map[string]bool, len(flags))
	for k, v := range flags {
		copied[k] = v
	}
	return &Schema{
		flags:             copied,
		maxPerMission:     maxPerMission,
		maxSamePerMission: maxSamePerMission,
	}, nil
}

func (s *Schema) enabled(key string) bool { return s.flags[key] }

func (s *Schema) blockLabels(key string) []string {
	switch key {
	case "D":
		labels := []string{"gender", "userAge", "education"}
		return append(labels, centerLevels()...)
	case "H":
		return append([]string{}, Pillars...)
	case "Hc":
		return []string{"hhs_current"}
	case "ND":
		return []string{"num_intervention_days"}
	case "P":
		labels := []string{}
		for _, p := range pillarLevels() {
			labels = append(labels, "pillar_"+p)
		}
		return labels
	case "MF":
		return []string{"mission_frequency"}
	case "TF":
		return []string{"TF_past", "TF_sched"}
	case "IT":
		labels := []string{}
		for _, t := range InterventionTypes {
			labels = append(labels, "IT_"+t)
		}
		return labels
	case "NIT":
		return []string{"num_int_types"}
	case "IF":
		return []string{"IF_past", "IF_sched"}
	case "RF":
		return []string{"RF_past", "RF_sched"}
	case "ER":
		return []string{"engagement_rate_past"}
	case "PR":
		return []string{"prompted"}
	case "MS":
		return []string{"prev_mission_score"}
	}
	return nil
}

func (s *Schema) interactionLabels(key string) []string {
	switch key {
	case "AGEc_x_IT":
		labels := []string{}
		for _, t := range InterventionTypes {
			labels = append(labels, "AGEc_x_IT_"+t)
		}
		return labels
	case "Hc_x_IT":
		labels := []string{}
		for _, t := range InterventionTypes {
			labels = append(labels, "Hc_x_IT_"+t)
		}
		return labels
	}
	return []string{key}
}

// Labels lists the vector coordinates in order, bias first. Used for
// audit records and to sanity-check Dim.
func (s *Schema) Labels() []string {
	labels := []string{"bias"}
	for _, key := range baseBlockOrder {
		if s.enabled(key) {
			labels = append(labels, s.blockLabels(key)...)
		}
	}
	for _, key := range interactionOrder {
		if s.enabled(key) {
			labels = append(labels, s.interactionLabels(key)...)
		}
	}
	return labels
}

// Dim is the output dimensionality including the bias term; it sizes
// the logistic policy's parameter vectors at startup.
func (s *Schema) Dim() int {
	return len(s.Labels())
}
