package features

// Demographics holds the static user attributes. Absent or
// unrecognized values fall back to the neutral midpoint or the zero
// vector; Build never fails on user data.
type Demographics struct {
	Gender            string
	Age               *float64
	Education         string
	RecruitmentCenter string
}

// UserContext is the user-side input to Build. Past frequencies are
// computed by the caller over the relevant window; DaysInProgram is -1
// when the intervention has not started.
type UserContext struct {
	Demographics     Demographics
	HealthScores     map[string]float64 // pillar -> score in [0,100]
	DaysInProgram    int
	TotalPast        float64
	EngagementRate   float64
	PrevMissionScore float64
}

// ItemContext is the candidate-item-side input to Build.
type ItemContext struct {
	ID                     string
	Types                  []string
	Pillar                 string
	MissionWeeklyFrequency float64
	TypePast               float64
	ItemPast               float64
}

// Offsets are the in-slate frequency counters: items already chosen in
// the current slate-generation call, before anything is delivered.
type Offsets struct {
	Total   float64
	PerType map[string]float64
	PerItem map[string]int
}

func NewOffsets() Offsets {
	return Offsets{PerType: map[string]float64{}, PerItem: map[string]int{}}
}

// TypeScheduled is the mixture-weighted scheduled count for an item's
// tag set: dot(mixture, per-type counters).
func (o Offsets) TypeScheduled(types []string) float64 {
	mix := TypeMixture(types)
	sum := 0.0
	for i, t := range InterventionTypes {
		sum += mix[i] * o.PerType[t]
	}
	return sum
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// encodeFrequency clips to [min,max] and min-max normalizes.
func encodeFrequency(v, min, max float64) float64 {
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return (v - min) / (max - min)
}

func oneHot(value string, levels []string) []float64 {
	out := make([]float64, len(levels))
	for i, l := range levels {
		if value == l {
			out[i] = 1
		}
	}
	return out
}

func encodeDemographics(d Demographics) []float64 {
	out := make([]float64, 0, 3+len(centerLevels()))

	gender := 0.5
	if v, ok := genderNumeric[d.Gender]; ok {
		gender = v
	}
	out = append(out, gender)

	age := 0.5
	if d.Age != nil {
		age = clip01((*d.Age - ageMin) / (ageMax - ageMin))
	}
	out = append(out, age)

	education := 0.5
	for i, l := range educationLevels {
		if d.Education == l {
			education = float64(i) / float64(len(educationLevels)-1)
			break
		}
	}
	out = append(out, education)

	// Unknown centers encode as all zeros (reference level included).
	return append(out, oneHot(d.RecruitmentCenter, centerLevels())...)
}

func encodeHealthScores(scores map[string]float64) []float64 {
	out := make([]float64, len(Pillars))
	for i, p := range Pillars {
		v, ok := scores[p]
		if !ok {
			v = 50
		}
		out[i] = v / 100.0
	}
	return out
}

func encodeDays(days int) float64 {
	if days < 0 {
		return 0
	}
	return clip01(float64(days) / 84.0)
}

// Build produces the feature vector: bias, enabled base blocks in
// schema order, then enabled interaction terms. Pure by construction.
func (s *Schema) Build(u UserContext, item ItemContext, off Offsets, prompted bool) []float64 {
	totalCapPast := float64(s.maxPerMission)
	totalCapSched := float64(s.maxPerMission - 1)
	itemCapPast := float64(s.maxSamePerMission)
	itemCapSched := float64(s.maxSamePerMission - 1)

	d := encodeDemographics(u.Demographics)
	h := encodeHealthScores(u.HealthScores)

	hc := 0.5
	for i, p := range Pillars {
		if p == item.Pillar {
			hc = h[i]
			break
		}
	}

	mix := TypeMixture(item.Types)
	typeSched := off.TypeScheduled(item.Types)

	tfPast := encodeFrequency(u.TotalPast, 0, totalCapPast)
	tfSched := encodeFrequency(off.Total, 0, totalCapSched)
	ifPast := encodeFrequency(item.TypePast, 0, totalCapPast)
	ifSched := encodeFrequency(typeSched, 0, totalCapSched)
	rfPast := encodeFrequency(item.ItemPast, 0, itemCapPast)
	rfSched := encodeFrequency(float64(off.PerItem[item.ID]), 0, itemCapSched)

	mf := encodeFrequency(item.MissionWeeklyFrequency, 1, 7)
	nit := float64(recognizedTypeCount(item.Types)) / float64(len(InterventionTypes))

	pr := 0.0
	if prompted {
		pr = 1.0
	}

	vec := make([]float64, 0, s.Dim())
	vec = append(vec, 1) // bias

	for _, key := range baseBlockOrder {
		if !s.enabled(key) {
			continue
		}
		switch key {
		case "D":
			vec = append(vec, d...)
		case "H":
			vec = append(vec, h...)
		case "Hc":
			vec = append(vec, hc)
		case "ND":
			vec = append(vec, encodeDays(u.DaysInProgram))
		case "P":
			vec = append(vec, oneHot(item.Pillar, pillarLevels())...)
		case "MF":
			vec = append(vec, mf)
		case "TF":
			vec = append(vec, tfPast, tfSched)
		case "IT":
			vec = append(vec, mix...)
		case "NIT":
			vec = append(vec, nit)
		case "IF":
			vec = append(vec, ifPast, ifSched)
		case "RF":
			vec = append(vec, rfPast, rfSched)
		case "ER":
			vec = append(vec, clip01(u.EngagementRate))
		case "PR":
			vec = append(vec, pr)
		case "MS":
			vec = append(vec, clip01(u.PrevMissionScore))
		}
	}

	ageCentered := d[1] - 0.5
	hcCentered := hc - 0.5

	for _, key := range interactionOrder {
		if !s.enabled(key) {
			continue
		}
		switch key {
		case "MF_x_TF_sched":
			vec = append(vec, mf*tfSched)
		case "MF_x_RF_sched":
			vec = append(vec, mf*rfSched)
		case "MF_x_IF_sched":
			vec = append(vec, mf*ifSched)
		case "NIT_x_IF_sched":
			vec = append(vec, nit*ifSched)
		case "AGEc_x_RF_sched":
			vec = append(vec, ageCentered*rfSched)
		case "AGEc_x_IT":
			for _, w := range mix {
				vec = append(vec, ageCentered*w)
			}
		case "Hc_x_RF_sched":
			vec = append(vec, hcCentered*rfSched)
		case "Hc_x_IT":
			for _, w := range mix {
				vec = append(vec, hcCentered*w)
			}
		}
	}

	return vec
}
