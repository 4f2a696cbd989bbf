// Package config holds the static knobs of the selection engine: slate
// caps, business-rule item ids, feature-block toggles and bandit policy
// choices. Defaults match the pilot deployment; a YAML file pointed to
// by CS_CONFIG_FILE overlays them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/contentselect/internal/logger"
	"github.com/yungbote/contentselect/internal/utils"
)

const (
	RewardThumbs = "thumbs"
	RewardFloat  = "float"
)

// Policy type names accepted in PolicyConfig.Type.
const (
	PolicyBernoulliBetaTS  = "BernoulliBetaTS"
	PolicyLogisticLaplace  = "LogisticLaplaceTS"
	PolicyRandom           = "Random"
	PolicyRecommendationOp = "RecommendationOptimal"
	PolicyResourceOp       = "ResourceOptimal"
	PolicyNone             = "None"
)

type PolicyConfig struct {
	Type     string  `yaml:"type"`
	Alpha0   float64 `yaml:"alpha0"`
	Beta0    float64 `yaml:"beta0"`
	Discount float64 `yaml:"discount"`
	// Fixed preferences for the Optimal stand-ins.
	Preferences             map[string]float64 `yaml:"preferences"`
	InterventionPreferences []float64          `yaml:"intervention_preferences"`
}

type Config struct {
	RewardType string `yaml:"reward_type"`

	// Weekly slate caps.
	MaxSamePerMission     int `yaml:"max_same_per_mission"`
	MaxPerMission         int `yaml:"max_per_mission"`
	MinPerMission         int `yaml:"min_per_mission"`
	MaxDistinctPerMission int `yaml:"max_distinct_per_mission"`

	// MandatoryOnceID must be sent exactly once over the whole
	// intervention; the ExclusivePair items never share a mission.
	MandatoryOnceID string    `yaml:"mandatory_once_id"`
	ExclusivePair   [2]string `yaml:"exclusive_pair"`

	// SeasonalItems maps an item id to "winter" or "spring"; the item
	// is only offered while that season is current.
	SeasonalItems map[string]string `yaml:"seasonal_items"`

	BinderCapacity int `yaml:"binder_capacity"`

	// Feature-block and interaction toggles, keyed by schema block name.
	Features map[string]bool `yaml:"features"`

	ResourcePolicy       PolicyConfig `yaml:"resource_policy"`
	InterventionPolicy   PolicyConfig `yaml:"intervention_policy"`
	RecommendationPolicy PolicyConfig `yaml:"recommendation_policy"`
}

func Default() *Config {
	return &Config{
		RewardType:            RewardThumbs,
		MaxSamePerMission:     3,
		MaxPerMission:         10,
		MinPerMission:         3,
		MaxDistinctPerMission: 4,
		MandatoryOnceID:       "SRc52",
		ExclusivePair:         [2]string{"SRc100", "SRc101"},
		SeasonalItems: map[string]string{
			"ERc65":  "winter",
			"ERc66":  "winter",
			"ERc110": "spring",
		},
		BinderCapacity: 200000,
		Features: map[string]bool{
			"D":   true,
			"H":   true,
			"ND":  true,
			"P":   true,
			"MF":  true,
			"TF":  true,
			"IT":  true,
			"NIT": true,
			"IF":  true,
			"RF":  true,
			"ER":  false,
			"PR":  true,
			"MS":  false,

			"MF_x_TF_sched":   false,
			"MF_x_RF_sched":   true,
			"MF_x_IF_sched":   true,
			"NIT_x_IF_sched":  false,
			"AGEc_x_RF_sched": true,
			"AGEc_x_IT":       true,
			"Hc_x_RF_sched":   false,
			"Hc_x_IT":         false,
		},
		ResourcePolicy:       PolicyConfig{Type: PolicyBernoulliBetaTS, Alpha0: 1, Beta0: 1},
		InterventionPolicy:   PolicyConfig{Type: PolicyLogisticLaplace, Discount: 1},
		RecommendationPolicy: PolicyConfig{Type: PolicyBernoulliBetaTS, Alpha0: 1, Beta0: 1},
	}
}

// Load builds the effective config: defaults, then the optional YAML
// overlay named by CS_CONFIG_FILE, then a few env overrides.
func Load(log *logger.Logger) (*Config, error) {
	cfg := Default()

	if path := utils.GetEnv("CS_CONFIG_FILE", "", log); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config overlay", "path", path)
		}
	}

	cfg.RewardType = utils.GetEnv("CS_REWARD_TYPE", cfg.RewardType, log)
	cfg.BinderCapacity = utils.GetEnvAsInt("CS_BINDER_CAPACITY", cfg.BinderCapacity, log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.RewardType {
	case RewardThumbs, RewardFloat:
	default:
		return fmt.Errorf("unknown reward type %q", c.RewardType)
	}
	if c.MaxPerMission <= 0 || c.MaxSamePerMission <= 0 || c.MaxDistinctPerMission <= 0 {
		return fmt.Errorf("slate caps must be positive")
	}
	if c.MinPerMission < 0 || c.MinPerMission > c.MaxPerMission {
		return fmt.Errorf("min per mission %d out of range [0, %d]", c.MinPerMission, c.MaxPerMission)
	}
	if c.BinderCapacity <= 0 {
		return fmt.Errorf("binder capacity must be positive")
	}
	for _, pc := range []struct {
		name string
		cfg  PolicyConfig
	}{
		{"resource", c.ResourcePolicy},
		{"intervention", c.InterventionPolicy},
		{"recommendation", c.RecommendationPolicy},
	} {
		switch pc.cfg.Type {
		case PolicyBernoulliBetaTS, PolicyLogisticLaplace, PolicyRandom,
			PolicyRecommendationOp, PolicyResourceOp:
		case PolicyNone:
			if pc.name != "intervention" {
				return fmt.Errorf("%s policy cannot be %q", pc.name, PolicyNone)
			}
		default:
			return fmt.Errorf("unknown %s policy type %q", pc.name, pc.cfg.Type)
		}
		if pc.cfg.Type == PolicyBernoulliBetaTS && (pc.cfg.Alpha0 <= 0 || pc.cfg.Beta0 <= 0) {
			return fmt.Errorf("%s policy priors must be positive (alpha0=%v, beta0=%v)",
				pc.name, pc.cfg.Alpha0, pc.cfg.Beta0)
		}
	}
	return nil
}
