package bandit

import (
	"fmt"
	"math/rand/v2"

	"github.com/yungbote/contentselect/internal/config"
)

// NewActionPolicy instantiates the per-item policy named by pc. The
// contextual type is rejected here; it needs a dimension and goes
// through NewContextualPolicy.
func NewActionPolicy(pc config.PolicyConfig, src rand.Source) (ActionPolicy, error) {
	switch pc.Type {
	case config.PolicyBernoulliBetaTS:
		return NewBernoulliBetaTS(pc.Alpha0, pc.Beta0, src), nil
	case config.PolicyRandom:
		return NewRandom(src), nil
	case config.PolicyResourceOp:
		return NewResourceOptimal(pc.Preferences), nil
	case config.PolicyRecommendationOp:
		return NewRecommendationOptimal(pc.Preferences), nil
	default:
		return nil, fmt.Errorf("policy type %q is not an action policy", pc.Type)
	}
}

// NewContextualPolicy instantiates the feature-vector policy named by
// pc, sized to dim. PolicyNone yields (nil, nil): the caller runs
// without a contextual layer.
func NewContextualPolicy(pc config.PolicyConfig, dim int, src rand.Source) (ContextualPolicy, error) {
	switch pc.Type {
	case config.PolicyNone:
		return nil, nil
	case config.PolicyLogisticLaplace:
		discount := pc.Discount
		if discount == 0 {
			discount = 1
		}
		return NewLogisticLaplaceTS(dim, discount, src)
	default:
		return nil, fmt.Errorf("policy type %q is not a contextual policy", pc.Type)
	}
}
