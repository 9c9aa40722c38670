package reward

import (
	"fmt"

	"bakimla-reward/pkg/celengine"
	"bakimla-reward/pkg/config"
	"bakimla-reward/services/appointment"

	"github.com/google/cel-go/cel"
)

// qualifierAttrs fixes the variables a qualifying rule may reference.
var qualifierAttrs = map[string]any{
	"status":         "",
	"payment_method": "",
	"price":          float64(0),
	"store_id":       "",
}

// Qualifier decides whether a completed appointment earns a reward.
type Qualifier struct {
	expr string
	prg  cel.Program
}

func NewQualifier(expr string) (*Qualifier, error) {
	if expr == "" {
		expr = config.DefaultQualifyingRule
	}

	env, err := celengine.GetOrBuildEnv(qualifierAttrs)
	if err != nil {
		return nil, fmt.Errorf("build rule env: %w", err)
	}

	prg, err := celengine.Compile(env, expr)
	if err != nil {
		return nil, fmt.Errorf("compile qualifying rule %q: %w", expr, err)
	}

	return &Qualifier{expr: expr, prg: prg}, nil
}

func (q *Qualifier) Qualifies(appt *appointment.Appointment) (bool, error) {
	return celengine.EvalBool(q.prg, map[string]any{
		"status":         string(appt.Status),
		"payment_method": string(appt.PaymentMethod),
		"price":          appt.Price.InexactFloat64(),
		"store_id":       appt.StoreID,
	})
}

func (q *Qualifier) String() string {
	return q.expr
}
