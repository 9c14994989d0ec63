package criterion

import (
	"fmt"

	"github.com/kailas-cloud/drillscout/internal/domain"
)

// CalculationType selects how a criterion derives the observed value from assessment metrics.
type CalculationType string

const (
	// Absolute reads a single metric addressed by a dotted attribute path.
	Absolute CalculationType = "absolute"
	// KneeFlexionDelta is knee flexion at foot plant minus knee flexion at ball release.
	KneeFlexionDelta CalculationType = "custom_knee_flexion_delta"
)

// Metric paths used by KneeFlexionDelta.
const (
	KneeFlexionFootPlant   = "knee_flexion_fp"
	KneeFlexionBallRelease = "knee_flexion_br"
)

// Op is the comparison a drill applies against the observed value.
type Op string

const (
	// Above is met when observed > value.
	Above Op = "above"
	// Below is met when observed < value.
	Below Op = "below"
)

// Compare reports whether observed satisfies op against threshold.
func (o Op) Compare(observed, threshold float64) (bool, error) {
	switch o {
	case Above:
		return observed > threshold, nil
	case Below:
		return observed < threshold, nil
	default:
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownOperator, string(o))
	}
}

// Range is the valid value interval of a criterion.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Criterion is a named evaluation rule referenced by drills.
type Criterion struct {
	id          string
	name        string
	valueRange  Range
	calculation CalculationType
	attribute   string
}

// Reconstruct creates a Criterion without validation (storage hydration).
func Reconstruct(id, name string, r Range, calc CalculationType, attribute string) Criterion {
	return Criterion{id: id, name: name, valueRange: r, calculation: calc, attribute: attribute}
}

// ID returns the criterion identifier.
func (c *Criterion) ID() string { return c.id }

// Name returns the human-readable name.
func (c *Criterion) Name() string { return c.name }

// Range returns the valid value interval.
func (c *Criterion) Range() Range { return c.valueRange }

// Calculation returns the calculation type.
func (c *Criterion) Calculation() CalculationType { return c.calculation }

// Attribute returns the dotted metric path used by Absolute criteria.
func (c *Criterion) Attribute() string { return c.attribute }

// DrillCriterion is a drill's reference to a Criterion with its own threshold.
type DrillCriterion struct {
	RefID string
	Value float64
	Op    Op
}
