// Package evaluation scores RAG answers from the criteria a judge model assigns to them.
package evaluation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/chunkrank/internal/models"
	"github.com/hyperjump/chunkrank/pkg/utils"
)

// MaxCriterion is the upper bound of every criterion.
const MaxCriterion = 100

// Weights of the answer score. Penalties apply to the shortfall from MaxCriterion.
type Weights struct {
	Accuracy             float64 `yaml:"accuracy"`              // default: 0.35
	Coverage             float64 `yaml:"coverage"`              // default: 0.20
	Clarity              float64 `yaml:"clarity"`               // default: 0.15
	Citations            float64 `yaml:"citations"`             // default: 0.20
	HallucinationPenalty float64 `yaml:"hallucination_penalty"` // default: 0.10
	SafetyPenalty        float64 `yaml:"safety_penalty"`        // default: 0.05
}

// DefaultWeights returns the default evaluation weights.
func DefaultWeights() *Weights {
	return &Weights{
		Accuracy:             0.35,
		Coverage:             0.20,
		Clarity:              0.15,
		Citations:            0.20,
		HallucinationPenalty: 0.10,
		SafetyPenalty:        0.05,
	}
}

// ApplyDefaults uses the default weights when none are set.
func (w *Weights) ApplyDefaults() {
	if *w == (Weights{}) {
		*w = *DefaultWeights()
	}
}

// Validate checks that no weight is negative.
func (w *Weights) Validate() error {
	for name, v := range map[string]float64{
		"accuracy":              w.Accuracy,
		"coverage":              w.Coverage,
		"clarity":               w.Clarity,
		"citations":             w.Citations,
		"hallucination_penalty": w.HallucinationPenalty,
		"safety_penalty":        w.SafetyPenalty,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: evaluation weight %s must be non-negative", models.ErrInvalidConfiguration, name)
		}
	}
	return nil
}

// Criteria are the judge's 0-100 grades of one answer. Hallucination is 100 when the answer
// invents nothing; Safety is 100 when it is entirely safe.
type Criteria struct {
	Accuracy      float64 `json:"accuracy"`
	Coverage      float64 `json:"coverage"`
	Clarity       float64 `json:"clarity"`
	Citations     float64 `json:"citations"`
	Hallucination float64 `json:"hallucination"`
	Safety        float64 `json:"safety"`
}

// Validate checks that every criterion lies in [0, MaxCriterion].
func (c Criteria) Validate() error {
	for _, f := range c.fields() {
		if math.IsNaN(f.value) || f.value < 0 || f.value > MaxCriterion {
			return fmt.Errorf("%w: criterion %s = %v outside [0, %d]", models.ErrInvalidArgument, f.name, f.value, MaxCriterion)
		}
	}
	return nil
}

type criterionField struct {
	name  string
	alias string
	value float64
}

func (c Criteria) fields() []criterionField {
	return []criterionField{
		{"accuracy", "exactitud", c.Accuracy},
		{"coverage", "cobertura", c.Coverage},
		{"clarity", "claridad", c.Clarity},
		{"citations", "citas", c.Citations},
		{"hallucination", "alucinacion", c.Hallucination},
		{"safety", "seguridad", c.Safety},
	}
}

// Scorer combines criteria into a single answer score.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer. A nil weights uses DefaultWeights.
func NewScorer(weights *Weights) (*Scorer, error) {
	w := *DefaultWeights()
	if weights != nil {
		w = *weights
		w.ApplyDefaults()
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the scorer weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score returns the weighted answer score rounded to 2 decimals. With the default weights
// a perfect answer scores 90 and the worst possible answer scores -15.
func (s *Scorer) Score(c Criteria) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	w := s.weights
	score := w.Accuracy*c.Accuracy +
		w.Coverage*c.Coverage +
		w.Clarity*c.Clarity +
		w.Citations*c.Citations -
		w.HallucinationPenalty*(MaxCriterion-c.Hallucination) -
		w.SafetyPenalty*(MaxCriterion-c.Safety)
	return utils.Round(score, 2), nil
}

// Average returns the per-criterion mean of cs, or zero criteria when cs is empty.
func Average(cs []Criteria) Criteria {
	var avg Criteria
	if len(cs) == 0 {
		return avg
	}
	for _, c := range cs {
		avg.Accuracy += c.Accuracy
		avg.Coverage += c.Coverage
		avg.Clarity += c.Clarity
		avg.Citations += c.Citations
		avg.Hallucination += c.Hallucination
		avg.Safety += c.Safety
	}
	n := float64(len(cs))
	avg.Accuracy /= n
	avg.Coverage /= n
	avg.Clarity /= n
	avg.Citations /= n
	avg.Hallucination /= n
	avg.Safety /= n
	return avg
}

// flatObject matches a JSON object without nested objects.
var flatObject = regexp.MustCompile(`(?s)\{[^{}]*\}`)

// ParseCriteria extracts criteria from a judge reply. The reply may wrap the JSON object in
// prose or a code fence; the first flat object is used. Keys are matched case-insensitively,
// in Spanish (exactitud, cobertura, claridad, citas, alucinacion, seguridad) or English.
// Returns an error wrapping models.ErrInvalidArgument when no object is found or a criterion
// is missing, non-numeric or out of range.
func ParseCriteria(text string) (Criteria, error) {
	obj := flatObject.FindString(text)
	if obj == "" {
		return Criteria{}, fmt.Errorf("%w: no JSON object in judge reply", models.ErrInvalidArgument)
	}
	var raw map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Criteria{}, fmt.Errorf("%w: decode judge reply: %v", models.ErrInvalidArgument, err)
	}
	values := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		values[strings.ToLower(strings.TrimSpace(k))] = v
	}

	var c Criteria
	targets := []*float64{&c.Accuracy, &c.Coverage, &c.Clarity, &c.Citations, &c.Hallucination, &c.Safety}
	for i, f := range c.fields() {
		v, ok := values[f.alias]
		if !ok {
			v, ok = values[f.name]
		}
		if !ok {
			return Criteria{}, fmt.Errorf("%w: missing criterion %s", models.ErrInvalidArgument, f.alias)
		}
		n, err := criterionValue(v)
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: criterion %s: %v", models.ErrInvalidArgument, f.alias, err)
		}
		*targets[i] = n
	}
	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

func criterionValue(v interface{}) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
