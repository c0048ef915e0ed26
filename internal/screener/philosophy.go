package screener

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/eddy-labs/stocks-cli/internal/model"
)

// Weights are the composite-score weights. They must sum to 1.
type Weights struct {
	Value     float64 `yaml:"value"`
	Quality   float64 `yaml:"quality"`
	Growth    float64 `yaml:"growth"`
	Stability float64 `yaml:"stability"`
}

// DefaultWeights is the baseline 0.4/0.3/0.2/0.1 split.
func DefaultWeights() Weights {
	return Weights{Value: 0.4, Quality: 0.3, Growth: 0.2, Stability: 0.1}
}

// Validate checks every rule and reports all violations in one message.
func (w Weights) Validate() error {
	var errs []string

	components := []struct {
		name  string
		value float64
	}{
		{"value", w.Value},
		{"quality", w.Quality},
		{"growth", w.Growth},
		{"stability", w.Stability},
	}
	for _, c := range components {
		if c.value < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0, got %.3f", c.name, c.value))
		}
	}

	sum := w.Value + w.Quality + w.Growth + w.Stability
	if math.Abs(sum-1) > 1e-6 {
		errs = append(errs, fmt.Sprintf("weights must sum to 1, got %.3f", sum))
	}

	if len(errs) > 0 {
		return eris.Errorf("screener: weight validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Philosophy bundles the screening weights and default valuation
// assumptions for one investment approach, plus the copy surfaced by the
// dashboard collaborator.
type Philosophy struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Weights     Weights              `yaml:"weights"`
	Assumptions model.DcfAssumptions `yaml:"assumptions"`
	KeyMetrics  []string             `yaml:"key_metrics"`
	Warnings    []string             `yaml:"warnings"`
}

// DefaultPhilosophyKey selects the approach used when none is configured.
const DefaultPhilosophyKey = "long-term-value"

// BuiltIn returns the built-in philosophies keyed by their selector name.
func BuiltIn() map[string]Philosophy {
	return map[string]Philosophy{
		"long-term-value": {
			Name: "Long-term Value/DCF",
			Description: "Focuses on intrinsic value via discounted cash flow. Works best for " +
				"companies with stable, positive free cash flow and predictable growth trajectories.",
			Weights:     DefaultWeights(),
			Assumptions: model.DefaultAssumptions(),
			KeyMetrics:  []string{"Fair value per share (DCF)", "Discount to fair value", "FCF growth"},
			Warnings: []string{
				"High leverage or negative cash flow reduces reliability.",
				"Results are sensitive to discount/growth rate assumptions.",
			},
		},
		"dividend-income": {
			Name: "Dividend/Income",
			Description: "Targets predictable cash distributions today, favoring balance-sheet " +
				"strength and payout safety over growth.",
			Weights: Weights{Value: 0.35, Quality: 0.25, Growth: 0.10, Stability: 0.30},
			Assumptions: model.DcfAssumptions{
				DiscountRate: 0.09, GrowthRate: 0.02, TerminalGrowthRate: 0.015, ProjectionYears: 5,
			},
			KeyMetrics: []string{"Stability percentile", "Debt-to-equity", "Discount to fair value"},
			Warnings: []string{
				"Yield spikes can signal distress rather than opportunity.",
			},
		},
		"garp": {
			Name: "Growth-at-a-Reasonable-Price",
			Description: "Seeks companies with durable growth that still trade below intrinsic " +
				"value when factoring growth and profitability.",
			Weights: Weights{Value: 0.30, Quality: 0.25, Growth: 0.35, Stability: 0.10},
			Assumptions: model.DcfAssumptions{
				DiscountRate: 0.11, GrowthRate: 0.06, TerminalGrowthRate: 0.025, ProjectionYears: 7,
			},
			KeyMetrics: []string{"Revenue growth percentile", "ROE percentile", "DCF-implied discount"},
			Warnings: []string{
				"Growth estimates rely on trailing data, not analyst forecasts.",
				"Normalizes by percentile, so thin universes can distort ranks.",
			},
		},
	}
}

// philosophyFile is the yaml shape for user-supplied philosophy overrides.
type philosophyFile struct {
	Philosophies map[string]Philosophy `yaml:"philosophies"`
}

// LoadPhilosophies merges user-defined philosophies from a yaml file over
// the built-ins. An empty path returns the built-ins untouched.
func LoadPhilosophies(path string) (map[string]Philosophy, error) {
	phils := BuiltIn()
	if path == "" {
		return phils, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "screener: read philosophy file %s", path)
	}

	var file philosophyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, eris.Wrapf(err, "screener: parse philosophy file %s", path)
	}

	for key, p := range file.Philosophies {
		if err := p.Weights.Validate(); err != nil {
			return nil, eris.Wrapf(err, "screener: philosophy %q", key)
		}
		phils[key] = p
	}
	return phils, nil
}

// GetPhilosophy looks up a philosophy by key, falling back to the default
// approach for unknown names.
func GetPhilosophy(phils map[string]Philosophy, key string) Philosophy {
	if p, ok := phils[key]; ok {
		return p
	}
	return phils[DefaultPhilosophyKey]
}

// PhilosophyKeys returns the selector names in stable order.
func PhilosophyKeys(phils map[string]Philosophy) []string {
	keys := make([]string, 0, len(phils))
	for k := range phils {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
