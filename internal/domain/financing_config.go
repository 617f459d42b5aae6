package domain

// Defaults for FinancingConfig
const (
	DefaultMaxTermMonths        = 120
	DefaultFirstDueOffsetMonths = 0
	DefaultSimulationListLimit  = 5
	MaxSimulationListLimit      = 50
	DefaultApplicationListLimit = 50
	MaxNoteLength               = 4000
	MaxRejectionReasonLength    = 2000
	MaxPlanNameLength           = 100
)

// FinancingConfig is the explicit configuration threaded into the calculation
// and plan services. It replaces any process-wide settings singleton.
type FinancingConfig struct {
	// MaxTermMonths caps plan max_term and bounds schedule length.
	MaxTermMonths int
	// FirstDueOffsetMonths is the number of months between start date and the
	// first due date. Zero means the first installment is due on the start date.
	FirstDueOffsetMonths int
	// SimulationListLimit is the default page size for a user's simulations.
	SimulationListLimit int
}

// DefaultFinancingConfig returns the production defaults
func DefaultFinancingConfig() FinancingConfig {
	return FinancingConfig{
		MaxTermMonths:        DefaultMaxTermMonths,
		FirstDueOffsetMonths: DefaultFirstDueOffsetMonths,
		SimulationListLimit:  DefaultSimulationListLimit,
	}
}

// Normalize fills zero or out-of-range values with defaults.
func (c FinancingConfig) Normalize() FinancingConfig {
	if c.MaxTermMonths <= 0 {
		c.MaxTermMonths = DefaultMaxTermMonths
	}
	if c.FirstDueOffsetMonths < 0 {
		c.FirstDueOffsetMonths = DefaultFirstDueOffsetMonths
	}
	if c.SimulationListLimit <= 0 || c.SimulationListLimit > MaxSimulationListLimit {
		c.SimulationListLimit = DefaultSimulationListLimit
	}
	return c
}
