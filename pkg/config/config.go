// Package config holds the tunables that the analysis core would
// otherwise keep as process globals: thresholds, iteration counts,
// and per-run feature flags. Every other package receives a *Config
// explicitly rather than reading package-level state.
package config

// Config collects the knobs threaded through the Constructors factory,
// the per-function interpreter, and the inter-function driver.
type Config struct {
	// SetThreshold is the maximum number of concrete values an integer
	// Set domain tracks before collapsing to top.
	SetThreshold int

	// WideningThreshold is the number of times a basic block may be
	// revisited with join before the interpreter switches to widening.
	WideningThreshold int

	// StepBudget bounds the number of function-entry jobs the driver
	// will dequeue before stopping with partial results. Zero means
	// unbounded.
	StepBudget int

	// Workers is the number of goroutines the inter-function driver
	// uses to drain its worklist. Zero means runtime.NumCPU().
	Workers int

	// Verbose enables the REPL's terse fmt.Printf-style progress
	// lines; it does not affect the driver's structured logging.
	Verbose bool

	// EnabledIntegerDomains selects which of Set/Interval/Bits the
	// Constructors factory bundles into an integer container. All
	// three are included by default; tests often narrow this to
	// isolate one representation.
	EnabledIntegerDomains IntegerDomainSet
}

// IntegerDomainSet is a bitmask of integer representations.
type IntegerDomainSet int

const (
	DomainSet IntegerDomainSet = 1 << iota
	DomainInterval
	DomainBits
)

// AllIntegerDomains enables Set, Interval, and Bits.
const AllIntegerDomains = DomainSet | DomainInterval | DomainBits

// Default returns the configuration used when none is supplied.
func Default() *Config {
	return &Config{
		SetThreshold:          40,
		WideningThreshold:     5,
		StepBudget:            0,
		Workers:               0,
		Verbose:               false,
		EnabledIntegerDomains: AllIntegerDomains,
	}
}
