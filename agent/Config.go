package agent

// Config represents a configuration for creating an agent
type Config interface {
	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error
}

// PolicyType represents a type of distribution that a policy could be
type PolicyType string

const (
	Gaussian    PolicyType = "gaussian"
	Categorical PolicyType = "categorical"
)

// Valid returns whether the PolicyType is a known policy type
func (p PolicyType) Valid() bool {
	return p == Gaussian || p == Categorical
}
