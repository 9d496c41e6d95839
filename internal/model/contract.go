package model

// Context inputs are supplied by the run itself rather than by another node.
const (
	InputEntity   = "entity"
	InputAccounts = "accounts"
	InputPeriod   = "period"
	InputFXRates  = "fx_rates"
	InputRules    = "rules"
)

// ContextInputs lists the input keys every node can read without a producer.
var ContextInputs = []string{InputEntity, InputAccounts, InputPeriod, InputFXRates, InputRules}

// IsContextInput reports whether name is supplied by the run context.
func IsContextInput(name string) bool {
	for _, in := range ContextInputs {
		if in == name {
			return true
		}
	}
	return false
}

// Contract is the static input/output declaration of a node type, plus the
// display metadata the builder shows in its palette.
type Contract struct {
	Type        NodeType `json:"type"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Inputs      []string `json:"inputs"`
	Optional    []string `json:"optional_inputs,omitempty"`
	Outputs     []string `json:"outputs"`
}

// Produces reports whether the contract declares output name.
func (c Contract) Produces(name string) bool {
	for _, out := range c.Outputs {
		if out == name {
			return true
		}
	}
	return false
}

// Accepts reports whether name is a declared required or optional input.
func (c Contract) Accepts(name string) bool {
	for _, in := range c.Inputs {
		if in == name {
			return true
		}
	}
	for _, in := range c.Optional {
		if in == name {
			return true
		}
	}
	return false
}
