package plume

import "github.com/akmonengine/plume/dtree"

// Config tunes the fattening heuristics of the underlying tree.
// The zero value selects the reference defaults.
type Config = dtree.Config

// DefaultConfig returns the reference tuning: a fixed margin of 0.1 world
// units and a displacement prediction multiplier of 2
func DefaultConfig() Config {
	return dtree.DefaultConfig()
}
