package agent

import (
	"fmt"
	"sort"
	"strings"
)

// Names of the diagnostics reported by policy and baseline updates
const (
	ActorLoss    = "Actor Loss"
	BaselineLoss = "Baseline Loss"
)

// Info holds named scalar diagnostics of an update, e.g. a loss.
type Info map[string]float64

// Merge copies all diagnostics of other into i, overwriting any
// diagnostics with the same name.
func (i Info) Merge(other Info) Info {
	if i == nil {
		i = make(Info, len(other))
	}
	for k, v := range other {
		i[k] = v
	}
	return i
}

// Get returns the named diagnostic and whether it exists
func (i Info) Get(name string) (float64, bool) {
	v, ok := i[name]
	return v, ok
}

// Keys returns the names of all diagnostics in sorted order
func (i Info) Keys() []string {
	keys := make([]string, 0, len(i))
	for k := range i {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String implements the fmt.Stringer interface. Diagnostics are
// printed in sorted order.
func (i Info) String() string {
	var b strings.Builder
	for j, k := range i.Keys() {
		if j > 0 {
			b.WriteString("  |  ")
		}
		fmt.Fprintf(&b, "%v: %.4f", k, i[k])
	}
	return b.String()
}
