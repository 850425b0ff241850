// Package methods classifies registration methods into display tiers.
//
// A method's tier is resolved once, either from the catalog or by a
// name-based fallback for methods the catalog does not list, and is then
// only used to pick line styles and draw order.
package methods

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Tier groups methods for presentation.
type Tier int

const (
	// Baseline covers statistical baselines such as mutual information.
	Baseline Tier = iota
	// Descriptor covers plain feature-based methods.
	Descriptor
	// Learned covers GAN-augmented and learned-representation methods.
	Learned
)

func (t Tier) String() string {
	switch t {
	case Baseline:
		return "baseline"
	case Descriptor:
		return "descriptor"
	case Learned:
		return "learned"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier parses the lower-case tier name.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "baseline":
		return Baseline, nil
	case "descriptor":
		return Descriptor, nil
	case "learned":
		return Learned, nil
	}
	return 0, fmt.Errorf("unknown method tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Method is a catalog entry.
type Method struct {
	Name string `json:"name"`
	Tier Tier   `json:"tier"`
}

// Catalog maps method names to their tier. It is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Method
}

// defaults lists the methods the evaluation pipeline ships with.
var defaults = []Method{
	{Name: "MI", Tier: Baseline},
	{Name: "CA", Tier: Baseline},
	{Name: "SIFT", Tier: Descriptor},
	{Name: "aAMD", Tier: Descriptor},
	{Name: "VXM", Tier: Learned},
	{Name: "comir", Tier: Learned},
}

// NewCatalog returns a catalog seeded with the default methods.
func NewCatalog() *Catalog {
	c := &Catalog{entries: make(map[string]Method, len(defaults))}
	for _, m := range defaults {
		c.entries[m.Name] = m
	}
	return c
}

// Set adds or overrides a catalog entry.
func (c *Catalog) Set(m Method) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[m.Name] = m
}

// Resolve returns the entry for name, classifying and caching names the
// catalog has not seen before.
func (c *Catalog) Resolve(name string) Method {
	c.mu.RLock()
	m, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return m
	}

	m = Method{Name: name, Tier: classify(name)}
	c.mu.Lock()
	if existing, ok := c.entries[name]; ok {
		m = existing
	} else {
		c.entries[name] = m
	}
	c.mu.Unlock()
	return m
}

// Methods returns every entry sorted by tier and then name.
func (c *Catalog) Methods() []Method {
	c.mu.RLock()
	out := make([]Method, 0, len(c.entries))
	for _, m := range c.entries {
		out = append(out, m)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// classify derives a tier from the method name. GAN variants carry their
// translation model after an underscore, e.g. "SIFT_cyc_A". Matching is
// case-sensitive and only the bare name "VXM" is Learned.
func classify(name string) Tier {
	switch {
	case strings.Contains(name, "MI"):
		return Baseline
	case name == "VXM",
		strings.Contains(name, "_"),
		strings.Contains(name, "comir"):
		return Learned
	default:
		return Descriptor
	}
}
