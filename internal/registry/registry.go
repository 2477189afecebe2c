// Package registry holds the companies known to the scraper: ticker symbol,
// display name, and SEC CIK number. The registry is an explicit value loaded
// from a YAML file and passed to whoever needs it; mutations go back through
// Save rather than through shared state.
package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Company is one registry entry. CIK is kept as a string to preserve the
// leading zeros EDGAR URLs require.
type Company struct {
	Name string `yaml:"name"`
	CIK  string `yaml:"cik"`
}

// Registry maps ticker symbols to companies.
type Registry struct {
	Companies map[string]Company `yaml:"companies"`
}

// Default returns the built-in registry used when no file exists yet.
func Default() Registry {
	return Registry{Companies: map[string]Company{
		"GOOGL": {Name: "Alphabet Inc.", CIK: "0001652044"},
		"MSFT":  {Name: "Microsoft Corporation", CIK: "0000789019"},
		"NVDA":  {Name: "NVIDIA Corporation", CIK: "0001045810"},
	}}
}

// Load reads the registry from path. A missing file is not an error: the
// default registry is returned so first runs work without setup.
func Load(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Registry{}, fmt.Errorf("read registry: %w", err)
	}

	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Registry{}, fmt.Errorf("parse registry: %w", err)
	}
	if r.Companies == nil {
		r.Companies = make(map[string]Company)
	}
	return r, nil
}

// Save writes the registry back to path.
func (r Registry) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// Get looks up a company by symbol, case-insensitively.
func (r Registry) Get(symbol string) (Company, bool) {
	c, ok := r.Companies[strings.ToUpper(symbol)]
	return c, ok
}

// Add returns a copy of the registry with the company added or replaced.
func (r Registry) Add(symbol string, c Company) Registry {
	out := Registry{Companies: make(map[string]Company, len(r.Companies)+1)}
	for k, v := range r.Companies {
		out.Companies[k] = v
	}
	out.Companies[strings.ToUpper(symbol)] = c
	return out
}

// Symbols returns the registered symbols in sorted order.
func (r Registry) Symbols() []string {
	out := make([]string, 0, len(r.Companies))
	for s := range r.Companies {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
