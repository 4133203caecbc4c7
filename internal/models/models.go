// Package models holds the model capability registry and the
// requirement-based resolver. Workflow authors describe what they
// need (context window, cost tier, latency) and resolution maps that
// onto a concrete model name.
package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CostTier classifies models by price.
type CostTier string

const (
	TierEconomy  CostTier = "economy"
	TierStandard CostTier = "standard"
	TierPremium  CostTier = "premium"
)

// SpeedTier classifies models by latency.
type SpeedTier string

const (
	SpeedFast       SpeedTier = "fast"
	SpeedStandard   SpeedTier = "standard"
	SpeedDeliberate SpeedTier = "deliberate"
)

// CapabilityClass classifies models by strength.
type CapabilityClass string

const (
	CapabilityCode      CapabilityClass = "code"
	CapabilityReasoning CapabilityClass = "reasoning"
	CapabilityGeneral   CapabilityClass = "general"
)

// ResolutionPolicy picks among candidates that satisfy all
// requirements.
type ResolutionPolicy string

const (
	PolicyCheapest        ResolutionPolicy = "cheapest"
	PolicyFastest         ResolutionPolicy = "fastest"
	PolicyBestFit         ResolutionPolicy = "best-fit"
	PolicyOperatorDefault ResolutionPolicy = "operator-default"
)

// ParsePolicy normalizes a policy string. Hyphens are optional.
func ParsePolicy(s string) (ResolutionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cheapest":
		return PolicyCheapest, nil
	case "fastest":
		return PolicyFastest, nil
	case "best-fit", "bestfit":
		return PolicyBestFit, nil
	case "operator-default", "operatordefault":
		return PolicyOperatorDefault, nil
	default:
		return "", fmt.Errorf("unknown resolution policy %q (valid: cheapest, fastest, best-fit, operator-default)", s)
	}
}

// Requirement is one hard constraint, e.g. context:50k or tier:standard.
type Requirement struct {
	Dimension string
	Value     string
}

var requirementDimensions = map[string]bool{
	"context":    true,
	"tier":       true,
	"speed":      true,
	"capability": true,
	"vendor":     true,
	"family":     true,
}

// ParseRequirement parses a "dimension:value" spec.
func ParseRequirement(spec string) (Requirement, error) {
	dim, val, ok := strings.Cut(spec, ":")
	if !ok {
		return Requirement{}, fmt.Errorf("invalid requirement format %q, expected dimension:value", spec)
	}
	dim = strings.ToLower(strings.TrimSpace(dim))
	val = strings.ToLower(strings.TrimSpace(val))
	if !requirementDimensions[dim] {
		return Requirement{}, fmt.Errorf("unknown requirement dimension %q", dim)
	}
	return Requirement{Dimension: dim, Value: val}, nil
}

func (r Requirement) String() string {
	return r.Dimension + ":" + r.Value
}

// Preference is a soft hint, e.g. vendor:anthropic. Candidates that
// match score higher but mismatches are not excluded.
type Preference struct {
	Dimension string
	Value     string
}

// ParsePreference parses a "dimension:value" preference. Only vendor
// and family are soft dimensions.
func ParsePreference(spec string) (Preference, error) {
	dim, val, ok := strings.Cut(spec, ":")
	if !ok {
		return Preference{}, fmt.Errorf("invalid preference format %q, expected dimension:value", spec)
	}
	dim = strings.ToLower(strings.TrimSpace(dim))
	val = strings.ToLower(strings.TrimSpace(val))
	if dim != "vendor" && dim != "family" {
		return Preference{}, fmt.Errorf("unknown preference dimension %q (valid: family, vendor)", dim)
	}
	return Preference{Dimension: dim, Value: val}, nil
}

func (p Preference) String() string {
	return p.Dimension + ":" + p.Value
}

// Requirements collects constraints, preferences, and the policy.
type Requirements struct {
	Requirements []Requirement
	Preferences  []Preference
	Policy       ResolutionPolicy
}

// AddRequirement parses and appends a requirement spec.
func (rs *Requirements) AddRequirement(spec string) error {
	req, err := ParseRequirement(spec)
	if err != nil {
		return err
	}
	rs.Requirements = append(rs.Requirements, req)
	return nil
}

// AddPreference parses and appends a preference spec.
func (rs *Requirements) AddPreference(spec string) error {
	pref, err := ParsePreference(spec)
	if err != nil {
		return err
	}
	rs.Preferences = append(rs.Preferences, pref)
	return nil
}

// SetPolicy parses and sets the resolution policy.
func (rs *Requirements) SetPolicy(s string) error {
	p, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	rs.Policy = p
	return nil
}

// IsEmpty reports whether nothing was requested.
func (rs *Requirements) IsEmpty() bool {
	return len(rs.Requirements) == 0 && len(rs.Preferences) == 0 &&
		(rs.Policy == "" || rs.Policy == PolicyBestFit)
}

func (rs *Requirements) String() string {
	var parts []string
	for _, r := range rs.Requirements {
		parts = append(parts, "requires "+r.String())
	}
	for _, p := range rs.Preferences {
		parts = append(parts, "prefers "+p.String())
	}
	if rs.Policy != "" && rs.Policy != PolicyBestFit {
		parts = append(parts, "policy="+string(rs.Policy))
	}
	if len(parts) == 0 {
		return "(no requirements)"
	}
	return strings.Join(parts, ", ")
}

// ContextRequirement returns the required context window in tokens,
// or 0 when unspecified.
func (rs *Requirements) ContextRequirement() int {
	for _, r := range rs.Requirements {
		if r.Dimension == "context" {
			n, err := ParseContextSize(r.Value)
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func (rs *Requirements) valueFor(dimension string) string {
	for _, r := range rs.Requirements {
		if r.Dimension == dimension {
			return r.Value
		}
	}
	return ""
}

// ParseContextSize parses sizes like 5k, 50k, 1m, or a raw number.
func ParseContextSize(value string) (int, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	mult := 1.0
	switch {
	case strings.HasSuffix(value, "k"):
		mult = 1_000
		value = strings.TrimSuffix(value, "k")
	case strings.HasSuffix(value, "m"):
		mult = 1_000_000
		value = strings.TrimSuffix(value, "m")
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid context size %q", value)
	}
	return int(f * mult), nil
}

// Capabilities describes one model in the registry.
type Capabilities struct {
	Context    int             `yaml:"context"`
	Tier       CostTier        `yaml:"tier"`
	Speed      SpeedTier       `yaml:"speed"`
	Capability CapabilityClass `yaml:"capability"`
	Vendor     string          `yaml:"vendor"`
	Family     string          `yaml:"family"`
}

// builtinCapabilities is the static registry. Operator configuration
// can extend or override it, see LoadOverrides.
var builtinCapabilities = map[string]Capabilities{
	"claude-opus-4": {
		Context: 200000, Tier: TierPremium, Speed: SpeedDeliberate,
		Capability: CapabilityReasoning, Vendor: "anthropic", Family: "claude",
	},
	"claude-sonnet-4": {
		Context: 200000, Tier: TierStandard, Speed: SpeedStandard,
		Capability: CapabilityGeneral, Vendor: "anthropic", Family: "claude",
	},
	"claude-haiku-3": {
		Context: 200000, Tier: TierEconomy, Speed: SpeedFast,
		Capability: CapabilityGeneral, Vendor: "anthropic", Family: "claude",
	},
	"gpt-4": {
		Context: 128000, Tier: TierStandard, Speed: SpeedStandard,
		Capability: CapabilityGeneral, Vendor: "openai", Family: "gpt",
	},
	"gpt-4-turbo": {
		Context: 128000, Tier: TierStandard, Speed: SpeedFast,
		Capability: CapabilityGeneral, Vendor: "openai", Family: "gpt",
	},
	"gpt-4o": {
		Context: 128000, Tier: TierStandard, Speed: SpeedFast,
		Capability: CapabilityGeneral, Vendor: "openai", Family: "gpt",
	},
	"gpt-4o-mini": {
		Context: 128000, Tier: TierEconomy, Speed: SpeedFast,
		Capability: CapabilityGeneral, Vendor: "openai", Family: "gpt",
	},
	"o1": {
		Context: 128000, Tier: TierPremium, Speed: SpeedDeliberate,
		Capability: CapabilityReasoning, Vendor: "openai", Family: "gpt",
	},
}

// Registry is a model capability table used for resolution.
type Registry struct {
	caps map[string]Capabilities
}

// NewRegistry returns a registry seeded with the builtin models.
func NewRegistry() *Registry {
	caps := make(map[string]Capabilities, len(builtinCapabilities))
	for name, c := range builtinCapabilities {
		caps[name] = c
	}
	return &Registry{caps: caps}
}

// Set adds or replaces one model's capabilities.
func (g *Registry) Set(name string, caps Capabilities) {
	g.caps[name] = caps
}

// Get returns a model's capabilities.
func (g *Registry) Get(name string) (Capabilities, bool) {
	c, ok := g.caps[name]
	return c, ok
}

// Names returns all registered model names, sorted.
func (g *Registry) Names() []string {
	names := make([]string, 0, len(g.caps))
	for name := range g.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps requirements onto a concrete model name. available
// restricts the candidate set; nil means the whole registry. fallback
// is returned when nothing matches or nothing was requested.
func (g *Registry) Resolve(rs *Requirements, available []string, fallback string) string {
	if rs == nil || rs.IsEmpty() {
		return fallback
	}
	if available == nil {
		available = g.Names()
	}

	contextReq := rs.ContextRequirement()
	tierReq := rs.valueFor("tier")
	speedReq := rs.valueFor("speed")
	capabilityReq := rs.valueFor("capability")

	var candidates []string
	for _, name := range available {
		caps, ok := g.caps[name]
		if !ok {
			continue
		}
		if contextReq > 0 && caps.Context < contextReq {
			continue
		}
		if tierReq != "" && string(caps.Tier) != tierReq {
			continue
		}
		if speedReq != "" && string(caps.Speed) != speedReq {
			continue
		}
		if capabilityReq != "" && string(caps.Capability) != capabilityReq {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return fallback
	}

	type scored struct {
		score int
		name  string
	}
	ranked := make([]scored, 0, len(candidates))
	for _, name := range candidates {
		caps := g.caps[name]
		score := 0
		for _, pref := range rs.Preferences {
			switch {
			case pref.Dimension == "vendor" && caps.Vendor == pref.Value:
				score += 10
			case pref.Dimension == "family" && caps.Family == pref.Value:
				score += 5
			}
		}
		ranked = append(ranked, scored{score: score, name: name})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})

	topScore := ranked[0].score
	var top []string
	for _, s := range ranked {
		if s.score == topScore {
			top = append(top, s.name)
		}
	}

	switch rs.Policy {
	case PolicyCheapest:
		for _, name := range top {
			if g.caps[name].Tier == TierEconomy {
				return name
			}
		}
		return top[0]
	case PolicyFastest:
		for _, name := range top {
			if g.caps[name].Speed == SpeedFast {
				return name
			}
		}
		return top[0]
	default:
		return ranked[0].name
	}
}
