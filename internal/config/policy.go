package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"chat-gateway/internal/domain"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Policy is the declarative routing table: trigger phrases, the ordered
// domain keyword sets, ticker aliases, parameter profiles and model aliases.
type Policy struct {
	TriggerPhrases []string          `yaml:"trigger_phrases"`
	Domains        []DomainKeywords  `yaml:"domains"`
	Tickers        map[string]string `yaml:"tickers"`
	Profiles       Profiles          `yaml:"profiles"`
	ModelAliases   map[string]string `yaml:"model_aliases"`
}

// DomainKeywords binds a domain to the keywords that select it.
type DomainKeywords struct {
	Name     domain.Domain `yaml:"name"`
	Keywords []string      `yaml:"keywords"`
}

// Profiles holds the plain and browsing parameter profiles plus per-model
// overrides applied on top of either.
type Profiles struct {
	Plain    domain.Parameters        `yaml:"plain"`
	Browsing domain.Parameters        `yaml:"browsing"`
	Models   map[string]ModelOverride `yaml:"models"`
}

// ModelOverride replaces profile fields for one model, separately per mode.
type ModelOverride struct {
	Plain    ParamOverride `yaml:"plain"`
	Browsing ParamOverride `yaml:"browsing"`
}

// ParamOverride holds the fields that replace a profile's values when set.
type ParamOverride struct {
	Temperature     *float64 `yaml:"temperature"`
	MaxOutputTokens *int     `yaml:"max_output_tokens"`
	TopP            *float64 `yaml:"top_p"`
}

func (o ParamOverride) apply(p domain.Parameters) domain.Parameters {
	if o.Temperature != nil {
		p.Temperature = *o.Temperature
	}
	if o.MaxOutputTokens != nil {
		p.MaxOutputTokens = *o.MaxOutputTokens
	}
	if o.TopP != nil {
		p.TopP = *o.TopP
	}
	return p
}

// For returns the plain or browsing profile with model's override applied.
// The returned Tools slice is shared with the profile.
func (p Profiles) For(model string, browsing bool) domain.Parameters {
	o := p.Models[model]
	if browsing {
		return o.Browsing.apply(p.Browsing)
	}
	return o.Plain.apply(p.Plain)
}

// DefaultPolicy returns the embedded policy.
func DefaultPolicy() (Policy, error) {
	return ParsePolicy(defaultPolicy)
}

// LoadPolicy reads a policy file from disk and validates it.
func LoadPolicy(path string) (Policy, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Policy{}, fmt.Errorf("resolve policy path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file %q: %w", absPath, err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return Policy{}, fmt.Errorf("policy file %q: %w", absPath, err)
	}
	return p, nil
}

// ParsePolicy decodes YAML policy data and validates the result.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate performs strict sanity checks on the policy.
func (p Policy) Validate() error {
	if len(p.TriggerPhrases) == 0 {
		return fmt.Errorf("policy: at least one trigger phrase must be configured")
	}
	for _, phrase := range p.TriggerPhrases {
		if strings.TrimSpace(phrase) == "" {
			return fmt.Errorf("policy: trigger phrase must not be empty")
		}
	}

	seen := make(map[domain.Domain]bool, len(p.Domains))
	for _, d := range p.Domains {
		if !routableDomain(d.Name) {
			return fmt.Errorf("policy: domain %q is not routable", d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("policy: domain %q listed twice", d.Name)
		}
		seen[d.Name] = true
		if len(d.Keywords) == 0 {
			return fmt.Errorf("policy: domain %q has no keywords", d.Name)
		}
		for _, kw := range d.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("policy: domain %q has an empty keyword", d.Name)
			}
		}
	}

	for name, symbol := range p.Tickers {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(symbol) == "" {
			return fmt.Errorf("policy: ticker alias %q -> %q must not be empty", name, symbol)
		}
	}

	if err := validateProfiles("", p.Profiles.Plain, p.Profiles.Browsing); err != nil {
		return err
	}
	for model := range p.Profiles.Models {
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("policy: model override name must not be empty")
		}
		// Overrides must keep browsing at least as tight as plain.
		if err := validateProfiles("model "+model+" ", p.Profiles.For(model, false), p.Profiles.For(model, true)); err != nil {
			return err
		}
	}

	for alias, target := range p.ModelAliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("policy: model alias name must not be empty")
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("policy: model alias %q target must not be empty", alias)
		}
	}
	return nil
}

func validateProfiles(prefix string, plain, browsing domain.Parameters) error {
	if err := validateParameters(prefix+"plain", plain); err != nil {
		return err
	}
	if err := validateParameters(prefix+"browsing", browsing); err != nil {
		return err
	}
	if browsing.Temperature > plain.Temperature {
		return fmt.Errorf("policy: %sbrowsing temperature %.2f must not exceed plain temperature %.2f",
			prefix, browsing.Temperature, plain.Temperature)
	}
	if browsing.TopP > plain.TopP {
		return fmt.Errorf("policy: %sbrowsing top_p %.2f must not exceed plain top_p %.2f",
			prefix, browsing.TopP, plain.TopP)
	}
	return nil
}

func validateParameters(name string, p domain.Parameters) error {
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("policy: %s temperature must be within [0, 2], got %.2f", name, p.Temperature)
	}
	if p.TopP <= 0 || p.TopP > 1 {
		return fmt.Errorf("policy: %s top_p must be within (0, 1], got %.2f", name, p.TopP)
	}
	if p.MaxOutputTokens <= 0 {
		return fmt.Errorf("policy: %s max_output_tokens must be positive", name)
	}
	switch p.ToolChoice {
	case "", "none", "auto", "required":
	default:
		return fmt.Errorf("policy: %s tool_choice %q must be one of none, auto or required", name, p.ToolChoice)
	}
	return nil
}

func routableDomain(d domain.Domain) bool {
	switch d {
	case domain.DomainFinance, domain.DomainNews, domain.DomainSports, domain.DomainWeather, domain.DomainTech:
		return true
	default:
		return false
	}
}
