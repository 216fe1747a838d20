// Package promo validates promo codes against an ordered policy table.
package promo

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
)

//go:embed default_policy.yaml
var defaultPolicyYAML []byte

type RuleKind string

const (
	RuleExact   RuleKind = "exact"
	RulePattern RuleKind = "pattern"
	RuleSuffix  RuleKind = "suffix"
)

type Rule struct {
	Kind    RuleKind `yaml:"kind"`
	Code    string   `yaml:"code,omitempty"`
	Pattern string   `yaml:"pattern,omitempty"`
	Suffix  string   `yaml:"suffix,omitempty"`
	Name    string   `yaml:"name"`
	Value   int      `yaml:"value"`

	re *regexp.Regexp
}

func (r *Rule) matches(code string) bool {
	switch r.Kind {
	case RuleExact:
		return code == r.Code
	case RulePattern:
		return r.re.MatchString(code)
	case RuleSuffix:
		return strings.HasSuffix(code, r.Suffix)
	}
	return false
}

func (r *Rule) source() string {
	if r.Kind == RuleExact {
		return "fixed"
	}
	return "pattern"
}

// Policy is an ordered rule table; the first matching rule wins.
type Policy struct {
	Rules []Rule `yaml:"rules"`
}

type Result struct {
	Valid  bool   `json:"valid"`
	Code   string `json:"code,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  int    `json:"value,omitempty"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Parse reads a YAML policy. Duplicate exact codes, invalid patterns and
// discount values outside 1..100 are rejected.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse promo policy: %w", err)
	}
	if len(p.Rules) == 0 {
		return nil, fmt.Errorf("promo policy has no rules")
	}

	seen := make(map[string]bool)
	for i := range p.Rules {
		r := &p.Rules[i]
		if r.Value < 1 || r.Value > 100 {
			return nil, fmt.Errorf("rule %d: value %d out of range", i+1, r.Value)
		}
		switch r.Kind {
		case RuleExact:
			r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
			if r.Code == "" {
				return nil, fmt.Errorf("rule %d: exact rule without code", i+1)
			}
			if seen[r.Code] {
				return nil, fmt.Errorf("rule %d: duplicate code %s", i+1, r.Code)
			}
			seen[r.Code] = true
		case RulePattern:
			re, err := regexp.Compile(r.Pattern)
			if r.Pattern == "" || err != nil {
				return nil, fmt.Errorf("rule %d: invalid pattern %q", i+1, r.Pattern)
			}
			r.re = re
		case RuleSuffix:
			r.Suffix = strings.ToUpper(strings.TrimSpace(r.Suffix))
			if r.Suffix == "" {
				return nil, fmt.Errorf("rule %d: suffix rule without suffix", i+1)
			}
		default:
			return nil, fmt.Errorf("rule %d: unknown kind %q", i+1, r.Kind)
		}
	}
	return &p, nil
}

// Default returns the built-in policy.
func Default() *Policy {
	p, err := Parse(defaultPolicyYAML)
	if err != nil {
		panic(err)
	}
	return p
}

// LoadFromEnv reads PROMO_POLICY_FILE, or returns the built-in policy.
func LoadFromEnv() (*Policy, error) {
	path := strings.TrimSpace(env.GetEnv("PROMO_POLICY_FILE", ""))
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read promo policy: %w", err)
	}
	return Parse(data)
}

// Validate looks up a code. An unknown code is a valid call with Valid=false.
func (p *Policy) Validate(code string) (*Result, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.InvalidInput("Promo code is required")
	}
	for i := range p.Rules {
		r := &p.Rules[i]
		if r.matches(code) {
			return &Result{Valid: true, Code: code, Name: r.Name, Value: r.Value, Source: r.source()}, nil
		}
	}
	return &Result{Valid: false, Error: "Invalid promo code"}, nil
}
