package model

import (
	"fmt"
	"strconv"
	"strings"
)

// DynamicRuleType tags a DynamicRule variant.
type DynamicRuleType string

const (
	RuleMostUsed     DynamicRuleType = "most_used"
	RuleRecentlyUsed DynamicRuleType = "recently_used"
	RuleByCategory   DynamicRuleType = "by_category"
)

// DynamicRule derives a dynamic folder's apps. Count applies to most_used and
// recently_used; Label applies to by_category.
type DynamicRule struct {
	Type  DynamicRuleType `json:"type"`
	Count int             `json:"count,omitempty"`
	Label string          `json:"label,omitempty"`
}

// MostUsed selects the n most frequently used apps.
func MostUsed(n int) DynamicRule { return DynamicRule{Type: RuleMostUsed, Count: n} }

// RecentlyUsed selects the n most recently used apps.
func RecentlyUsed(n int) DynamicRule { return DynamicRule{Type: RuleRecentlyUsed, Count: n} }

// ByCategory selects installed apps tagged with label.
func ByCategory(label string) DynamicRule { return DynamicRule{Type: RuleByCategory, Label: label} }

// Validate checks that the variant carries the payload it needs.
func (r DynamicRule) Validate() error {
	switch r.Type {
	case RuleMostUsed, RuleRecentlyUsed:
		if r.Count <= 0 {
			return fmt.Errorf("%s rule needs a positive count, got %d", r.Type, r.Count)
		}
	case RuleByCategory:
		if strings.TrimSpace(r.Label) == "" {
			return fmt.Errorf("by_category rule needs a label")
		}
	default:
		return fmt.Errorf("unknown dynamic rule type %q", r.Type)
	}
	return nil
}

// String renders the rule the way the CLI accepts it.
func (r DynamicRule) String() string {
	switch r.Type {
	case RuleByCategory:
		return fmt.Sprintf("%s:%s", r.Type, r.Label)
	default:
		return fmt.Sprintf("%s:%d", r.Type, r.Count)
	}
}

// ParseDynamicRule parses the String form: "most_used:N", "recently_used:N" or
// "by_category:LABEL".
func ParseDynamicRule(s string) (DynamicRule, error) {
	typ, arg, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return DynamicRule{}, fmt.Errorf("invalid rule %q, want type:argument", s)
	}
	r := DynamicRule{Type: DynamicRuleType(strings.ToLower(strings.TrimSpace(typ)))}
	arg = strings.TrimSpace(arg)
	switch r.Type {
	case RuleMostUsed, RuleRecentlyUsed:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return DynamicRule{}, fmt.Errorf("invalid count in rule %q", s)
		}
		r.Count = n
	case RuleByCategory:
		r.Label = arg
	default:
		return DynamicRule{}, fmt.Errorf("unknown rule type %q", typ)
	}
	if err := r.Validate(); err != nil {
		return DynamicRule{}, err
	}
	return r, nil
}
