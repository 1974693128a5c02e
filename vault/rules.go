package vault

import (
	"fmt"
	"path"
	"strings"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
)

// DefaultValuableMaterials are material globs whose movement is audited.
var DefaultValuableMaterials = []string{
	"*NETHERITE*",
	"DIAMOND",
	"DIAMOND_BLOCK",
	"NETHER_STAR",
	"ELYTRA",
	"*SHULKER_BOX",
}

// Rule is one named predicate of the valuable-item table.
type Rule struct {
	Name  string
	Match func(item *model.ItemStack) bool
}

type Rules struct {
	rules []Rule
}

// NewRules builds a rule per material glob plus the enchanted-item rule.
// Globs use path.Match syntax and compare case-insensitively.
func NewRules(materials []string) (*Rules, error) {
	r := &Rules{}
	for _, glob := range materials {
		glob = strings.ToUpper(strings.TrimSpace(glob))
		if glob == "" {
			continue
		}
		if _, err := path.Match(glob, ""); err != nil {
			return nil, fmt.Errorf("material pattern %q: %w", glob, err)
		}
		r.rules = append(r.rules, Rule{
			Name: "material:" + glob,
			Match: func(item *model.ItemStack) bool {
				ok, _ := path.Match(glob, strings.ToUpper(item.Material))
				return ok
			},
		})
	}
	r.rules = append(r.rules, Rule{
		Name:  "enchanted",
		Match: (*model.ItemStack).Enchanted,
	})
	return r, nil
}

func DefaultRules() *Rules {
	r, _ := NewRules(DefaultValuableMaterials)
	return r
}

// Add appends a custom rule, evaluated after the built-in ones.
func (r *Rules) Add(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Match returns the name of the first rule the item satisfies.
func (r *Rules) Match(item *model.ItemStack) (string, bool) {
	if item == nil {
		return "", false
	}
	for _, rule := range r.rules {
		if rule.Match(item) {
			return rule.Name, true
		}
	}
	return "", false
}

func (r *Rules) Valuable(item *model.ItemStack) bool {
	_, ok := r.Match(item)
	return ok
}
