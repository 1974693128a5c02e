package model

import (
	"maps"
	"slices"
)

// ItemStack is the content of one vault slot. An empty slot is a nil *ItemStack.
type ItemStack struct {
	Material     string            `json:"material" bson:"material"`
	Amount       int               `json:"amount" bson:"amount"`
	DisplayName  string            `json:"displayName,omitempty" bson:"displayName,omitempty"`
	Lore         []string          `json:"lore,omitempty" bson:"lore,omitempty"`
	Enchantments map[string]int    `json:"enchantments,omitempty" bson:"enchantments,omitempty"`
	Tags         map[string]string `json:"tags,omitempty" bson:"tags,omitempty"`
}

func (i *ItemStack) Enchanted() bool {
	return i != nil && len(i.Enchantments) > 0
}

func (i *ItemStack) Clone() *ItemStack {
	if i == nil {
		return nil
	}
	c := *i
	c.Lore = slices.Clone(i.Lore)
	c.Enchantments = maps.Clone(i.Enchantments)
	c.Tags = maps.Clone(i.Tags)
	return &c
}

// Similar reports whether both stacks match on everything except amount.
func (i *ItemStack) Similar(o *ItemStack) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.Material == o.Material &&
		i.DisplayName == o.DisplayName &&
		slices.Equal(i.Lore, o.Lore) &&
		maps.Equal(i.Enchantments, o.Enchantments) &&
		maps.Equal(i.Tags, o.Tags)
}

// ItemsEqual treats two empty slots as equal.
func ItemsEqual(a, b *ItemStack) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Similar(b) && a.Amount == b.Amount
}
