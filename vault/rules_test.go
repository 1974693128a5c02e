package vault

import (
	"testing"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		item     *model.ItemStack
		valuable bool
		rule     string
	}{
		{&model.ItemStack{Material: "NETHERITE_INGOT", Amount: 1}, true, "material:*NETHERITE*"},
		{&model.ItemStack{Material: "ANCIENT_DEBRIS", Amount: 1}, false, ""},
		{&model.ItemStack{Material: "DIAMOND", Amount: 1}, true, "material:DIAMOND"},
		{&model.ItemStack{Material: "DIAMOND_SWORD", Amount: 1}, false, ""},
		{&model.ItemStack{Material: "PURPLE_SHULKER_BOX", Amount: 1}, true, "material:*SHULKER_BOX"},
		{&model.ItemStack{Material: "SHULKER_BOX", Amount: 1}, true, "material:*SHULKER_BOX"},
		{&model.ItemStack{Material: "elytra", Amount: 1}, true, "material:ELYTRA"},
		{&model.ItemStack{Material: "BOOK", Amount: 1, Enchantments: map[string]int{"mending": 1}}, true, "enchanted"},
		{nil, false, ""},
	}
	for _, c := range cases {
		name, ok := rules.Match(c.item)
		assert.Equal(t, c.valuable, ok, "%+v", c.item)
		assert.Equal(t, c.rule, name)
	}
}

func TestCustomRules(t *testing.T) {
	rules, err := NewRules([]string{"emerald*", " "})
	require.NoError(t, err)
	assert.True(t, rules.Valuable(&model.ItemStack{Material: "EMERALD_BLOCK", Amount: 1}))
	assert.False(t, rules.Valuable(&model.ItemStack{Material: "DIAMOND", Amount: 1}))

	rules.Add(Rule{Name: "stack", Match: func(i *model.ItemStack) bool { return i.Amount >= 64 }})
	name, ok := rules.Match(&model.ItemStack{Material: "DIRT", Amount: 64})
	assert.True(t, ok)
	assert.Equal(t, "stack", name)

	_, err = NewRules([]string{"[bad"})
	assert.Error(t, err)
}
