package vault

import (
	"strconv"
	"strings"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/dustin/go-humanize"
)

const (
	DisplaySlot = 0

	displayTag     = "vault.display"
	displayBalance = "balance"
	balanceTag     = "vault.balance"
)

// BalanceDisplay renders the element shown in slot 0 of every view.
type BalanceDisplay struct {
	Material string
}

func (d BalanceDisplay) Render(balance int64) *model.ItemStack {
	name := currencyName(d.Material)
	lore := []string{"", "Current Balance:"}
	if balance > 0 {
		lore = append(lore, "  "+humanize.Comma(balance)+" "+name)
	} else {
		lore = append(lore, "  No currency stored")
	}
	lore = append(lore,
		"",
		"Left Click to deposit "+name,
		"Right Click to withdraw "+name,
		"Shift + Left Click to deposit all",
		"",
		"Only "+name+" accepted",
		"",
		"This item cannot be removed",
	)
	return &model.ItemStack{
		Material:    d.Material,
		Amount:      1,
		DisplayName: "Guild Currency",
		Lore:        lore,
		Tags: map[string]string{
			displayTag: displayBalance,
			balanceTag: strconv.FormatInt(balance, 10),
		},
	}
}

// IsDisplay reports whether item is a rendered balance display.
func IsDisplay(item *model.ItemStack) bool {
	return item != nil && item.Tags[displayTag] == displayBalance
}

// DisplayedBalance reads the balance a display element was rendered with.
func DisplayedBalance(item *model.ItemStack) (int64, bool) {
	if !IsDisplay(item) {
		return 0, false
	}
	n, err := strconv.ParseInt(item.Tags[balanceTag], 10, 64)
	return n, err == nil
}

// RAW_GOLD -> Raw Gold
func currencyName(material string) string {
	parts := strings.Split(strings.ToLower(material), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
