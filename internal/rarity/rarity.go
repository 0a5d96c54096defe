package rarity

import "strings"

// Rarity is one of the five fixed collection tiers. It is used both as the
// floors table key and as a display value, so values outside the closed set
// must never be constructed.
type Rarity string

const (
	Legendary Rarity = "Legendary"
	Epic      Rarity = "Epic"
	Rare      Rarity = "Rare"
	Uncommon  Rarity = "Uncommon"
	Common    Rarity = "Common"
)

var all = []Rarity{Legendary, Epic, Rare, Uncommon, Common}

var glyphs = map[Rarity]string{
	Legendary: "\U0001F7E8",
	Epic:      "\U0001F7EA",
	Rare:      "\U0001F7E6",
	Uncommon:  "\U0001F7E9",
	Common:    "⬜️",
}

// All returns the tiers in descending order of rarity.
func All() []Rarity {
	out := make([]Rarity, len(all))
	copy(out, all)
	return out
}

// Parse maps a free-form string onto the closed set, case-insensitively.
func Parse(s string) (Rarity, bool) {
	needle := strings.TrimSpace(s)
	for _, r := range all {
		if strings.EqualFold(needle, string(r)) {
			return r, true
		}
	}
	return "", false
}

// String returns the canonical display form.
func (r Rarity) String() string {
	return string(r)
}

// Glyph returns the colour square used in operator-facing messages.
func (r Rarity) Glyph() string {
	return glyphs[r]
}
