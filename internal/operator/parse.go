package operator

import (
	"errors"
	"strconv"
	"strings"

	"floorwatch/internal/rarity"
)

// User-facing rejection messages. Malformed input never mutates state; the
// reply text explains the expected format.
var (
	ErrSetUsage      = errors.New("Use the format: /set Rarity, Percent")
	ErrUnknownRarity = errors.New("Rarity must be one of: Legendary, Epic, Rare, Uncommon, Common")
	ErrBadPercent    = errors.New("Percent must be a number between 1 and 100")
)

// ParseSet parses the payload of a /set command: "Rarity, Percent", comma or
// whitespace separated. Percent must lie in (0, 100].
func ParseSet(payload string) (rarity.Rarity, float64, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", 0, ErrSetUsage
	}

	parts := splitFields(payload, ",")
	if len(parts) != 2 {
		parts = strings.Fields(payload)
	}
	if len(parts) != 2 {
		return "", 0, ErrSetUsage
	}

	tier, ok := rarity.Parse(parts[0])
	if !ok {
		return "", 0, ErrUnknownRarity
	}

	percent, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", 0, ErrBadPercent
	}
	if percent <= 0 || percent > 100 {
		return "", 0, ErrBadPercent
	}

	return tier, percent, nil
}

func splitFields(s, sep string) []string {
	raw := strings.Split(s, sep)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
