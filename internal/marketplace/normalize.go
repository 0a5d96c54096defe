package marketplace

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const ipfsGateway = "https://ipfs.io/ipfs/"

// NormalizeIPFS rewrites ipfs:// URIs to an HTTP gateway URL and trims the
// whitespace and backticks that occasionally leak into metadata fields.
// Applying it twice yields the same result.
func NormalizeIPFS(uri string) string {
	s := strings.TrimSpace(uri)
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "ipfs://"); ok {
		return ipfsGateway + rest
	}
	return s
}

// FixedPointString interprets v as a base-10 integer amount carrying the
// given number of fixed-point decimals (18 for wei) and renders it as a
// human-readable decimal string with trailing fractional zeros stripped.
// Returns nil when v is not integer-parseable.
func FixedPointString(v any, decimals int32) *string {
	raw, ok := integerString(v)
	if !ok {
		return nil
	}
	i, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil
	}
	if decimals <= 0 {
		s := i.String()
		return &s
	}
	s := decimal.NewFromBigInt(i, -decimals).String()
	return &s
}

func integerString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		if t != float64(int64(t)) {
			return "", false
		}
		return fmt.Sprintf("%d", int64(t)), true
	case int:
		return fmt.Sprintf("%d", t), true
	case int64:
		return fmt.Sprintf("%d", t), true
	default:
		return "", false
	}
}
