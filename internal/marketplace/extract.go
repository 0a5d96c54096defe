package marketplace

import (
	"fmt"
	"strconv"
	"strings"
)

// Size priority for picking one image out of a media entry list. PORTRAIT is
// only meaningful for meta.content representations.
var (
	mediaSizeOrder   = []string{"ORIGINAL", "BIG", "PREVIEW"}
	contentSizeOrder = []string{"ORIGINAL", "BIG", "PREVIEW", "PORTRAIT"}
)

// ExtractImageURL picks the best image URL for an item. It prefers
// properties.mediaEntries (IMAGE entries by size priority, then any entry
// with a URL), then meta.content keyed by representation, then the flat
// originalMetaUri/image/preview fields. All results are IPFS-normalised.
// Returns "" when the item carries no image at all.
func ExtractImageURL(item RawItem) string {
	entries := item.Obj("properties").List("mediaEntries")
	if len(entries) > 0 {
		for _, size := range mediaSizeOrder {
			for _, m := range entries {
				if strings.EqualFold(m.Str("contentType"), "IMAGE") &&
					strings.EqualFold(m.Str("sizeType"), size) && m.Str("url") != "" {
					return NormalizeIPFS(m.Str("url"))
				}
			}
		}
		for _, m := range entries {
			if u := m.Str("url"); u != "" {
				return NormalizeIPFS(u)
			}
		}
	}

	meta := item.Obj("meta")
	contents := meta.List("content")
	for _, size := range contentSizeOrder {
		for _, c := range contents {
			if !strings.EqualFold(c.Str("@type"), "IMAGE") {
				continue
			}
			if strings.EqualFold(c.Str("representation"), size) && c.Str("url") != "" {
				return NormalizeIPFS(c.Str("url"))
			}
		}
	}
	for _, c := range contents {
		if u := c.Str("url"); u != "" {
			return NormalizeIPFS(u)
		}
	}

	if uri := meta.Str("originalMetaUri"); uri != "" {
		return NormalizeIPFS(uri)
	}
	if uri := item.FirstStr("image", "preview"); uri != "" {
		return NormalizeIPFS(uri)
	}
	return ""
}

// ExtractName returns the first non-empty display name.
func ExtractName(item RawItem) string {
	if s := item.Obj("properties").Str("name"); s != "" {
		return s
	}
	if s := item.Obj("meta").Str("name"); s != "" {
		return s
	}
	return item.FirstStr("name", "title")
}

// ExtractPrice returns the native listing price as a decimal string plus its
// currency symbol. Prefers an explicit sell order; falls back to the
// ownership price with the last-sale currency. Either value may be "" when
// the item is unlisted or the order shape is unusable.
func ExtractPrice(item RawItem) (price, currency string) {
	order := item.Obj("bestSellOrder")
	if len(order) == 0 {
		order = item.Obj("bestSell")
	}

	ownership := item.Obj("ownership")
	if len(order) == 0 && len(ownership) > 0 {
		symbol := item.Obj("lastSellPrice").Obj("currency").Str("symbol")
		return scalarString(ownership.Val("price")), symbol
	}
	if len(order) == 0 {
		return "", ""
	}

	take := order.Obj("take")
	assetClass := strings.ToUpper(take.Obj("assetType").Str("assetClass"))
	switch assetClass {
	case "ETH", "NATIVE":
		if strings.EqualFold(item.Str("blockchain"), "POLYGON") {
			currency = "MATIC"
		} else {
			currency = "ETH"
		}
	case "ERC20":
		currency = "ERC20"
	default:
		currency = assetClass
	}

	if s := order.FirstStr("price", "takePrice", "makePrice"); s != "" {
		return s, currency
	}
	if normalized := FixedPointString(take.Val("value"), 18); normalized != nil {
		return *normalized, currency
	}
	return "", currency
}

// ExtractRarity looks for a rarity attribute on the item itself, falling back
// to the value resolved from off-chain metadata.
func ExtractRarity(item RawItem, metaRarity string) string {
	for _, a := range item.Obj("properties").List("attributes") {
		key := a.Str("key")
		if key == "" || !strings.EqualFold(key, "rarity") {
			continue
		}
		if v, ok := a.Val("value").(string); ok {
			return v
		}
		break
	}
	return metaRarity
}

// ExtractPreviewURL prefers the item's own IMAGE+PREVIEW media entry, then
// the image resolved from off-chain metadata.
func ExtractPreviewURL(item RawItem, metaImage string) string {
	for _, m := range item.Obj("properties").List("mediaEntries") {
		if strings.EqualFold(m.Str("contentType"), "IMAGE") &&
			strings.EqualFold(m.Str("sizeType"), "PREVIEW") && m.Str("url") != "" {
			return NormalizeIPFS(m.Str("url"))
		}
	}
	return metaImage
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
