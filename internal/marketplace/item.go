package marketplace

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is the canonical per-cycle view of one listed item. It is rebuilt
// from a RawItem every poll cycle, consumed by the alert engine, and never
// persisted.
type Item struct {
	ItemID     string
	TokenID    string
	Rarity     string
	Name       string
	ImageURL   string
	PreviewURL string
	Price      string
	Currency   string
	PriceUSD   *float64
	RaribleURL string
	OpenSeaURL string
}

// Enrich turns one raw marketplace record into a canonical Item. Direct item
// fields win; the off-chain metadata document is consulted only to fill the
// gaps. rate may be nil, in which case PriceUSD stays unset and the alert
// rules no-op for this item.
func (c *Client) Enrich(ctx context.Context, resolver *Resolver, raw RawItem, rate *float64) Item {
	meta := resolver.Resolve(ctx, raw)

	item := Item{
		ItemID:  raw.Str("id"),
		TokenID: raw.Str("tokenId"),
		Rarity:  ExtractRarity(raw, meta.Rarity),
	}

	item.Name = ExtractName(raw)
	if item.Name == "" {
		item.Name = meta.Name
	}

	item.ImageURL = ExtractImageURL(raw)
	if item.ImageURL == "" {
		item.ImageURL = meta.Image
	}
	item.PreviewURL = ExtractPreviewURL(raw, meta.Image)
	if item.PreviewURL == "" {
		item.PreviewURL = item.ImageURL
	}

	item.Price, item.Currency = ExtractPrice(raw)
	item.PriceUSD = convertPrice(item.Price, rate)

	if item.ItemID != "" {
		item.RaribleURL = fmt.Sprintf("https://og.rarible.com/token/%s", item.ItemID)
	}
	if item.TokenID != "" {
		item.OpenSeaURL = fmt.Sprintf("https://opensea.io/item/pol/%s/%s", collectionAddress(c.opts.Collection), item.TokenID)
	}

	return item
}

// collectionAddress strips the "BLOCKCHAIN-" prefix from a collection id,
// leaving the bare contract address external marketplaces link by.
func collectionAddress(id string) string {
	if _, addr, ok := strings.Cut(id, "-"); ok {
		return addr
	}
	return id
}

func convertPrice(price string, rate *float64) *float64 {
	if price == "" || rate == nil {
		return nil
	}
	native, err := decimal.NewFromString(price)
	if err != nil {
		return nil
	}
	usd := native.Mul(decimal.NewFromFloat(*rate)).InexactFloat64()
	return &usd
}
