package marketplace

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"floorwatch/internal/fetch"
)

const (
	searchPath       = "/items/search"
	byCollectionPath = "/v0.1/items/byCollection"
)

// Blockchains included in every search filter. The marketplace rejects
// filters without an explicit blockchain list.
var searchBlockchains = []string{
	"ETHEREUM", "MOONBEAM", "ETHERLINK", "POLYGON", "BASE", "RARI", "ZKSYNC",
	"APTOS", "GOAT", "SHAPE", "TELOS", "MATCH", "ARBITRUM", "ABSTRACT",
	"HEDERAEVM", "VICTION", "ZKCANDY",
}

// Options parameterise the marketplace client.
type Options struct {
	BaseURL    string
	Collection string
	PageSize   int
	MaxPages   int
}

// Client issues item-listing queries against the marketplace API. All
// network failures degrade to empty results via the fetch collaborator.
type Client struct {
	opts    Options
	fetcher *fetch.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient constructs a marketplace client.
func NewClient(opts Options, fetcher *fetch.Client, logger zerolog.Logger) *Client {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}
	return &Client{
		opts:    opts,
		fetcher: fetcher,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		logger:  logger.With().Str("component", "marketplace").Logger(),
	}
}

// CheapestByRarity returns the cheapest currently listed item of the given
// rarity, or nil when the query yields nothing.
func (c *Client) CheapestByRarity(ctx context.Context, rarityName string) (RawItem, error) {
	payload := map[string]any{
		"size":   1,
		"filter": c.searchFilter(map[string]any{"traits": []map[string]any{{"key": "Rarity", "values": []string{rarityName}}}}),
	}

	data, err := c.fetcher.PostJSON(ctx, c.baseURL+searchPath, payload)
	if err != nil {
		return nil, err
	}

	items, _ := decodeItemsPage(data)
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// Search walks the sorted full-collection listing, following continuation
// tokens until the marketplace stops returning them or the page budget runs
// out.
func (c *Client) Search(ctx context.Context) ([]RawItem, error) {
	var all []RawItem
	continuation := ""
	for page := 0; page < c.opts.MaxPages; page++ {
		payload := map[string]any{
			"size":   c.opts.PageSize,
			"filter": c.searchFilter(nil),
		}
		if continuation != "" {
			payload["continuation"] = continuation
		}

		data, err := c.fetcher.PostJSON(ctx, c.baseURL+searchPath, payload)
		if err != nil {
			return all, err
		}

		items, next := decodeItemsPage(data)
		all = append(all, items...)
		continuation = next
		if continuation == "" || len(items) == 0 {
			break
		}
	}
	return all, nil
}

// ByCollection pages through the plain byCollection listing.
func (c *Client) ByCollection(ctx context.Context) ([]RawItem, error) {
	var all []RawItem
	continuation := ""
	for page := 0; page < c.opts.MaxPages; page++ {
		params := map[string]string{
			"collection": c.opts.Collection,
			"size":       strconv.Itoa(c.opts.PageSize),
		}
		if continuation != "" {
			params["continuation"] = continuation
		}

		data, err := c.fetcher.GetJSON(ctx, c.baseURL+byCollectionPath, params)
		if err != nil {
			return all, err
		}

		items, next := decodeItemsPage(data)
		all = append(all, items...)
		continuation = next
		if continuation == "" || len(items) == 0 {
			break
		}
	}
	return all, nil
}

func (c *Client) searchFilter(extra map[string]any) map[string]any {
	filter := map[string]any{
		"verifiedOnly":       false,
		"sort":               "LOW_PRICE_FIRST",
		"collections":        []string{c.opts.Collection},
		"blockchains":        searchBlockchains,
		"hideItemsSupply":    "HIDE_LAZY_SUPPLY",
		"nsfw":               true,
		"hasMetaContentOnly": false,
	}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}

// decodeItemsPage handles both response shapes the search endpoint produces:
// a bare array of items, or an object with items plus a continuation token.
func decodeItemsPage(data any) ([]RawItem, string) {
	switch t := data.(type) {
	case []any:
		items := make([]RawItem, 0, len(t))
		for _, v := range t {
			if m, ok := v.(map[string]any); ok {
				items = append(items, RawItem(m))
			}
		}
		return items, ""
	case map[string]any:
		obj := RawItem(t)
		return obj.List("items"), obj.Str("continuation")
	default:
		return nil, ""
	}
}
