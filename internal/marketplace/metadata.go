package marketplace

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Metadata is the secondary name/image/rarity source resolved from an item's
// off-chain metadata document. A zero value means nothing could be resolved;
// direct item fields always take precedence over it.
type Metadata struct {
	Name   string
	Image  string
	Rarity string
}

// Resolver fetches and parses off-chain metadata documents. Metadata is
// best-effort: a single bounded fetch, no retry, and every failure except
// cooperative cancellation collapses to an empty result.
type Resolver struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewResolver builds a metadata resolver with the given per-fetch timeout.
func NewResolver(timeout time.Duration, logger zerolog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Resolver{
		client: client,
		logger: logger.With().Str("component", "metadata_resolver").Logger(),
	}
}

// Resolve fetches the item's meta.metadataUri, if declared, and extracts the
// fallback name, image, and rarity from the document.
func (r *Resolver) Resolve(ctx context.Context, item RawItem) Metadata {
	uri := item.Obj("meta").Str("metadataUri")
	if uri == "" {
		return Metadata{}
	}

	var doc map[string]any
	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(&doc).
		Get(NormalizeIPFS(uri))
	if err != nil || resp.StatusCode() != http.StatusOK || doc == nil {
		if err != nil && ctx.Err() == nil {
			r.logger.Debug().Err(err).Str("uri", uri).Msg("metadata fetch failed")
		}
		return Metadata{}
	}

	return extractMetadata(RawItem(doc))
}

func extractMetadata(doc RawItem) Metadata {
	var out Metadata

	for _, size := range mediaSizeOrder {
		for _, m := range doc.List("mediaEntries") {
			if strings.EqualFold(m.Str("contentType"), "IMAGE") &&
				strings.EqualFold(m.Str("sizeType"), size) && m.Str("url") != "" {
				out.Image = NormalizeIPFS(m.Str("url"))
				break
			}
		}
		if out.Image != "" {
			break
		}
	}

	out.Name = doc.FirstStr("name", "title")

	if out.Image == "" {
		if flat := doc.FirstStr("image", "image_url", "imageURI"); flat != "" {
			out.Image = NormalizeIPFS(flat)
		}
	}

	for _, a := range doc.List("attributes") {
		key := a.Str("key")
		if key == "" {
			key = a.Str("trait_type")
		}
		if !strings.EqualFold(key, "rarity") {
			continue
		}
		if v, ok := a.Val("value").(string); ok {
			out.Rarity = v
		}
		break
	}

	return out
}
