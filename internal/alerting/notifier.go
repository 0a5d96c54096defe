package alerting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"floorwatch/internal/marketplace"
	"floorwatch/internal/rarity"
)

// Alert carries everything the delivery channel needs about one fired alert.
type Alert struct {
	Item         marketplace.Item
	Rarity       rarity.Rarity
	PriceUSD     float64
	FloorPrice   float64
	ThresholdPct float64
}

// Notifier delivers fired alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// TelegramNotifier sends alerts to one fixed channel. It prefers a photo
// with an HTML caption and falls back to a plain text message when the image
// cannot be fetched.
type TelegramNotifier struct {
	client      *TelegramClient
	imageClient *http.Client
	chatID      string
	logger      zerolog.Logger
}

// NewTelegramNotifier constructs the alert channel. imageTimeout bounds the
// per-image download.
func NewTelegramNotifier(client *TelegramClient, chatID string, imageTimeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if imageTimeout <= 0 {
		imageTimeout = 8 * time.Second
	}
	return &TelegramNotifier{
		client:      client,
		imageClient: &http.Client{Timeout: imageTimeout},
		chatID:      chatID,
		logger:      logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends a photo+caption, degrading to text when no image can be
// fetched from either the item URL or the public IPFS gateway.
func (n *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	caption := renderCaption(alert)

	imageURL := alert.Item.PreviewURL
	if imageURL == "" {
		imageURL = alert.Item.ImageURL
	}
	imageURL = marketplace.NormalizeIPFS(imageURL)

	if photo := n.fetchImage(ctx, imageURL); photo != nil {
		filename := fmt.Sprintf("%s_%s.jpg", alert.Rarity, alert.Item.TokenID)
		if err := n.client.SendPhoto(ctx, n.chatID, photo, filename, caption); err == nil {
			n.logger.Info().Str("rarity", alert.Rarity.String()).Str("chat", n.chatID).Msg("photo alert sent")
			return nil
		} else {
			n.logger.Warn().Err(err).Msg("photo send failed, falling back to text")
		}
	}

	if err := n.client.SendMessage(ctx, n.chatID, caption); err != nil {
		return fmt.Errorf("send alert message: %w", err)
	}
	n.logger.Info().Str("rarity", alert.Rarity.String()).Str("chat", n.chatID).Msg("text alert sent")
	return nil
}

// fetchImage downloads the alert image, retrying once via the ipfs.io
// gateway when the marketplace CDN refuses the original URL.
func (n *TelegramNotifier) fetchImage(ctx context.Context, url string) []byte {
	if url == "" {
		return nil
	}
	if body := n.download(ctx, url); body != nil {
		return body
	}
	if alt := gatewayAlternative(url); alt != "" && alt != url {
		return n.download(ctx, alt)
	}
	return nil
}

func (n *TelegramNotifier) download(ctx context.Context, url string) []byte {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := n.imageClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	return body
}

func gatewayAlternative(url string) string {
	if idx := strings.Index(url, "/ipfs/"); idx >= 0 {
		return "https://ipfs.io/ipfs/" + url[idx+len("/ipfs/"):]
	}
	return ""
}

func renderCaption(alert Alert) string {
	price := alert.Item.Price
	if alert.Item.PriceUSD != nil {
		price = fmt.Sprintf("%.2f USD", *alert.Item.PriceUSD)
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("\U0001F522 <b>Number:</b> %s\n", alert.Item.TokenID))
	builder.WriteString(fmt.Sprintf("\U0001F3B0 <b>Rarity:</b> %s\n", alert.Rarity))
	builder.WriteString(fmt.Sprintf("\U0001F4B0 <b>Price:</b> %s\n", price))
	builder.WriteString(fmt.Sprintf("\U0001F4CA <b>Floor Price:</b> %.2f USD\n", alert.FloorPrice))
	if alert.Item.RaribleURL != "" {
		builder.WriteString(fmt.Sprintf("\U0001F517 <b>Rarible link:</b> <a href=\"%s\">View NFT</a>\n", alert.Item.RaribleURL))
	}
	if alert.Item.OpenSeaURL != "" {
		builder.WriteString(fmt.Sprintf("\U0001F517 <b>OpenSea link:</b> <a href=\"%s\">View NFT</a>\n", alert.Item.OpenSeaURL))
	}
	builder.WriteString(fmt.Sprintf("\n\U0001F552 <b>Time:</b> %s", time.Now().UTC().Format("15:04:05")))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
