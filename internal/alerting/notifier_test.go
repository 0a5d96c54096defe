package alerting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"floorwatch/internal/marketplace"
	"floorwatch/internal/rarity"
)

func testAlert(imageURL string) Alert {
	priceUSD := 42.5
	return Alert{
		Item: marketplace.Item{
			ItemID:     "POLYGON:0xabc:123",
			TokenID:    "123",
			Name:       "Test Item",
			PreviewURL: imageURL,
			Price:      "25",
			Currency:   "MATIC",
			PriceUSD:   &priceUSD,
			RaribleURL: "https://og.rarible.com/token/POLYGON:0xabc:123",
		},
		Rarity:       rarity.Epic,
		PriceUSD:     42.5,
		FloorPrice:   100,
		ThresholdPct: 50,
	}
}

func TestNotifySendsPhoto(t *testing.T) {
	var photoRequests, messageRequests int
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/image.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/bottoken/sendPhoto", func(w http.ResponseWriter, r *http.Request) {
		photoRequests++
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("chat_id"); got != "-100" {
			t.Errorf("chat_id = %q", got)
		}
		caption := r.FormValue("caption")
		if !strings.Contains(caption, "<b>Number:</b> 123") {
			t.Errorf("caption missing token id: %q", caption)
		}
		if !strings.Contains(caption, "<b>Price:</b> 42.50 USD") {
			t.Errorf("caption missing usd price: %q", caption)
		}
		if !strings.Contains(caption, "<b>Floor Price:</b> 100.00 USD") {
			t.Errorf("caption missing floor: %q", caption)
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			t.Fatalf("photo part: %v", err)
		}
		file.Close()
		w.Write([]byte(`{"ok": true}`))
	})
	mux.HandleFunc("/bottoken/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		messageRequests++
		w.Write([]byte(`{"ok": true}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := NewTelegramClient("token", srv.URL, 2*time.Second)
	n := NewTelegramNotifier(client, "-100", 2*time.Second, zerolog.Nop())

	if err := n.Notify(context.Background(), testAlert(srv.URL+"/image.jpg")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if photoRequests != 1 || messageRequests != 0 {
		t.Fatalf("photo=%d message=%d, want photo path only", photoRequests, messageRequests)
	}
}

func TestNotifyFallsBackToText(t *testing.T) {
	var messageRequests int
	mux := http.NewServeMux()

	mux.HandleFunc("/image.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	mux.HandleFunc("/bottoken/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		messageRequests++
		w.Write([]byte(`{"ok": true}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewTelegramClient("token", srv.URL, 2*time.Second)
	n := NewTelegramNotifier(client, "-100", 2*time.Second, zerolog.Nop())

	if err := n.Notify(context.Background(), testAlert(srv.URL+"/image.jpg")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if messageRequests != 1 {
		t.Fatalf("messageRequests = %d, want text fallback", messageRequests)
	}
}

func TestRenderCaption(t *testing.T) {
	caption := renderCaption(testAlert(""))
	for _, want := range []string{
		"<b>Number:</b> 123",
		"<b>Rarity:</b> Epic",
		"<b>Price:</b> 42.50 USD",
		"<b>Floor Price:</b> 100.00 USD",
		`<a href="https://og.rarible.com/token/POLYGON:0xabc:123">View NFT</a>`,
		"<b>Time:</b>",
	} {
		if !strings.Contains(caption, want) {
			t.Fatalf("caption missing %q:\n%s", want, caption)
		}
	}
	if strings.Contains(caption, "OpenSea link") {
		t.Fatalf("caption must omit absent OpenSea link:\n%s", caption)
	}
}

func TestRenderCaptionNativePrice(t *testing.T) {
	alert := testAlert("")
	alert.Item.PriceUSD = nil
	caption := renderCaption(alert)
	if !strings.Contains(caption, "<b>Price:</b> 25") {
		t.Fatalf("caption must fall back to native price:\n%s", caption)
	}
}

func TestGatewayAlternative(t *testing.T) {
	if got := gatewayAlternative("https://cdn.example.com/ipfs/QmHash/img.png"); got != "https://ipfs.io/ipfs/QmHash/img.png" {
		t.Fatalf("got %q", got)
	}
	if got := gatewayAlternative("https://cdn.example.com/img.png"); got != "" {
		t.Fatalf("got %q, want empty for non-ipfs url", got)
	}
}
