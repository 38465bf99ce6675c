//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"
)

var (
	baseURL = getenv("E2E_BASE_URL", "http://localhost:8082")
	token   = os.Getenv("E2E_TOKEN")
)

type item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type state struct {
	Version   uint64 `json:"version"`
	Primary   []item `json:"primary"`
	Secondary []item `json:"secondary"`
}

func TestSystem_E2E_PriceBoard(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var before state
	doJSON(t, http.MethodGet, baseURL+"/catalog", "", &before, 200)
	if len(before.Primary) == 0 {
		t.Fatalf("expected non-empty primary catalog")
	}
	target := before.Primary[0]

	var it item
	doJSON(t, http.MethodPost, baseURL+"/catalog/primary/"+target.ID+"/increment", token, &it, 200)
	if it.Price != target.Price+1 {
		t.Fatalf("price=%d want=%d", it.Price, target.Price+1)
	}

	var after state
	doJSON(t, http.MethodGet, baseURL+"/catalog", "", &after, 200)
	if after.Version <= before.Version {
		t.Fatalf("version did not advance: %d -> %d", before.Version, after.Version)
	}
	if len(after.Secondary) != len(before.Secondary) {
		t.Fatalf("secondary changed")
	}

	if os.Getenv("E2E_RESTART") == "1" {
		restartServiceContainer(t, ctx, getenv("E2E_SERVICE", "webstore"))
		waitReady(t, ctx, baseURL+"/readyz")

		var restarted state
		doJSON(t, http.MethodGet, baseURL+"/catalog", "", &restarted, 200)
		if restarted.Primary[0].ID != target.ID || restarted.Primary[0].Price != it.Price {
			t.Fatalf("price not persisted across restart: %+v", restarted.Primary[0])
		}
	}

	doJSON(t, http.MethodPost, baseURL+"/catalog/primary/"+target.ID+"/decrement", token, &it, 200)
	if it.Price != target.Price {
		t.Fatalf("round trip price=%d want=%d", it.Price, target.Price)
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url, token string, out any, want int) {
	t.Helper()

	req, err := http.NewRequest(method, url, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
