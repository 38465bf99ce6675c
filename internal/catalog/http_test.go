package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"WebStore/internal/auth"
	"WebStore/internal/catalog"
	"WebStore/internal/view"
	"WebStore/pkg/kit"
)

const testSecret = "test-secret-test-secret-test-secret"

type tsOpts struct {
	secret       string
	rateLimit    int
	registry     *prometheus.Registry
	metricsToken string
}

func newCatalogTS(t *testing.T, o tsOpts) (*httptest.Server, *catalog.Provider) {
	t.Helper()

	p := catalog.NewProvider(catalog.NewMemStore(catalog.DefaultSeed()), zap.NewNop(), nil)

	var guard []func(http.Handler) http.Handler
	if o.rateLimit > 0 {
		guard = append(guard, kit.NewIPRateLimiter(o.rateLimit, time.Minute).Middleware)
	}
	if o.secret != "" {
		guard = append(guard, auth.RequireRole(auth.NewTokenMaker(o.secret), auth.RoleEditor))
	}

	pages := &view.Pages{Source: p, Log: zap.NewNop(), ReadOnly: o.secret != ""}

	h := catalog.NewHandler(&catalog.Server{Provider: p, Log: zap.NewNop(), Guard: guard}, catalog.HTTPDeps{
		Log:            zap.NewNop(),
		Service:        "webstore",
		Registry:       o.registry,
		MetricsEnabled: o.registry != nil,
		MetricsToken:   o.metricsToken,
		Pages:          pages.Register,
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, p
}

func do(t *testing.T, method, url, token string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func snapshotOf(t *testing.T, baseURL string) catalog.State {
	t.Helper()

	resp, raw := do(t, http.MethodGet, baseURL+"/catalog", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot status=%d body=%s", resp.StatusCode, raw)
	}
	var st catalog.State
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode snapshot: %v body=%s", err, raw)
	}
	return st
}

func TestHTTP_HealthAndReady(t *testing.T) {
	ts, _ := newCatalogTS(t, tsOpts{})

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := do(t, http.MethodGet, ts.URL+path, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
	}
}

func TestHTTP_IncrementByIndexScenario(t *testing.T) {
	ts, _ := newCatalogTS(t, tsOpts{})

	for i := 0; i < 3; i++ {
		resp, raw := do(t, http.MethodPost, ts.URL+"/catalog/primary/at/0/increment", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("increment status=%d body=%s", resp.StatusCode, raw)
		}
	}

	st := snapshotOf(t, ts.URL)
	if st.Primary[0].Name != "Honda" || st.Primary[0].Price != 103 {
		t.Fatalf("honda=%+v", st.Primary[0])
	}
	if st.Primary[1].Price != 150 {
		t.Fatalf("bmw=%+v", st.Primary[1])
	}
	if st.Version != 3 {
		t.Fatalf("version=%d", st.Version)
	}
}

func TestHTTP_DecrementByID(t *testing.T) {
	ts, _ := newCatalogTS(t, tsOpts{})
	before := snapshotOf(t, ts.URL)
	baleno := before.Primary[3]

	resp, raw := do(t, http.MethodPost, ts.URL+"/catalog/primary/"+baleno.ID+"/decrement", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decrement status=%d body=%s", resp.StatusCode, raw)
	}

	var it catalog.Item
	if err := json.Unmarshal(raw, &it); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if it.ID != baleno.ID || it.Price != 99 {
		t.Fatalf("item=%+v", it)
	}

	after := snapshotOf(t, ts.URL)
	for i := 0; i < 3; i++ {
		if after.Primary[i] != before.Primary[i] {
			t.Fatalf("primary[%d] changed: %+v -> %+v", i, before.Primary[i], after.Primary[i])
		}
	}
	for i := range before.Secondary {
		if after.Secondary[i] != before.Secondary[i] {
			t.Fatalf("secondary[%d] changed", i)
		}
	}
}

func TestHTTP_PrimaryOnly(t *testing.T) {
	ts, _ := newCatalogTS(t, tsOpts{})

	resp, raw := do(t, http.MethodGet, ts.URL+"/catalog/primary", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var items []catalog.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("len=%d", len(items))
	}
}

func TestHTTP_MutationErrors(t *testing.T) {
	ts, _ := newCatalogTS(t, tsOpts{})

	cases := []struct {
		path string
		want int
	}{
		{"/catalog/primary/at/4/increment", http.StatusNotFound},
		{"/catalog/primary/at/-1/decrement", http.StatusNotFound},
		{"/catalog/primary/at/abc/increment", http.StatusBadRequest},
		{"/catalog/primary/i_missing/increment", http.StatusNotFound},
	}

	for _, tc := range cases {
		resp, raw := do(t, http.MethodPost, ts.URL+tc.path, "")
		if resp.StatusCode != tc.want {
			t.Fatalf("%s status=%d want=%d body=%s", tc.path, resp.StatusCode, tc.want, raw)
		}
		var er kit.ErrorResponse
		if err := json.Unmarshal(raw, &er); err != nil || er.Error == "" {
			t.Fatalf("%s: bad error body %s", tc.path, raw)
		}
		if er.RequestID == "" {
			t.Fatalf("%s: missing request id", tc.path)
		}
	}

	if st := snapshotOf(t, ts.URL); st.Version != 0 {
		t.Fatalf("failed mutations changed state: version=%d", st.Version)
	}
}

func TestHTTP_MutationsRequireEditorToken(t *testing.T) {
	ts, _ := newCatalogTS(t, tsOpts{secret: testSecret})
	tm := auth.NewTokenMaker(testSecret)

	url := ts.URL + "/catalog/primary/at/0/increment"

	resp, _ := do(t, http.MethodPost, url, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status=%d", resp.StatusCode)
	}

	viewer, err := tm.New("alice", auth.RoleViewer, time.Minute)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	resp, _ = do(t, http.MethodPost, url, viewer)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("viewer status=%d", resp.StatusCode)
	}

	editor, err := tm.New("bob", auth.RoleEditor, time.Minute)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	resp, raw := do(t, http.MethodPost, url, editor)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("editor status=%d body=%s", resp.StatusCode, raw)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/catalog", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reads stay public, status=%d", resp.StatusCode)
	}
}

func TestHTTP_RateLimitedMutations(t *testing.T) {
	ts, _ := newCatalogTS(t, tsOpts{rateLimit: 2})

	for i := 0; i < 2; i++ {
		resp, _ := do(t, http.MethodPost, ts.URL+"/catalog/primary/at/1/increment", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("call %d status=%d", i, resp.StatusCode)
		}
	}
	resp, _ := do(t, http.MethodPost, ts.URL+"/catalog/primary/at/1/increment", "")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/catalog", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reads are not limited, status=%d", resp.StatusCode)
	}
}

func TestHTTP_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts, _ := newCatalogTS(t, tsOpts{registry: reg, metricsToken: "scrape"})

	do(t, http.MethodGet, ts.URL+"/catalog", "")

	resp, _ := do(t, http.MethodGet, ts.URL+"/metrics", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unauthenticated scrape status=%d", resp.StatusCode)
	}

	resp, raw := do(t, http.MethodGet, ts.URL+"/metrics", "scrape")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scrape status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(raw), "http_requests_total") {
		t.Fatalf("missing request counter in %s", raw)
	}
}

func TestHTTP_PagesRenderAndMutate(t *testing.T) {
	ts, _ := newCatalogTS(t, tsOpts{})
	st := snapshotOf(t, ts.URL)

	resp, raw := do(t, http.MethodGet, ts.URL+"/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("page status=%d", resp.StatusCode)
	}
	for _, name := range []string{"Honda", "BMW", "Mercedes", "Baleno"} {
		if !strings.Contains(string(raw), name) {
			t.Fatalf("page missing %s", name)
		}
	}
	if strings.Contains(string(raw), "Nokia") {
		t.Fatalf("secondary catalog must not be rendered")
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/ui/"+st.Primary[2].ID+"/increment", "")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("ui mutate status=%d", resp.StatusCode)
	}
	if got := snapshotOf(t, ts.URL).Primary[2].Price; got != 201 {
		t.Fatalf("mercedes price=%d", got)
	}
}

func TestClient_RoundTrip(t *testing.T) {
	ts, _ := newCatalogTS(t, tsOpts{})
	c := catalog.NewClient(ts.URL+"/", "")
	ctx := context.Background()

	st, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if _, err := c.IncrementPrice(ctx, st.Primary[1].ID); err != nil {
		t.Fatalf("increment: %v", err)
	}
	it, err := c.DecrementPrice(ctx, st.Primary[1].ID)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if it.Price != 150 {
		t.Fatalf("round trip price=%d", it.Price)
	}

	if it, err = c.IncrementAt(ctx, 0); err != nil || it.Price != 101 {
		t.Fatalf("increment at: %+v %v", it, err)
	}
	if it, err = c.DecrementAt(ctx, 0); err != nil || it.Price != 100 {
		t.Fatalf("decrement at: %+v %v", it, err)
	}

	if _, err := c.IncrementAt(ctx, 9); !errors.Is(err, catalog.ErrRemoteNotFound) {
		t.Fatalf("err=%v want ErrRemoteNotFound", err)
	}
}

func TestClient_Unavailable(t *testing.T) {
	c := catalog.NewClient("http://127.0.0.1:1", "")
	if _, err := c.Snapshot(context.Background()); !errors.Is(err, catalog.ErrRemoteUnavailable) {
		t.Fatalf("err=%v", err)
	}
}

func TestClient_WatchReceivesSnapshots(t *testing.T) {
	ts, p := newCatalogTS(t, tsOpts{})
	c := catalog.NewClient(ts.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan catalog.State, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(st catalog.State) error {
			got <- st
			if st.Version >= 1 {
				return errStopWatch
			}
			return nil
		})
	}()

	first := <-got
	if first.Version != 0 {
		t.Fatalf("first version=%d", first.Version)
	}

	if _, err := p.IncrementAt(ctx, 0); err != nil {
		t.Fatalf("increment: %v", err)
	}

	select {
	case st := <-got:
		if st.Version != 1 || st.Primary[0].Price != 101 {
			t.Fatalf("second snapshot=%+v", st)
		}
	case <-ctx.Done():
		t.Fatalf("no snapshot event")
	}

	if err := <-done; !errors.Is(err, errStopWatch) {
		t.Fatalf("watch err=%v", err)
	}
}

var errStopWatch = errors.New("stop")
