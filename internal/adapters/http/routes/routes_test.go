package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"votedesk/internal/adapters/http/middleware"
	"votedesk/internal/adapters/http/routes"
	"votedesk/internal/config"
	"votedesk/internal/core/services"
	"votedesk/internal/testutil"

	"github.com/gofiber/fiber/v2"
)

// gateway is a fake SMS/email webhook that remembers the codes it was sent
type gateway struct {
	mu    sync.Mutex
	codes map[string]string
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msg services.OTPMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	g.mu.Lock()
	g.codes[msg.To] = msg.Code
	g.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (g *gateway) code(to string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.codes[to]
}

type envelope struct {
	Success       bool                    `json:"success"`
	Message       string                  `json:"message"`
	Data          json.RawMessage         `json:"data"`
	Error         string                  `json:"error"`
	Notifications []services.Notification `json:"notifications"`
}

// browser replays cookies the way a browser would
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (b *browser) do(method, path string, body interface{}) (int, envelope) {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			b.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		b.t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func (b *browser) session() map[string]interface{} {
	b.t.Helper()
	status, env := b.do(http.MethodGet, "/api/v1/session", nil)
	if status != http.StatusOK {
		b.t.Fatalf("GET /session = %d", status)
	}
	var view map[string]interface{}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		b.t.Fatal(err)
	}
	return view
}

type server struct {
	app     *fiber.App
	gateway *gateway
}

func newServer(t *testing.T) *server {
	t.Helper()
	gw := &gateway{codes: map[string]string{}}
	hook := httptest.NewServer(gw)
	t.Cleanup(hook.Close)

	cfg := testutil.Config()
	cfg.OTP.Sender = "webhook"
	cfg.OTP.WebhookURL = hook.URL
	db := testutil.NewDB(t, cfg)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	middleware.Setup(app, cfg)
	runtime, err := routes.Setup(app, db, cfg)
	if err != nil {
		t.Fatalf("routes.Setup() error = %v", err)
	}
	t.Cleanup(runtime.Registry.CloseAll)
	return &server{app: app, gateway: gw}
}

func (s *server) browser(t *testing.T) *browser {
	return &browser{t: t, app: s.app, cookies: map[string]string{}}
}

func TestVotingOverHTTP(t *testing.T) {
	srv := newServer(t)
	b := srv.browser(t)

	if state := b.session()["state"]; state != "unauthenticated" {
		t.Fatalf("initial state = %v", state)
	}
	if b.cookies[middleware.SessionCookie] == "" {
		t.Fatal("no session cookie issued")
	}

	status, env := b.do(http.MethodPost, "/api/v1/auth/otp/phone", map[string]string{"phone": "123"})
	if status != http.StatusBadRequest || len(env.Notifications) != 1 {
		t.Errorf("invalid phone = %d, %+v", status, env)
	}

	status, env = b.do(http.MethodPost, "/api/v1/auth/otp/verify", map[string]string{"code": "123456"})
	if status != http.StatusConflict {
		t.Errorf("verify without request = %d, want 409", status)
	}

	status, _ = b.do(http.MethodPost, "/api/v1/auth/otp/phone", map[string]string{"phone": "9876543210"})
	if status != http.StatusOK {
		t.Fatalf("request otp = %d", status)
	}
	status, _ = b.do(http.MethodPost, "/api/v1/auth/otp/resend", nil)
	if status != http.StatusTooManyRequests {
		t.Errorf("immediate resend = %d, want 429", status)
	}

	status, env = b.do(http.MethodPost, "/api/v1/auth/otp/verify", map[string]string{"code": srv.gateway.code("+919876543210")})
	if status != http.StatusOK {
		t.Fatalf("verify = %d, %s", status, env.Error)
	}
	if b.cookies[middleware.AccessCookie] == "" || b.cookies[middleware.RefreshCookie] == "" {
		t.Error("token cookies not set after sign-in")
	}
	if state := b.session()["state"]; state != "voter_unverified" {
		t.Fatalf("state after sign-in = %v", state)
	}

	status, _ = b.do(http.MethodPost, "/api/v1/voter/verify-id", map[string]string{"id": "ABC1234567", "id_type": "voterId"})
	if status != http.StatusOK {
		t.Fatalf("verify-id = %d", status)
	}

	status, env = b.do(http.MethodGet, "/api/v1/voter/dashboard", nil)
	if status != http.StatusOK {
		t.Fatalf("dashboard = %d", status)
	}
	var dashboard struct {
		VoteState  string `json:"vote_state"`
		Candidates []struct {
			ID string `json:"id"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(env.Data, &dashboard); err != nil {
		t.Fatal(err)
	}
	if dashboard.VoteState != "not_voted" || len(dashboard.Candidates) == 0 {
		t.Fatalf("dashboard = %+v", dashboard)
	}

	status, env = b.do(http.MethodPost, "/api/v1/voter/vote", map[string]string{"candidate_id": dashboard.Candidates[0].ID})
	if status != http.StatusOK {
		t.Fatalf("vote = %d, %s", status, env.Error)
	}
	status, _ = b.do(http.MethodPost, "/api/v1/voter/vote", map[string]string{"candidate_id": dashboard.Candidates[0].ID})
	if status != http.StatusConflict {
		t.Errorf("second vote = %d, want 409", status)
	}
	if state := b.session()["state"]; state != "voted" {
		t.Errorf("state after vote = %v", state)
	}

	status, _ = b.do(http.MethodGet, "/api/v1/admin/overview", nil)
	if status != http.StatusForbidden {
		t.Errorf("voter reading overview = %d, want 403", status)
	}

	status, _ = b.do(http.MethodPost, "/api/v1/auth/logout", nil)
	if status != http.StatusOK {
		t.Fatalf("logout = %d", status)
	}
	if _, ok := b.cookies[middleware.AccessCookie]; ok {
		t.Error("access cookie kept after logout")
	}
	status, _ = b.do(http.MethodGet, "/api/v1/voter/dashboard", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("dashboard after logout = %d, want 401", status)
	}
}

func TestSessionRestoredFromTokenCookies(t *testing.T) {
	srv := newServer(t)
	b := srv.browser(t)

	b.do(http.MethodPost, "/api/v1/auth/otp/email", map[string]string{"email": "voter@example.com"})
	status, _ := b.do(http.MethodPost, "/api/v1/auth/otp/verify", map[string]string{"code": srv.gateway.code("voter@example.com")})
	if status != http.StatusOK {
		t.Fatalf("verify = %d", status)
	}

	// Same tokens, new server-side session: the browser restarted
	restarted := srv.browser(t)
	restarted.cookies[middleware.AccessCookie] = b.cookies[middleware.AccessCookie]
	restarted.cookies[middleware.RefreshCookie] = b.cookies[middleware.RefreshCookie]
	if state := restarted.session()["state"]; state != "voter_unverified" {
		t.Errorf("restored state = %v", state)
	}

	stale := srv.browser(t)
	stale.cookies[middleware.AccessCookie] = "stale"
	stale.cookies[middleware.RefreshCookie] = "stale"
	if state := stale.session()["state"]; state != "unauthenticated" {
		t.Errorf("stale token state = %v", state)
	}
	if _, ok := stale.cookies[middleware.AccessCookie]; ok {
		t.Error("stale token cookies not cleared")
	}
}

func TestAdminOverHTTP(t *testing.T) {
	srv := newServer(t)
	b := srv.browser(t)

	status, _ := b.do(http.MethodPost, "/api/v1/admin/login", map[string]string{"username": "admin", "password": "wrong"})
	if status != http.StatusUnauthorized {
		t.Errorf("bad admin login = %d, want 401", status)
	}
	status, _ = b.do(http.MethodGet, "/api/v1/admin/overview", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("anonymous overview = %d, want 401", status)
	}

	status, _ = b.do(http.MethodPost, "/api/v1/admin/login", map[string]string{"username": "admin", "password": "password"})
	if status != http.StatusOK {
		t.Fatalf("admin login = %d", status)
	}
	status, env := b.do(http.MethodGet, "/api/v1/admin/overview", nil)
	if status != http.StatusOK {
		t.Fatalf("overview = %d", status)
	}
	var overview struct {
		TotalVoters    int `json:"total_voters"`
		Constituencies []struct {
			ID string `json:"id"`
		} `json:"constituencies"`
	}
	if err := json.Unmarshal(env.Data, &overview); err != nil {
		t.Fatal(err)
	}
	if overview.TotalVoters != 4500 || len(overview.Constituencies) != 3 {
		t.Errorf("overview = %+v", overview)
	}

	status, _ = b.do(http.MethodGet, "/api/v1/admin/constituencies/"+config.ConstituencyID(testutil.NewDelhi)+"/results", nil)
	if status != http.StatusOK {
		t.Errorf("results = %d", status)
	}
	status, _ = b.do(http.MethodGet, "/api/v1/voter/dashboard", nil)
	if status != http.StatusForbidden {
		t.Errorf("admin on voter dashboard = %d, want 403", status)
	}
}

func TestPublicEndpoints(t *testing.T) {
	srv := newServer(t)
	b := srv.browser(t)

	status, env := b.do(http.MethodGet, "/api/v1/constituencies", nil)
	if status != http.StatusOK {
		t.Fatalf("constituencies = %d", status)
	}
	var list []map[string]interface{}
	if err := json.Unmarshal(env.Data, &list); err != nil || len(list) != 3 {
		t.Errorf("constituencies = %s, %v", env.Data, err)
	}
	if _, ok := b.cookies[middleware.SessionCookie]; ok {
		t.Error("public endpoint should not open a session")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := srv.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}
}
