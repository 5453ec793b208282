package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/service"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/store/memory"
	"github.com/AdenSahwaludin/SBSPointOfSale-sub001/internal/trust"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier123")

	repo := memory.NewSeeded()
	engine := trust.NewEngine(nil, 0)
	svc := service.New(repo, engine)
	auth := NewAuthManager("test-secret-key", time.Hour, "123456", repo)

	return New(svc, auth, "*")
}

// loginAs performs a real login through the handler and returns the bearer token.
func loginAs(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d (body: %s)", username, rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("no access token in login response: %v", body)
	}
	return token
}

func csrfToken(t *testing.T, handler http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token fetch failed: %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode csrf body: %v", err)
	}
	token, _ := body["csrf_token"].(string)
	if token == "" {
		t.Fatal("empty csrf token")
	}
	return token
}

func authedRequest(t *testing.T, handler http.Handler, method string, path string, token string, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleItems_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestHandleItems_ListWithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "cashier", "cashier123")

	rec := authedRequest(t, handler, http.MethodGet, "/api/v1/items", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Items) == 0 {
		t.Fatal("expected seeded items in response")
	}
}

func TestHandleConversions_EndToEnd(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "cashier", "cashier123")
	csrf := csrfToken(t, handler)

	rec := authedRequest(t, handler, http.MethodPost, "/api/v1/conversions", token, csrf, map[string]any{
		"source_sku": "SKU-ROKOK-KRT",
		"target_sku": "SKU-ROKOK-PCS",
		"quantity":   200,
		"mode":       "partial",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Entry struct {
			ID              string `json:"id"`
			PacksOpened     int    `json:"packs_opened"`
			DrawnFromBuffer int    `json:"drawn_from_buffer"`
			BufferBefore    int    `json:"buffer_before"`
			BufferAfter     int    `json:"buffer_after"`
		} `json:"entry"`
		Source struct {
			OnHandQty        int `json:"on_hand_qty"`
			OpenBufferPieces int `json:"open_buffer_pieces"`
		} `json:"source"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Entry.PacksOpened != 2 || body.Entry.DrawnFromBuffer != 50 {
		t.Fatalf("unexpected conversion plan: %+v", body.Entry)
	}
	if body.Source.OnHandQty != 8 || body.Source.OpenBufferPieces != 90 {
		t.Fatalf("unexpected source state: %+v", body.Source)
	}

	// The ledger entry is retrievable until reversed.
	rec = authedRequest(t, handler, http.MethodGet, "/api/v1/conversions/"+body.Entry.ID, token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching entry, got %d", rec.Code)
	}
}

func TestHandleBulkReverse_RequiresAdminAndPIN(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	cashierToken := loginAs(t, handler, "cashier", "cashier123")
	adminToken := loginAs(t, handler, "admin", "admin123")
	csrf := csrfToken(t, handler)

	rec := authedRequest(t, handler, http.MethodPost, "/api/v1/conversions", cashierToken, csrf, map[string]any{
		"source_sku": "SKU-ROKOK-KRT",
		"target_sku": "SKU-ROKOK-PCS",
		"quantity":   30,
		"mode":       "partial",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup conversion failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Entry struct {
			ID string `json:"id"`
		} `json:"entry"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	// Cashier role is rejected before the PIN is even checked.
	rec = authedRequest(t, handler, http.MethodPost, "/api/v1/conversions/reverse", cashierToken, csrf, map[string]any{
		"entry_ids":   []string{created.Entry.ID},
		"manager_pin": "123456",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}

	// Admin with a wrong PIN is rejected.
	rec = authedRequest(t, handler, http.MethodPost, "/api/v1/conversions/reverse", adminToken, csrf, map[string]any{
		"entry_ids":   []string{created.Entry.ID},
		"manager_pin": "000000",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong pin, got %d", rec.Code)
	}

	rec = authedRequest(t, handler, http.MethodPost, "/api/v1/conversions/reverse", adminToken, csrf, map[string]any{
		"entry_ids":   []string{created.Entry.ID},
		"manager_pin": "123456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var reversed struct {
		Reversed int `json:"reversed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&reversed); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if reversed.Reversed != 1 {
		t.Fatalf("expected 1 reversed, got %d", reversed.Reversed)
	}

	// The entry is gone after reversal.
	rec = authedRequest(t, handler, http.MethodGet, "/api/v1/conversions/"+created.Entry.ID, adminToken, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after reversal, got %d", rec.Code)
	}
}

func TestHandleGoodsIn_FullLifecycle(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	cashierToken := loginAs(t, handler, "cashier", "cashier123")
	adminToken := loginAs(t, handler, "admin", "admin123")
	csrf := csrfToken(t, handler)

	rec := authedRequest(t, handler, http.MethodPost, "/api/v1/goods-in", cashierToken, csrf, map[string]any{
		"lines": []map[string]any{
			{"sku": "SKU-AIR-KRT", "qty_ordered": 5},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goods-in failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Request struct {
			ID    string `json:"id"`
			Lines []struct {
				ID string `json:"id"`
			} `json:"lines"`
		} `json:"request"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	id := created.Request.ID

	rec = authedRequest(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/goods-in/%s/submit", id), cashierToken, csrf, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	// Pending queue is admin-only.
	rec = authedRequest(t, handler, http.MethodGet, "/api/v1/goods-in/pending", cashierToken, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier pending list, got %d", rec.Code)
	}
	rec = authedRequest(t, handler, http.MethodGet, "/api/v1/goods-in/pending", adminToken, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pending list failed: %d", rec.Code)
	}

	rec = authedRequest(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/goods-in/%s/approve", id), adminToken, csrf, map[string]any{
		"note": "ok",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = authedRequest(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/goods-in/%s/receive", id), cashierToken, csrf, map[string]any{
		"lines": []map[string]any{
			{"line_id": created.Request.Lines[0].ID, "qty_received": 5},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("receive failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var received struct {
		Request struct {
			Status string `json:"status"`
		} `json:"request"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&received); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if received.Request.Status != "received" {
		t.Fatalf("expected received status, got %s", received.Request.Status)
	}

	// Terminal state: a second receive is rejected.
	rec = authedRequest(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/goods-in/%s/receive", id), cashierToken, csrf, map[string]any{
		"lines": []map[string]any{
			{"line_id": created.Request.Lines[0].ID, "qty_received": 1},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double receive, got %d", rec.Code)
	}
}

func TestHandleConversions_MissingCSRFRejected(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "cashier", "cashier123")

	rec := authedRequest(t, handler, http.MethodPost, "/api/v1/conversions", token, "", map[string]any{
		"source_sku": "SKU-ROKOK-KRT",
		"target_sku": "SKU-ROKOK-PCS",
		"quantity":   30,
		"mode":       "partial",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", rec.Code)
	}
}

func TestHandleAuditLogs_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	cashierToken := loginAs(t, handler, "cashier", "cashier123")
	adminToken := loginAs(t, handler, "admin", "admin123")

	rec := authedRequest(t, handler, http.MethodGet, "/api/v1/audit-logs", cashierToken, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}

	rec = authedRequest(t, handler, http.MethodGet, "/api/v1/audit-logs", adminToken, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}
