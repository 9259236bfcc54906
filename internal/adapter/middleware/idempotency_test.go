package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"microloan-service/internal/apperror"
)

const testKey = "3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88"

// renders *apperror.AppError the way the service's error handler does
func testErrorHandler(err error, c echo.Context) {
	if he, ok := err.(*echo.HTTPError); ok {
		_ = c.JSON(he.Code, map[string]string{"code": "HTTP"})
		return
	}
	ae := apperror.From(err)
	_ = c.JSON(ae.Status, map[string]string{"code": ae.Code, "error": ae.Message})
}

// helper: new Echo with the middleware and a simple route
func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = testErrorHandler
	e.Use(IdempotencyMiddleware(rdb, ttl, nil))
	e.POST("/api/loans", handler)
	e.GET("/api/loans", handler) // for non-mutating bypass test
	return e
}

func mkJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func doReq(t *testing.T, e *echo.Echo, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad error body %q: %v", rec.Body.String(), err)
	}
	return body["code"]
}

// countingCreated returns a fresh id per call so replays are detectable.
func countingCreated(calls *int) echo.HandlerFunc {
	return func(c echo.Context) error {
		*calls++
		return c.JSON(http.StatusCreated, map[string]any{"call": *calls})
	}
}

func Test_BypassOnGET(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	e := setupEcho(rdb, 30*time.Second, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "get ok"})
	})
	rec := doReq(t, e, http.MethodGet, "/api/loans", nil, map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("GET must not touch the store, keys=%v", mr.Keys())
	}
}

func Test_NoHeader_PassesThrough(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	calls := 0
	e := setupEcho(rdb, time.Minute, countingCreated(&calls))

	for i := 0; i < 2; i++ {
		rec := doReq(t, e, http.MethodPost, "/api/loans", mkJSONBody(t, map[string]int{"x": 1}), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d", rec.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("no key should be stored without the header, keys=%v", mr.Keys())
	}
}

func Test_InvalidKey_Returns400(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	calls := 0
	e := setupEcho(rdb, time.Minute, countingCreated(&calls))

	rec := doReq(t, e, http.MethodPost, "/api/loans", mkJSONBody(t, map[string]int{"x": 1}),
		map[string]string{HeaderIdempotencyKey: "NOT-VALID"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid key => want 400, got %d", rec.Code)
	}
	if got := errorCode(t, rec); got != apperror.CodeValidation {
		t.Fatalf("code = %q", got)
	}
	if calls != 0 {
		t.Fatalf("handler must not run for an invalid key")
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	calls := 0
	e := setupEcho(rdb, 2*time.Minute, countingCreated(&calls))

	h := map[string]string{HeaderIdempotencyKey: testKey}
	body := map[string]any{"amount": 12000.5}

	rec1 := doReq(t, e, http.MethodPost, "/api/loans", mkJSONBody(t, body), h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request => want 201, got %d, body: %s", rec1.Code, rec1.Body.String())
	}

	rec2 := doReq(t, e, http.MethodPost, "/api/loans", mkJSONBody(t, body), h)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay => want 201, got %d, body: %s", rec2.Code, rec2.Body.String())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replayed response should be marked")
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}

	if ttl := mr.TTL(buildKey(http.MethodPost, "/api/loans", testKey)); ttl <= 0 || ttl > 2*time.Minute {
		t.Fatalf("stored TTL = %v", ttl)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	calls := 0
	e := setupEcho(rdb, 2*time.Minute, countingCreated(&calls))

	body := []byte(`{"x":1}`)
	key := buildKey(http.MethodPost, "/api/loans", testKey)
	entry := idempEntry{InProgress: true, BodySHA256: bodyHash(body), CreatedAt: time.Now().UTC()}
	if ok, err := provisionalSet(context.Background(), rdb, key, entry); err != nil || !ok {
		t.Fatalf("seed provisional failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, "/api/loans", bytes.NewReader(body), map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := errorCode(t, rec); got != apperror.CodeConflict {
		t.Fatalf("code = %q", got)
	}
	if calls != 0 {
		t.Fatalf("handler must not run while the key is locked")
	}
}

func Test_Conflict_When_SameKey_DifferentBody(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	calls := 0
	e := setupEcho(rdb, 2*time.Minute, countingCreated(&calls))

	h := map[string]string{HeaderIdempotencyKey: testKey}
	if rec := doReq(t, e, http.MethodPost, "/api/loans", bytes.NewReader([]byte(`{"x":1}`)), h); rec.Code != http.StatusCreated {
		t.Fatalf("first => want 201, got %d", rec.Code)
	}
	rec := doReq(t, e, http.MethodPost, "/api/loans", bytes.NewReader([]byte(`{"x":2}`)), h)
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body same key => want 409, got %d", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func Test_ServerError_IsNotStored(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	calls := 0
	e := setupEcho(rdb, time.Minute, func(c echo.Context) error {
		calls++
		if calls == 1 {
			return apperror.Storage(io.ErrUnexpectedEOF)
		}
		return c.JSON(http.StatusCreated, map[string]int{"call": calls})
	})

	h := map[string]string{HeaderIdempotencyKey: testKey}
	rec := doReq(t, e, http.MethodPost, "/api/loans", bytes.NewReader([]byte(`{}`)), h)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("first => want 500, got %d", rec.Code)
	}
	if mr.Exists(buildKey(http.MethodPost, "/api/loans", testKey)) {
		t.Fatalf("lock should be released after a 5xx")
	}

	rec = doReq(t, e, http.MethodPost, "/api/loans", bytes.NewReader([]byte(`{}`)), h)
	if rec.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("retry => want 201 from a second handler run, got %d (calls=%d)", rec.Code, calls)
	}
}

func Test_ClientError_IsReplayed(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	calls := 0
	e := setupEcho(rdb, time.Minute, func(c echo.Context) error {
		calls++
		return apperror.Validation(apperror.FieldError{Field: "amount", Message: "must be greater than 0"})
	})

	h := map[string]string{HeaderIdempotencyKey: testKey}
	for i := 0; i < 2; i++ {
		rec := doReq(t, e, http.MethodPost, "/api/loans", bytes.NewReader([]byte(`{"amount":-5}`)), h)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d => want 400, got %d", i, rec.Code)
		}
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	// closed port: SetNX fails fast
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()
	e := setupEcho(rdb, time.Minute, func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]bool{"ok": true})
	})

	rec := doReq(t, e, http.MethodPost, "/api/loans", bytes.NewReader([]byte(`{}`)), map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
	if got := errorCode(t, rec); got != CodeIdempotencyUnavailable {
		t.Fatalf("code = %q", got)
	}

	// without the header the store is never consulted
	rec = doReq(t, e, http.MethodPost, "/api/loans", bytes.NewReader([]byte(`{}`)), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("no header => want 201, got %d", rec.Code)
	}
}
