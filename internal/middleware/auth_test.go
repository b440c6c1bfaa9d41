package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	handler := APIKeyAuth([]string{"secret-key"})(okHandler())

	tests := []struct {
		name       string
		method     string
		key        string
		wantStatus int
	}{
		{
			name:       "read without key is open",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
		{
			name:       "write without key rejected",
			method:     http.MethodPut,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "write with wrong key rejected",
			method:     http.MethodPut,
			key:        "wrong",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "write with valid key allowed",
			method:     http.MethodPut,
			key:        "secret-key",
			wantStatus: http.StatusOK,
		},
		{
			name:       "delete gated like put",
			method:     http.MethodDelete,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/images/rollfilm/482/frame_01/tags", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("%s status = %d, want %d", tt.method, rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	handler := rl.Limit(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests = %v, want first two OK", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", codes[2])
	}

	// A different client gets its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("fresh client status = %d, want 200", rr.Code)
	}
}
