package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
	"github.com/comment-lens/youtube-comment-analysis-go/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	// Initialize logger to prevent nil pointer errors
	_ = logger.Init("error", "")
}

func newAuthRouter(tokens map[string]int64) *gin.Engine {
	auth := NewSessionAuth(tokens)
	router := gin.New()
	router.GET("/whoami", auth.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return router
}

func TestSessionAuth(t *testing.T) {
	tokens := map[string]int64{"token-alice": 7, "token-bob": 8}

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantUserID int64
	}{
		{
			name:       "session token header",
			headers:    map[string]string{"X-Session-Token": "token-alice"},
			wantStatus: http.StatusOK,
			wantUserID: 7,
		},
		{
			name:       "bearer token",
			headers:    map[string]string{"Authorization": "Bearer token-bob"},
			wantStatus: http.StatusOK,
			wantUserID: 8,
		},
		{
			name:       "session token takes precedence",
			headers:    map[string]string{"X-Session-Token": "token-alice", "Authorization": "Bearer token-bob"},
			wantStatus: http.StatusOK,
			wantUserID: 7,
		},
		{
			name:       "unknown token",
			headers:    map[string]string{"X-Session-Token": "token-mallory"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing token",
			headers:    map[string]string{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "authorization without bearer prefix",
			headers:    map[string]string{"Authorization": "token-alice"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	router := newAuthRouter(tokens)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusOK {
				var body map[string]int64
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("unmarshal response: %v", err)
				}
				if body["user_id"] != tt.wantUserID {
					t.Errorf("user_id = %d, want %d", body["user_id"], tt.wantUserID)
				}
				return
			}

			var errResp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
				t.Fatalf("unmarshal error response: %v", err)
			}
			if errResp.Status != http.StatusUnauthorized {
				t.Errorf("error envelope status = %d, want 401", errResp.Status)
			}
			if errResp.Path != "/whoami" {
				t.Errorf("error envelope path = %q, want /whoami", errResp.Path)
			}
		})
	}
}

func TestSessionAuthNoTokensConfigured(t *testing.T) {
	router := newAuthRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-Session-Token", "anything")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 when no tokens are configured", w.Code)
	}
}

func TestSessionAuthIgnoresEmptyConfiguredToken(t *testing.T) {
	router := newAuthRouter(map[string]int64{"": 99})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-Session-Token", "")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for empty token", w.Code)
	}
}
