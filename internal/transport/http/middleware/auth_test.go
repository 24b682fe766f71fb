package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestAuthPassesUserIDToHandler(t *testing.T) {
	req := require.New(t)

	userID := uuid.New()
	var got uuid.UUID
	handler := Auth(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authRequest(signToken(t, testSecret, userID.String())))

	req.Equal(http.StatusOK, rec.Code)
	req.Equal(userID, got)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"garbage token", "not-a-jwt"},
		{"wrong secret", "placeholder"},
		{"non-uuid subject", "placeholder"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			token := tc.token
			switch tc.name {
			case "wrong secret":
				token = signToken(t, "other-secret", uuid.New().String())
			case "non-uuid subject":
				token = signToken(t, testSecret, "not-a-uuid")
			}

			handler := Auth(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run for an invalid token")
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, authRequest(token))

			req.Equal(http.StatusUnauthorized, rec.Code)
			req.Equal("application/json", rec.Header().Get("Content-Type"))

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
			req.Equal("UNAUTHORIZED", body.Error.Code)
			req.NotEmpty(body.Error.Message)
		})
	}
}
