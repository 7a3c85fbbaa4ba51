package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/lebot/internal/auth"
	"github.com/mmynk/lebot/internal/metrics"
)

type jsonCodec struct{}

func (jsonCodec) Name() string                    { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

type whoAmI struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

const whoAmIProcedure = "/lebot.test.Echo/WhoAmI"

func setupEcho(t *testing.T, jwtManager *auth.JWTManager) *connect.Client[whoAmI, whoAmI] {
	t.Helper()

	handler := connect.NewUnaryHandler(whoAmIProcedure,
		func(ctx context.Context, _ *connect.Request[whoAmI]) (*connect.Response[whoAmI], error) {
			return connect.NewResponse(&whoAmI{UserID: GetUserID(ctx), Name: GetUserName(ctx)}), nil
		},
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(RequireAuth(jwtManager), LoggingInterceptor()),
	)
	mux := http.NewServeMux()
	mux.Handle(whoAmIProcedure, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return connect.NewClient[whoAmI, whoAmI](http.DefaultClient, server.URL+whoAmIProcedure, connect.WithCodec(jsonCodec{}))
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	client := setupEcho(t, jwtManager)
	ctx := context.Background()

	t.Run("valid token puts identity in context", func(t *testing.T) {
		token, err := jwtManager.Generate(4242, "ops")
		require.NoError(t, err)

		okCalls := metrics.RPCRequests.WithLabelValues(whoAmIProcedure, "ok")
		before := testutil.ToFloat64(okCalls)

		req := connect.NewRequest(&whoAmI{})
		req.Header().Set("Authorization", "Bearer "+token)
		resp, err := client.CallUnary(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, int64(4242), resp.Msg.UserID)
		assert.Equal(t, "ops", resp.Msg.Name)
		assert.Equal(t, before+1, testutil.ToFloat64(okCalls))
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := connect.NewRequest(&whoAmI{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}
			_, err := client.CallUnary(ctx, req)
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		})
	}
}

func TestGetUserIDDefaults(t *testing.T) {
	assert.Equal(t, int64(0), GetUserID(context.Background()))
	assert.Equal(t, "", GetUserName(context.Background()))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, isClientError(connect.CodePermissionDenied))
	assert.True(t, isClientError(connect.CodeInvalidArgument))
	assert.False(t, isClientError(connect.CodeUnavailable))
	assert.False(t, isClientError(connect.CodeInternal))
}
