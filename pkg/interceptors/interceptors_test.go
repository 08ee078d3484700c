package interceptors

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/jsoncodec"
)

var testSecret = []byte("test-secret")

type whoAmIRequest struct{}

type whoAmIResponse struct {
	UserID    string `json:"userId"`
	RequestID string `json:"requestId"`
}

const (
	whoAmIProcedure = "/test.v1.TestService/WhoAmI"
	pingProcedure   = "/test.v1.TestService/Ping"
	panicProcedure  = "/test.v1.TestService/Panic"
)

func signToken(t *testing.T, userID string, expiresIn time.Duration) string {
	t.Helper()
	claims := common.Claims{
		UserID: userID,
		Email:  "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func newTestServer(t *testing.T, opts connect.HandlerOption) *httptest.Server {
	t.Helper()

	whoAmI := func(ctx context.Context, _ *connect.Request[whoAmIRequest]) (*connect.Response[whoAmIResponse], error) {
		userID, _ := GetUserIDFromContext(ctx)
		requestID, _ := GetRequestIDFromContext(ctx)
		return connect.NewResponse(&whoAmIResponse{UserID: userID, RequestID: requestID}), nil
	}
	panics := func(context.Context, *connect.Request[whoAmIRequest]) (*connect.Response[whoAmIResponse], error) {
		panic("boom")
	}

	mux := http.NewServeMux()
	codec := jsoncodec.HandlerOption()
	mux.Handle(whoAmIProcedure, connect.NewUnaryHandler(whoAmIProcedure, whoAmI, opts, codec))
	mux.Handle(pingProcedure, connect.NewUnaryHandler(pingProcedure, whoAmI, opts, codec))
	mux.Handle(panicProcedure, connect.NewUnaryHandler(panicProcedure, panics, opts, codec))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, procedure, token string) (*connect.Response[whoAmIResponse], error) {
	t.Helper()
	client := connect.NewClient[whoAmIRequest, whoAmIResponse](srv.Client(), srv.URL+procedure, jsoncodec.ClientOption())
	req := connect.NewRequest(&whoAmIRequest{})
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return client.CallUnary(context.Background(), req)
}

func TestInterceptorChain(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chain := connect.WithInterceptors(
		NewRequestIDInterceptor("X-Request-ID"),
		NewTracingInterceptor(nil),
		NewRecoveryInterceptor(logger),
		NewLoggingInterceptor(logger),
		NewAuthInterceptor(testSecret, pingProcedure),
	)
	srv := newTestServer(t, chain)

	t.Run("valid token", func(t *testing.T) {
		resp, err := call(t, srv, whoAmIProcedure, signToken(t, "user-1", time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "user-1", resp.Msg.UserID)
		assert.NotEmpty(t, resp.Msg.RequestID)
		assert.Equal(t, resp.Msg.RequestID, resp.Header().Get("X-Request-ID"))
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := call(t, srv, whoAmIProcedure, "")
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := call(t, srv, whoAmIProcedure, signToken(t, "user-1", -time.Minute))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("public procedure", func(t *testing.T) {
		resp, err := call(t, srv, pingProcedure, "")
		require.NoError(t, err)
		assert.Empty(t, resp.Msg.UserID)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		_, err := call(t, srv, panicProcedure, signToken(t, "user-1", time.Hour))
		assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	})
}

func TestRateLimitInterceptor(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	srv := newTestServer(t, connect.WithInterceptors(NewRateLimitInterceptor(limiter)))

	_, err := call(t, srv, pingProcedure, "")
	require.NoError(t, err)

	_, err = call(t, srv, pingProcedure, "")
	assert.Equal(t, connect.CodeResourceExhausted, connect.CodeOf(err))
}

func TestParseToken(t *testing.T) {
	claims, err := ParseToken(testSecret, signToken(t, "abc", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.UserID)

	_, err = ParseToken([]byte("other"), signToken(t, "abc", time.Hour))
	assert.Error(t, err)

	_, err = ParseToken(nil, "whatever")
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, common.Claims{UserID: "abc"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, none)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = bearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer")
	assert.False(t, ok)
}

func TestSplitProcedure(t *testing.T) {
	service, method := splitProcedure("/portfolio.v1.PortfolioService/GetReport")
	assert.Equal(t, "portfolio.v1.PortfolioService", service)
	assert.Equal(t, "GetReport", method)

	service, method = splitProcedure("odd")
	assert.Equal(t, "odd", service)
	assert.Empty(t, method)
}

func TestContextHelpers(t *testing.T) {
	_, ok := GetUserIDFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUserID(context.Background(), "u-1")
	id, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)
}
