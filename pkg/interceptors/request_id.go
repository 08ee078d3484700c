package interceptors

import (
	"context"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

const requestIDKey contextKey = "request_id"

// NewRequestIDInterceptor propagates the request id header, generating one
// when the caller did not send it, and echoes it on the response.
func NewRequestIDInterceptor(header string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			id := req.Header().Get(header)
			if id == "" {
				id = uuid.NewString()
			}
			ctx = context.WithValue(ctx, requestIDKey, id)

			resp, err := next(ctx, req)
			if resp != nil {
				resp.Header().Set(header, id)
			}
			return resp, err
		}
	}
}

// GetRequestIDFromContext returns the request id, if any.
func GetRequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}
