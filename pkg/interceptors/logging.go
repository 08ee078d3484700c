package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"connectrpc.com/connect"
)

// NewLoggingInterceptor logs one line per RPC with its outcome and duration.
func NewLoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				slog.String("procedure", req.Spec().Procedure),
				slog.Duration("duration", time.Since(start)),
				slog.String("peer", req.Peer().Addr),
			}
			if id, ok := GetRequestIDFromContext(ctx); ok {
				attrs = append(attrs, slog.String("request_id", id))
			}

			if err != nil {
				code := connect.CodeOf(err)
				attrs = append(attrs, slog.String("code", code.String()), slog.Any("error", err))
				if code == connect.CodeInternal || code == connect.CodeUnknown {
					logger.ErrorContext(ctx, "rpc failed", attrs...)
				} else {
					logger.WarnContext(ctx, "rpc rejected", attrs...)
				}
				return resp, err
			}

			logger.InfoContext(ctx, "rpc completed", attrs...)
			return resp, nil
		}
	}
}

// NewRecoveryInterceptor turns handler panics into internal errors.
func NewRecoveryInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "panic recovered",
						slog.String("procedure", req.Spec().Procedure),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
					resp = nil
					err = connect.NewError(connect.CodeInternal, fmt.Errorf("internal error"))
				}
			}()
			return next(ctx, req)
		}
	}
}
