package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/lebot/internal/metrics"
)

// LoggingInterceptor logs every RPC call and counts it by result code.
// Client errors are logged at WARN, everything else unexpected at ERROR.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", procedure,
				"user_id", GetUserID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err == nil {
				metrics.RPCRequests.WithLabelValues(procedure, "ok").Inc()
				slog.Info("RPC ok", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			metrics.RPCRequests.WithLabelValues(procedure, code.String()).Inc()

			var connectErr *connect.Error
			if errors.As(err, &connectErr) && isClientError(code) {
				slog.Warn("RPC rejected", append(attrs, "code", code, "error", connectErr.Message())...)
			} else {
				slog.Error("RPC failed", append(attrs, "code", code, "error", err)...)
			}
			return resp, err
		}
	}
}

func isClientError(code connect.Code) bool {
	switch code {
	case connect.CodeInvalidArgument, connect.CodePermissionDenied,
		connect.CodeUnauthenticated, connect.CodeNotFound:
		return true
	}
	return false
}
