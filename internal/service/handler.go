package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the ledger service.
const LedgerServiceName = "lebot.v1.LedgerService"

// Procedure paths of LedgerService.
const (
	LedgerServiceGetBalanceProcedure  = "/" + LedgerServiceName + "/GetBalance"
	LedgerServiceListHistoryProcedure = "/" + LedgerServiceName + "/ListHistory"
	LedgerServiceAdjustProcedure      = "/" + LedgerServiceName + "/Adjust"
	LedgerServiceClearProcedure       = "/" + LedgerServiceName + "/Clear"
)

// NewLedgerServiceHandler builds an HTTP handler for svc and returns the path
// prefix to mount it on. The JSON codec is always installed.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(LedgerServiceGetBalanceProcedure, connect.NewUnaryHandler(LedgerServiceGetBalanceProcedure, svc.GetBalance, opts...))
	mux.Handle(LedgerServiceListHistoryProcedure, connect.NewUnaryHandler(LedgerServiceListHistoryProcedure, svc.ListHistory, opts...))
	mux.Handle(LedgerServiceAdjustProcedure, connect.NewUnaryHandler(LedgerServiceAdjustProcedure, svc.Adjust, opts...))
	mux.Handle(LedgerServiceClearProcedure, connect.NewUnaryHandler(LedgerServiceClearProcedure, svc.Clear, opts...))
	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient calls LedgerService over Connect with the JSON codec.
type LedgerServiceClient struct {
	getBalance  *connect.Client[GetBalanceRequest, GetBalanceResponse]
	listHistory *connect.Client[ListHistoryRequest, ListHistoryResponse]
	adjust      *connect.Client[AdjustRequest, AdjustResponse]
	clear       *connect.Client[ClearRequest, ClearResponse]
}

// NewLedgerServiceClient creates a client for the service at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &LedgerServiceClient{
		getBalance:  connect.NewClient[GetBalanceRequest, GetBalanceResponse](httpClient, baseURL+LedgerServiceGetBalanceProcedure, opts...),
		listHistory: connect.NewClient[ListHistoryRequest, ListHistoryResponse](httpClient, baseURL+LedgerServiceListHistoryProcedure, opts...),
		adjust:      connect.NewClient[AdjustRequest, AdjustResponse](httpClient, baseURL+LedgerServiceAdjustProcedure, opts...),
		clear:       connect.NewClient[ClearRequest, ClearResponse](httpClient, baseURL+LedgerServiceClearProcedure, opts...),
	}
}

func (c *LedgerServiceClient) GetBalance(ctx context.Context, req *connect.Request[GetBalanceRequest]) (*connect.Response[GetBalanceResponse], error) {
	return c.getBalance.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListHistory(ctx context.Context, req *connect.Request[ListHistoryRequest]) (*connect.Response[ListHistoryResponse], error) {
	return c.listHistory.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Adjust(ctx context.Context, req *connect.Request[AdjustRequest]) (*connect.Response[AdjustResponse], error) {
	return c.adjust.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Clear(ctx context.Context, req *connect.Request[ClearRequest]) (*connect.Response[ClearResponse], error) {
	return c.clear.CallUnary(ctx, req)
}
