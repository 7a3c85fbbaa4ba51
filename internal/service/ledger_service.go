package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/lebot/internal/ledger"
	"github.com/mmynk/lebot/internal/middleware"
	"github.com/mmynk/lebot/internal/models"
)

// LedgerService exposes group ledgers over Connect. The caller's JWT
// identifies the chat user on whose behalf mutations run, so the same
// admin rules apply as in chat.
type LedgerService struct {
	ledger *ledger.Ledger
}

// NewLedgerService creates a new LedgerService over l.
func NewLedgerService(l *ledger.Ledger) *LedgerService {
	return &LedgerService{ledger: l}
}

// GetBalance returns the balance and totals of a group.
func (s *LedgerService) GetBalance(ctx context.Context, req *connect.Request[GetBalanceRequest]) (*connect.Response[GetBalanceResponse], error) {
	groupID := req.Msg.GroupID
	if groupID == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id is required"))
	}

	gl, err := s.ledger.Get(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &GetBalanceResponse{
		GroupID:     groupID,
		Balance:     decimal.Zero.StringFixed(2),
		OrderTotal:  decimal.Zero.StringFixed(2),
		CreditTotal: decimal.Zero.StringFixed(2),
		DebitTotal:  decimal.Zero.StringFixed(2),
	}
	if gl != nil {
		summary, err := s.ledger.Summary(ctx, groupID)
		if err != nil {
			return nil, toConnectError(err)
		}
		resp.GroupName = gl.GroupName
		resp.Initialized = true
		resp.Balance = gl.Balance.StringFixed(2)
		resp.OrderTotal = summary.OrderTotal.StringFixed(2)
		resp.OrderCount = summary.OrderCount
		resp.CreditTotal = summary.CreditTotal.StringFixed(2)
		resp.DebitTotal = summary.DebitTotal.StringFixed(2)
		resp.EntryCount = len(gl.Entries)
		resp.UpdatedAt = gl.UpdatedAt
	}

	return connect.NewResponse(resp), nil
}

// ListHistory returns the most recent entries of a group, newest first.
func (s *LedgerService) ListHistory(ctx context.Context, req *connect.Request[ListHistoryRequest]) (*connect.Response[ListHistoryResponse], error) {
	if req.Msg.GroupID == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id is required"))
	}

	history, err := s.ledger.RecentHistory(ctx, req.Msg.GroupID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}

	entries := make([]Entry, 0, len(history))
	for _, e := range history {
		entries = append(entries, entryToWire(e))
	}
	return connect.NewResponse(&ListHistoryResponse{Entries: entries}), nil
}

// Adjust applies a signed manual correction. Only admins of the group may call it.
func (s *LedgerService) Adjust(ctx context.Context, req *connect.Request[AdjustRequest]) (*connect.Response[AdjustResponse], error) {
	if req.Msg.GroupID == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id is required"))
	}
	delta, err := decimal.NewFromString(req.Msg.Amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: %q", models.ErrInvalidAmount, req.Msg.Amount))
	}

	receipt, err := s.ledger.Adjust(ctx, req.Msg.GroupID, "", actorFromContext(ctx), delta)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&AdjustResponse{
		EntryID: receipt.Entry.ID,
		Kind:    string(receipt.Entry.Kind),
		Delta:   receipt.Entry.Delta.StringFixed(2),
		Balance: receipt.Balance.StringFixed(2),
	}), nil
}

// Clear zeroes the balance of a group. Only admins of the group may call it.
func (s *LedgerService) Clear(ctx context.Context, req *connect.Request[ClearRequest]) (*connect.Response[ClearResponse], error) {
	if req.Msg.GroupID == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id is required"))
	}

	result, err := s.ledger.Clear(ctx, req.Msg.GroupID, actorFromContext(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&ClearResponse{
		Cleared:         result.Initialized,
		PreviousBalance: result.PreviousBalance.StringFixed(2),
		ClearedEntries:  result.ClearedEntries,
	}), nil
}

func actorFromContext(ctx context.Context) ledger.Actor {
	return ledger.Actor{
		ID:   middleware.GetUserID(ctx),
		Name: middleware.GetUserName(ctx),
	}
}

func entryToWire(e models.LedgerEntry) Entry {
	out := Entry{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Delta:     e.Delta.StringFixed(2),
		Kind:      string(e.Kind),
		ActorID:   e.ActorID,
		ActorName: e.ActorName,
	}
	if o := e.Order; o != nil {
		out.CustomerTag = o.CustomerTag
		out.Phone = o.Phone
		out.Address = o.Address
		out.Items = o.Items
		out.Expression = o.Expression
	}
	return out
}

// Storage and unexpected failures are logged in full; clients only see these.
var (
	errStorageUnavailable = errors.New("ledger storage unavailable")
	errInternal           = errors.New("internal error")
)

// toConnectError maps domain sentinels to Connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, models.ErrInvalidAmount), errors.Is(err, models.ErrMalformedExpression):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, models.ErrPersistence):
		slog.Error("Ledger persistence failed", "error", err)
		return connect.NewError(connect.CodeUnavailable, errStorageUnavailable)
	default:
		slog.Error("Unexpected ledger error", "error", err)
		return connect.NewError(connect.CodeInternal, errInternal)
	}
}
