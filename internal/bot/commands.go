package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mmynk/lebot/internal/calculator"
	"github.com/mmynk/lebot/internal/models"
)

// parseCommand splits "/cmd@BotName arg1 arg2" into "cmd" and its args.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), fields[1:]
}

func (r *Router) handleCommand(ctx context.Context, ev Event, text string) (*Result, error) {
	name, args := parseCommand(text)

	switch name {
	case "start":
		return &Result{Kind: KindInfoQuery, Text: textWelcome}, nil
	case "help":
		return &Result{Kind: KindInfoQuery, Text: textHelp}, nil
	case "bill", "账单":
		return r.cmdBill(ctx, ev)
	case "history":
		return r.cmdHistory(ctx, ev)
	case "id":
		return cmdID(ev), nil
	case "set_admin", "setadmin":
		return r.cmdAdmin(ctx, ev, args, true)
	case "remove_admin", "removeadmin":
		return r.cmdAdmin(ctx, ev, args, false)
	case "list_admins", "listadmins":
		return r.cmdListAdmins(ev), nil
	default:
		slog.Debug("Ignoring unknown command", "command", name, "error", models.ErrUnknownCommand)
		return nil, nil
	}
}

func (r *Router) cmdBill(ctx context.Context, ev Event) (*Result, error) {
	l, err := r.ledger.Get(ctx, ev.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	if l == nil {
		return &Result{Kind: KindInfoQuery, Text: textNoBill}, nil
	}

	summary := calculator.Summarize(l.Entries)
	return &Result{Kind: KindInfoQuery, Text: renderBill(l, summary, r.loc), Data: summary}, nil
}

func (r *Router) cmdHistory(ctx context.Context, ev Event) (*Result, error) {
	entries, err := r.ledger.RecentHistory(ctx, ev.GroupID, r.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if len(entries) == 0 {
		return &Result{Kind: KindInfoQuery, Text: textNoHistory}, nil
	}
	return &Result{Kind: KindInfoQuery, Text: renderHistory(entries, r.loc), Data: entries}, nil
}

func cmdID(ev Event) *Result {
	if ev.IsReply && ev.RepliedToUserID != nil {
		return &Result{Kind: KindInfoQuery, Text: renderRepliedID(ev.RepliedToName, *ev.RepliedToUserID), Data: *ev.RepliedToUserID}
	}
	return &Result{Kind: KindInfoQuery, Text: renderOwnID(ev.SenderID), Data: ev.SenderID}
}

// adminArgs are the parsed arguments of /set_admin and /remove_admin.
type adminArgs struct {
	global     bool
	targetID   int64
	targetName string
	hasTarget  bool
	badID      string
}

func parseAdminArgs(ev Event, args []string) adminArgs {
	var a adminArgs
	var explicit string
	for _, arg := range args {
		switch arg {
		case "--global", "-g":
			a.global = true
		default:
			if explicit == "" {
				explicit = arg
			}
		}
	}

	switch {
	case explicit != "":
		id, err := strconv.ParseInt(explicit, 10, 64)
		if err != nil {
			a.badID = explicit
			return a
		}
		a.targetID, a.hasTarget = id, true
		a.targetName = fmt.Sprintf("用户(%d)", id)
	case ev.IsReply && ev.RepliedToUserID != nil:
		a.targetID, a.hasTarget = *ev.RepliedToUserID, true
		a.targetName = ev.RepliedToName
		if a.targetName == "" {
			a.targetName = fmt.Sprintf("用户(%d)", a.targetID)
		}
	}
	return a
}

func (r *Router) cmdAdmin(ctx context.Context, ev Event, args []string, grant bool) (*Result, error) {
	if !r.registry.CanManageAdmins(ev.SenderID) {
		slog.Warn("Unauthorized admin change", "user_id", ev.SenderID, "grant", grant)
		text := textSetAdminUnauthorized
		if !grant {
			text = textRemoveAdminUnauthorized
		}
		return &Result{Kind: KindUnauthorized, Text: text}, nil
	}

	a := parseAdminArgs(ev, args)
	if a.badID != "" {
		return &Result{Kind: KindParseFailed, Text: renderBadUserID(grant)}, nil
	}
	if !a.hasTarget {
		return &Result{Kind: KindInfoQuery, Text: renderAdminUsage(grant, a.global)}, nil
	}
	if !a.global && ev.Private {
		return &Result{Kind: KindInfoQuery, Text: renderGroupOnly(grant)}, nil
	}
	if !grant && r.registry.IsSuperAdmin(a.targetID) {
		return &Result{Kind: KindInfoQuery, Text: textCannotRemoveSuper}, nil
	}

	var changed bool
	var err error
	switch {
	case grant && a.global:
		changed, err = r.registry.GrantGlobal(ctx, ev.SenderID, a.targetID)
	case grant:
		changed, err = r.registry.GrantGroup(ctx, ev.SenderID, a.targetID, ev.GroupID)
	case a.global:
		changed, err = r.registry.RevokeGlobal(ctx, ev.SenderID, a.targetID)
	default:
		changed, err = r.registry.RevokeGroup(ctx, ev.SenderID, a.targetID, ev.GroupID)
	}
	if errors.Is(err, models.ErrUnauthorized) {
		return &Result{Kind: KindUnauthorized, Text: textSetAdminUnauthorized}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update admins: %w", err)
	}

	change := AdminChange{
		TargetID: a.targetID,
		Global:   a.global,
		Granted:  grant,
		Changed:  changed,
	}
	if !a.global {
		change.GroupID = ev.GroupID
	}

	slog.Info("Admin assignment processed",
		"actor_id", ev.SenderID,
		"target_id", a.targetID,
		"global", a.global,
		"group_id", change.GroupID,
		"grant", grant,
		"changed", changed,
	)

	return &Result{Kind: KindAdminUpdated, Text: renderAdminChange(change, a.targetName), Data: change}, nil
}

func (r *Router) cmdListAdmins(ev Event) *Result {
	if !r.registry.CanManageAdmins(ev.SenderID) {
		return &Result{Kind: KindUnauthorized, Text: textListAdminsUnauthorized}
	}
	view := r.registry.Snapshot()
	return &Result{Kind: KindInfoQuery, Text: renderAdminList(view), Data: view}
}
