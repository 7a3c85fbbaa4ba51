// Package models defines the core domain models for LeBot.
//
// # Models
//
//   - GroupLedger: running balance and append-only history for one chat group
//   - LedgerEntry: a single balance change (order, admin credit, admin debit)
//   - ParsedOrder: structured fields extracted from an order message
//   - Role / AdminSets: the tiered permission model
//   - BalanceSnapshot: periodic copy of a group's balance
//
// Groups and users are identified by the chat platform's numeric IDs
// (Telegram chat and user IDs), never by display names.
//
// # Money
//
// All amounts are decimal.Decimal. Floats are never used for balances so that
// Balance always equals the exact sum of entry deltas.
//
// # Errors
//
// The sentinel errors in errors.go form the error taxonomy shared by the
// parser, the ledger and the command router. Callers match them with
// errors.Is; producers wrap them with fmt.Errorf("...: %w", ...).
package models
