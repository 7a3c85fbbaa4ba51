// Package calculator evaluates order total expressions and summarises ledger
// history.
package calculator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/mmynk/lebot/internal/models"
)

// resultPlaces is the number of decimal places kept in an evaluated total.
const resultPlaces = 2

// Evaluate computes a hand-written total expression such as "60*2+60+6".
//
// Operands are non-negative integers or decimals. Operators are + - * / and
// are applied strictly left to right with no precedence, the way such sums
// are written by hand: "10+5*2" is (10+5)*2 = 30. "×", "x" and "X" are
// accepted as multiplication. Whitespace between tokens is ignored.
//
// Errors wrap models.ErrMalformedExpression.
func Evaluate(expr string) (decimal.Decimal, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return decimal.Zero, err
	}
	if len(tokens) == 0 {
		return decimal.Zero, fmt.Errorf("%w: empty expression", models.ErrMalformedExpression)
	}

	var (
		acc        decimal.Decimal
		pendingOp  rune
		expectNum  = true
		haveResult bool
	)
	for _, tok := range tokens {
		if expectNum {
			if tok.op != 0 {
				if !haveResult {
					return decimal.Zero, fmt.Errorf("%w: expression starts with operator %q", models.ErrMalformedExpression, tok.op)
				}
				return decimal.Zero, fmt.Errorf("%w: consecutive operators before %q", models.ErrMalformedExpression, tok.op)
			}
			if !haveResult {
				acc = tok.num
				haveResult = true
			} else {
				acc, err = apply(acc, pendingOp, tok.num)
				if err != nil {
					return decimal.Zero, err
				}
			}
			expectNum = false
			continue
		}
		if tok.op == 0 {
			return decimal.Zero, fmt.Errorf("%w: missing operator before %s", models.ErrMalformedExpression, tok.num)
		}
		pendingOp = tok.op
		expectNum = true
	}
	if expectNum {
		return decimal.Zero, fmt.Errorf("%w: expression ends with operator %q", models.ErrMalformedExpression, pendingOp)
	}

	return acc.Round(resultPlaces), nil
}

// IsExpression reports whether s contains at least one operator, i.e. it is
// more than a bare number.
func IsExpression(s string) bool {
	return strings.ContainsAny(s, "+-*/×xX")
}

type token struct {
	num decimal.Decimal
	op  rune // zero for a number token
}

func tokenize(expr string) ([]token, error) {
	var (
		tokens []token
		num    strings.Builder
	)
	flush := func() error {
		if num.Len() == 0 {
			return nil
		}
		d, err := decimal.NewFromString(num.String())
		if err != nil {
			return fmt.Errorf("%w: invalid number %q", models.ErrMalformedExpression, num.String())
		}
		tokens = append(tokens, token{num: d})
		num.Reset()
		return nil
	}

	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9', r == '.':
			num.WriteRune(r)
		case unicode.IsSpace(r):
			if err := flush(); err != nil {
				return nil, err
			}
		case r == '+', r == '-', r == '*', r == '/', r == '×', r == 'x', r == 'X':
			if err := flush(); err != nil {
				return nil, err
			}
			op := r
			if op == '×' || op == 'x' || op == 'X' {
				op = '*'
			}
			tokens = append(tokens, token{op: op})
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", models.ErrMalformedExpression, r)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return tokens, nil
}

func apply(left decimal.Decimal, op rune, right decimal.Decimal) (decimal.Decimal, error) {
	switch op {
	case '+':
		return left.Add(right), nil
	case '-':
		return left.Sub(right), nil
	case '*':
		return left.Mul(right), nil
	case '/':
		if right.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: division by zero", models.ErrMalformedExpression)
		}
		return left.Div(right), nil
	}
	return decimal.Zero, fmt.Errorf("%w: unknown operator %q", models.ErrMalformedExpression, op)
}
