package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/lebot/internal/models"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    string
		wantErr bool
	}{
		{name: "bare integer", expr: "186", want: "186"},
		{name: "bare decimal", expr: "12.50", want: "12.5"},
		{name: "left to right, not precedence", expr: "60*2+60+6", want: "186"},
		{name: "addition then multiplication", expr: "10+5*2", want: "30"},
		{name: "subtraction", expr: "100-30-20", want: "50"},
		{name: "spaces between tokens", expr: " 55 * 2 + 6 ", want: "116"},
		{name: "multiplication sign alias", expr: "55×2+6", want: "116"},
		{name: "letter x alias", expr: "3x4", want: "12"},
		{name: "division rounds to cents", expr: "10/3", want: "3.33"},
		{name: "division left to right", expr: "10+2/4", want: "3"},
		{name: "decimal operands", expr: "1.5*3", want: "4.5"},
		{name: "empty", expr: "", wantErr: true},
		{name: "only spaces", expr: "   ", wantErr: true},
		{name: "consecutive operators", expr: "1++2", wantErr: true},
		{name: "leading operator", expr: "-5+3", wantErr: true},
		{name: "trailing operator", expr: "5+", wantErr: true},
		{name: "letters", expr: "5+abc", wantErr: true},
		{name: "parentheses", expr: "(1+2)*3", wantErr: true},
		{name: "two numbers without operator", expr: "60 2", wantErr: true},
		{name: "invalid number", expr: "1.2.3+1", wantErr: true},
		{name: "division by zero", expr: "5/0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Evaluate(%q) = %s, want error", tt.expr, got)
				}
				if !errors.Is(err, models.ErrMalformedExpression) {
					t.Errorf("Evaluate(%q) error = %v, want ErrMalformedExpression", tt.expr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", tt.expr, err)
			}
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Evaluate(%q) = %s, want %s", tt.expr, got, want)
			}
		})
	}
}

// The result must always match a manual left-to-right fold.
func TestEvaluateMatchesManualFold(t *testing.T) {
	operands := []int64{7, 3, 12, 5, 2, 9}
	ops := []byte{'*', '+', '-', '*', '+'}

	expr := ""
	acc := decimal.NewFromInt(operands[0])
	expr += decimal.NewFromInt(operands[0]).String()
	for i, op := range ops {
		next := decimal.NewFromInt(operands[i+1])
		switch op {
		case '+':
			acc = acc.Add(next)
		case '-':
			acc = acc.Sub(next)
		case '*':
			acc = acc.Mul(next)
		}
		expr += string(op) + next.String()
	}

	got, err := Evaluate(expr)
	if err != nil {
		t.Fatalf("Evaluate(%q) failed: %v", expr, err)
	}
	if !got.Equal(acc) {
		t.Errorf("Evaluate(%q) = %s, want %s", expr, got, acc)
	}
}

func TestIsExpression(t *testing.T) {
	if IsExpression("186") {
		t.Error("bare number should not be an expression")
	}
	if !IsExpression("60*2+6") {
		t.Error("formula should be an expression")
	}
}
