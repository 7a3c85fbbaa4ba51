// Package parser turns free-form order messages into structured orders.
//
// An order message starts with the trigger letter (by default "a") followed
// by whitespace. The first content line is the customer tag, phone and
// address lines are recognised by the classifier chain and everything else
// up to the total line is an item. The total line starts with one of the
// total markers ("总价", "总计", "合计", "金额", "总") and carries either a
// number or an arithmetic formula, optionally followed by "=" and a stated
// result.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/mmynk/lebot/internal/calculator"
	"github.com/mmynk/lebot/internal/models"
)

// MismatchPolicy decides what happens when a formula's result differs from
// the number written after "=".
type MismatchPolicy string

const (
	// MismatchOverride keeps the computed value and records the stated one.
	MismatchOverride MismatchPolicy = "override"
	// MismatchReject fails the parse with models.ErrTotalMismatch.
	MismatchReject MismatchPolicy = "reject"
)

// DefaultTotalMarkers are the total line prefixes recognised out of the box.
var DefaultTotalMarkers = []string{"总价", "总计", "合计", "金额", "总"}

// Config configures a Parser. Zero fields fall back to defaults.
type Config struct {
	Trigger      rune
	TotalMarkers []string
	Mismatch     MismatchPolicy
	Classifiers  []Classifier
}

// DefaultConfig returns the configuration used by the bot unless overridden.
func DefaultConfig() Config {
	return Config{
		Trigger:      'a',
		TotalMarkers: DefaultTotalMarkers,
		Mismatch:     MismatchOverride,
		Classifiers:  DefaultClassifiers,
	}
}

// Parser is stateless after construction and safe for concurrent use.
type Parser struct {
	trigger     rune
	markers     []string
	mismatch    MismatchPolicy
	classifiers []Classifier
}

// New builds a Parser from cfg.
func New(cfg Config) *Parser {
	def := DefaultConfig()
	if cfg.Trigger == 0 {
		cfg.Trigger = def.Trigger
	}
	if len(cfg.TotalMarkers) == 0 {
		cfg.TotalMarkers = def.TotalMarkers
	}
	if cfg.Mismatch == "" {
		cfg.Mismatch = def.Mismatch
	}
	if cfg.Classifiers == nil {
		cfg.Classifiers = def.Classifiers
	}

	markers := make([]string, 0, len(cfg.TotalMarkers))
	for _, m := range cfg.TotalMarkers {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}
	// Longest first so "总价" wins over "总".
	sort.SliceStable(markers, func(i, j int) bool {
		return utf8.RuneCountInString(markers[i]) > utf8.RuneCountInString(markers[j])
	})

	return &Parser{
		trigger:     unicode.ToLower(cfg.Trigger),
		markers:     markers,
		mismatch:    cfg.Mismatch,
		classifiers: cfg.Classifiers,
	}
}

// HasTrigger reports whether text opens with the trigger letter followed by
// whitespace or the end of the text. Leading whitespace is ignored.
func (p *Parser) HasTrigger(text string) bool {
	_, ok := p.stripTrigger(text)
	return ok
}

func (p *Parser) stripTrigger(text string) (string, bool) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError || unicode.ToLower(r) != p.trigger {
		return "", false
	}
	rest := text[size:]
	if rest == "" {
		return "", true
	}
	next, _ := utf8.DecodeRuneInString(rest)
	if !unicode.IsSpace(next) {
		return "", false
	}
	return rest, true
}

// Parse extracts an order from text.
//
// It returns models.ErrNotAnOrder when the trigger is missing,
// models.ErrNoTotalFound when no line carries a total marker and an error
// wrapping models.ErrMalformedExpression when the total cannot be evaluated.
func (p *Parser) Parse(text string) (*models.ParsedOrder, error) {
	body, ok := p.stripTrigger(text)
	if !ok {
		return nil, models.ErrNotAnOrder
	}

	order := &models.ParsedOrder{}
	first := true
	foundTotal := false
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if totalBody, ok := p.matchMarker(line); ok {
			if err := p.resolveTotal(order, totalBody); err != nil {
				return nil, err
			}
			foundTotal = true
			break
		}
		if first {
			order.CustomerTag = line
			first = false
			continue
		}
		switch Classify(line, p.classifiers) {
		case FieldPhone:
			if order.Phone == "" {
				order.Phone = line
				continue
			}
		case FieldAddress:
			if order.Address == "" {
				order.Address = line
				continue
			}
		}
		order.Items = append(order.Items, line)
	}

	if !foundTotal {
		return nil, models.ErrNoTotalFound
	}
	return order, nil
}

// matchMarker returns the text after a total marker. A marker only counts
// when a number or "=" follows it, so content such as "总部大厦3楼" or
// "金额较大请核对" stays content.
func (p *Parser) matchMarker(line string) (string, bool) {
	for _, m := range p.markers {
		if !strings.HasPrefix(line, m) {
			continue
		}
		body := line[len(m):]
		if startsTotal(body) {
			return body, true
		}
	}
	return "", false
}

func startsTotal(body string) bool {
	body = symbolReplacer.Replace(body)
	body = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(body), ":"))
	r, _ := utf8.DecodeRuneInString(body)
	return unicode.IsDigit(r) || r == '='
}

var symbolReplacer = strings.NewReplacer(
	"＋", "+",
	"－", "-",
	"＊", "*",
	"×", "*",
	"／", "/",
	"÷", "/",
	"＝", "=",
	"：", ":",
	"．", ".",
)

// leadingNumber accepts a number followed by a remark ("186 包邮"), but not
// by a second number.
var leadingNumber = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([^\s\d.+\-*/xX=]|$)`)

// resolveTotal fills in Total, Expression and StatedTotal from the text after
// the marker.
func (p *Parser) resolveTotal(order *models.ParsedOrder, body string) error {
	body = symbolReplacer.Replace(body)
	body = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(body), ":"))
	if body == "" {
		return fmt.Errorf("%w: empty total", models.ErrMalformedExpression)
	}

	if idx := strings.Index(body, "="); idx >= 0 {
		lhs := strings.TrimSpace(body[:idx])
		rhs := trimUnit(body[idx+1:])

		computed, lhsErr := calculator.Evaluate(lhs)
		stated, rhsErr := decimal.NewFromString(rhs)
		switch {
		case lhsErr == nil:
			order.Total = computed
			order.Expression = lhs
			if rhsErr == nil {
				order.StatedTotal = &stated
				if p.mismatch == MismatchReject && !computed.Equal(stated) {
					return fmt.Errorf("%w: %s = %s, stated %s",
						models.ErrTotalMismatch, lhs, computed.String(), stated.String())
				}
			}
		case rhsErr == nil:
			order.Total = stated
			order.StatedTotal = &stated
		default:
			return lhsErr
		}
	} else {
		expr := trimUnit(body)
		total, err := calculator.Evaluate(expr)
		if err != nil {
			m := leadingNumber.FindStringSubmatch(expr)
			if m == nil {
				return err
			}
			total = decimal.RequireFromString(m[1])
		} else if calculator.IsExpression(expr) {
			order.Expression = expr
		}
		order.Total = total
	}

	if order.Total.IsNegative() {
		return fmt.Errorf("%w: negative total %s", models.ErrMalformedExpression, order.Total.String())
	}
	return nil
}

func trimUnit(s string) string {
	s = strings.TrimSpace(s)
	for _, unit := range []string{"块钱", "元", "块", "rmb", "RMB"} {
		s = strings.TrimSuffix(s, unit)
	}
	return strings.TrimSpace(s)
}

// IsParseFailure reports whether err means the message looked like an order
// but could not be understood, as opposed to not being an order at all.
func IsParseFailure(err error) bool {
	return errors.Is(err, models.ErrMalformedExpression) || errors.Is(err, models.ErrNoTotalFound)
}
