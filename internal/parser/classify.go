package parser

import (
	"regexp"
	"strings"
	"unicode"
)

// Field is the role a content line plays in an order.
type Field int

const (
	FieldItem Field = iota
	FieldPhone
	FieldAddress
)

func (f Field) String() string {
	switch f {
	case FieldPhone:
		return "phone"
	case FieldAddress:
		return "address"
	default:
		return "item"
	}
}

// Classifier tags a line with Field when Match returns true.
type Classifier struct {
	Field Field
	Match func(line string) bool
}

// DefaultClassifiers is the chain used by New: phone first, then address.
// Lines matching neither are items.
var DefaultClassifiers = []Classifier{
	{Field: FieldPhone, Match: IsPhone},
	{Field: FieldAddress, Match: IsAddress},
}

// Classify runs the chain over line; the first match wins.
func Classify(line string, chain []Classifier) Field {
	for _, c := range chain {
		if c.Match(line) {
			return c.Field
		}
	}
	return FieldItem
}

var (
	mobilePattern = regexp.MustCompile(`(^|\D)1[3-9]\d{9}(\D|$)`)
	phoneLabel    = regexp.MustCompile(`^(?i)(电话|手机|联系电话|tel|phone)\s*[:：]?\s*`)
)

// IsPhone reports whether line is a phone number: a mainland mobile number
// anywhere in the line, or a line made only of 7 to 15 digits with optional
// "+", "-" and spaces (an optional "电话:" style label is allowed).
func IsPhone(line string) bool {
	if mobilePattern.MatchString(line) {
		return true
	}
	rest := phoneLabel.ReplaceAllString(strings.TrimSpace(line), "")
	if rest == "" {
		return false
	}
	digits := 0
	for i, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == '-', r == ' ':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// addressTokens are administrative divisions and building words that mark a
// line as a postal address.
var addressTokens = []string{
	"省", "市", "区", "县", "镇", "乡", "村",
	"路", "街", "道", "巷", "号", "栋", "幢", "楼", "单元", "室", "小区",
}

// IsAddress reports whether line contains a regional or building token and at
// least one other character besides it.
func IsAddress(line string) bool {
	line = strings.TrimSpace(line)
	if len([]rune(line)) < 3 {
		return false
	}
	hasHan := false
	for _, r := range line {
		if unicode.Is(unicode.Han, r) {
			hasHan = true
			break
		}
	}
	if !hasHan {
		return false
	}
	for _, tok := range addressTokens {
		if strings.Contains(line, tok) {
			return true
		}
	}
	return false
}
