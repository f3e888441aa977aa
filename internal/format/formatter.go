package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)
)

const (
	DefaultReferenceTemplate = "WYF{YY}{MM}{DD}{SEQ6}"

	DateLayout = "02/01/2006 15:04:05"
	DayLayout  = "2006-01-02"
)

// FormatReference renders a purchase reference from a template, the purchase
// time and a sequence value.
//
// Supported tokens: {YYYY}, {YY}, {MM}, {DD}, {SEQ} and {SEQn} (zero padded
// to n digits). The function is pure.
func FormatReference(
	template string,
	issuedAt time.Time,
	seq int64,
) (string, error) {

	if template == "" {
		return "", fmt.Errorf("reference template is empty")
	}

	if seq < 0 {
		return "", fmt.Errorf("invalid reference sequence: %d", seq)
	}

	out := template

	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))

	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in reference format: %s", out)
	}

	return out, nil
}

// Number renders value with a space thousands separator and a comma
// decimal separator ("15 000", "163,24").
func Number(value decimal.Decimal, places int32) string {
	fixed := value.StringFixed(places)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}

func FCFA(amount decimal.Decimal) string {
	return Number(amount, 0) + " FCFA"
}

func PricePerKWh(price decimal.Decimal) string {
	return Number(price, 0) + " FCFA/kWh"
}

func KWh(energy decimal.Decimal) string {
	return Number(energy, 2) + " kWh"
}

// Date renders t in loc using the day-first layout of receipts.
func Date(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DateLayout)
}

// ThresholdRange describes a tier range in words.
func ThresholdRange(min decimal.Decimal, max *decimal.Decimal) string {
	if max == nil {
		return fmt.Sprintf("À partir de %s kWh", Number(min, 0))
	}
	return fmt.Sprintf("De %s à %s kWh", Number(min, 0), Number(*max, 0))
}
