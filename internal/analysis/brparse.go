package analysis

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var brt = time.FixedZone("BRT", -3*60*60)

// ParseBRL parses a pt-BR amount such as "1.234,56" or "R$ 1.234.567".
func ParseBRL(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".")
	if s == "" {
		return decimal.Zero, false
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatBRL renders v as "R$ 1.234,56".
func FormatBRL(v float64) string {
	fixed := decimal.NewFromFloat(v).Round(2).StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, frac, _ := strings.Cut(fixed, ".")
	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	out := "R$ " + grouped.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

// ParseBRDate parses DD/MM/YYYY as a Brasília calendar day.
func ParseBRDate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation("02/01/2006", strings.TrimSpace(s), brt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func FormatBRDate(t time.Time) string {
	return t.In(brt).Format("02/01/2006")
}

// foldAccents lowercases s and strips diacritics ("Concorrência" -> "concorrencia").
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// leadingSentences returns up to n sentences from the start of text.
func leadingSentences(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" || n <= 0 {
		return ""
	}

	count := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + 1
		if next < len(text) && text[next] != ' ' {
			continue
		}
		count++
		if count == n {
			return text[:next]
		}
	}
	return text
}
