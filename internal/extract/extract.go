// Package extract turns free text, voice transcripts and receipt scans,
// into expense suggestions. Everything here is heuristic; callers treat the
// result as a pre-filled form, never as a committed record.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"finvoice/internal/core"
)

// Extractor turns raw text into an expense suggestion. An external OCR or
// speech service can replace Heuristic behind this interface.
type Extractor interface {
	FromTranscript(text string) Suggestion
	FromReceipt(text string) Suggestion
}

// Heuristic is the built-in Extractor backed by the keyword and regex
// parsers in this package.
type Heuristic struct{}

func (Heuristic) FromTranscript(text string) Suggestion { return FromTranscript(text) }
func (Heuristic) FromReceipt(text string) Suggestion    { return FromReceipt(text) }

// Suggestion is a best-effort pre-filled expense. Zero Amount means no
// amount was found; zero Date means no date was found.
type Suggestion struct {
	Amount      float64   `json:"amount,omitempty"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Merchant    string    `json:"merchant,omitempty"`
	Date        core.Date `json:"date,omitempty"`
}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"food", []string{"restaurant", "cafe", "coffee", "food", "dining", "lunch", "dinner", "breakfast", "pizza", "burger"}},
	{"transport", []string{"uber", "taxi", "fuel", "petrol", "gas", "parking", "metro", "bus", "train"}},
	{"shopping", []string{"mall", "store", "shop", "market", "retail", "amazon", "clothing", "clothes", "shoes", "fashion"}},
	{"entertainment", []string{"movie", "cinema", "theater", "concert", "game", "show", "entertainment"}},
	{"health", []string{"hospital", "clinic", "pharmacy", "medical", "doctor", "health", "medicine"}},
	{"utilities", []string{"electricity", "water", "internet", "phone", "mobile", "bill", "recharge"}},
	{"housing", []string{"rent", "mortgage", "housing", "apartment", "maintenance"}},
	{"education", []string{"school", "college", "university", "course", "tuition", "education", "book"}},
	{"fitness", []string{"gym", "fitness", "sports", "yoga", "workout"}},
}

var (
	amountPattern  = regexp.MustCompile(`(?:[$₹€]\s*)?(\d+(?:,\d{3})*(?:\.\d{1,2})?)`)
	numericDate    = regexp.MustCompile(`(\d{1,2})[-/](\d{1,2})[-/](\d{2,4})`)
	monthNameDate  = regexp.MustCompile(`(?i)(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{2,4})`)
	monthsByPrefix = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
)

// FromTranscript parses a spoken expense note. The first number wins, the
// full transcript becomes the description.
func FromTranscript(text string) Suggestion {
	s := Suggestion{
		Description: strings.TrimSpace(text),
		Category:    detectCategory(text, ""),
	}
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		s.Amount = parseAmount(m[1])
	}
	if d, ok := findDate(text); ok {
		s.Date = d
	}
	return s
}

// FromReceipt parses OCR output of a receipt. The first non-empty line is
// taken as the merchant; the last parseable number is taken as the total.
func FromReceipt(text string) Suggestion {
	var merchant string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			merchant = line
			break
		}
	}

	var amount float64
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		if v := parseAmount(m[1]); v > 0 {
			amount = v
		}
	}

	description := merchant
	if description == "" {
		description = "Expense from receipt"
	}

	s := Suggestion{
		Amount:      amount,
		Description: description,
		Category:    detectCategory(text, merchant),
		Merchant:    merchant,
	}
	if d, ok := findDate(text); ok {
		s.Date = d
	}
	return s
}

func parseAmount(raw string) float64 {
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// detectCategory scans text and merchant for keywords; the first matching
// category wins, with "other" as the fallback.
func detectCategory(text, merchant string) string {
	combined := strings.ToLower(text + " " + merchant)
	for _, group := range categoryKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(combined, keyword) {
				return group.category
			}
		}
	}
	return "other"
}

func findDate(text string) (core.Date, bool) {
	if m := numericDate.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return core.NewDate(year, month, day), true
		}
	}
	if m := monthNameDate.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		month, ok := monthsByPrefix[strings.ToLower(m[2])]
		if ok && day >= 1 && day <= 31 {
			return core.NewDate(year, int(month), day), true
		}
	}
	return core.Date{}, false
}
