// Package extract pulls best-effort entities out of a single utterance.
// Each field is matched independently and a miss leaves the field nil.
package extract

import (
	"regexp"
	"strings"

	"realestate-assistant/internal/models"
)

var (
	nameMarker = regexp.MustCompile(`(?i)(?:للعميل|العميل|عميل|اسمه|اسمها|باسم|\bcustomer\b|\bclient\b|\bname\b)(?:\s*[:：]\s*|\s+)([\p{Arabic}A-Za-z]+(?:\s+[\p{Arabic}A-Za-z]+){0,2})`)

	// Phone patterns capture group 1 and reject digits glued to either side.
	saudiPhone = regexp.MustCompile(`(?:^|[^\d+])((?:\+966|00966|0)?5\d{8})(?:\D|$)`)
	intlPhone  = regexp.MustCompile(`(?:^|[^\d+])((?:\+|00)\d{8,15})(?:\D|$)`)

	slashDate = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	dashDate  = regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`)
	isoDate   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

	clock = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2})(?:\s*(صباحاً|صباحا|مساءً|مساء|ص|م|am|pm)(\p{L}*))?`)

	email = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// nameStopWords end a captured name.
var nameStopWords = map[string]bool{
	"في": true, "من": true, "رقم": true, "جوال": true, "جواله": true, "جوالها": true,
	"تاريخ": true, "يوم": true, "الساعة": true, "على": true, "مع": true, "عن": true,
	"و": true, "او": true, "ايميل": true, "بريد": true,
	"phone": true, "number": true, "email": true, "at": true, "on": true, "in": true,
	"with": true, "and": true, "or": true, "from": true,
}

// Extract runs every field pattern against text.
func Extract(text string) models.ExtractedEntities {
	normalized := NormalizeDigits(text)
	return models.ExtractedEntities{
		Name:  extractName(normalized),
		Phone: firstMatch(normalized, saudiPhone, intlPhone),
		Date:  firstMatch(normalized, slashDate, dashDate, isoDate),
		Time:  extractTime(normalized),
		Email: firstMatch(normalized, email),
	}
}

// Date returns the first date found in text, or nil.
func Date(text string) *string {
	return firstMatch(NormalizeDigits(text), slashDate, dashDate, isoDate)
}

// Time returns the first clock time found in text, or nil.
func Time(text string) *string {
	return extractTime(NormalizeDigits(text))
}

func firstMatch(text string, patterns ...*regexp.Regexp) *string {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := m[0]
		if len(m) > 1 {
			v = m[1]
		}
		if v != "" {
			return &v
		}
	}
	return nil
}

func extractName(text string) *string {
	m := nameMarker.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var words []string
	for _, w := range strings.Fields(m[1]) {
		if nameStopWords[strings.ToLower(w)] {
			break
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil
	}
	name := strings.Join(words, " ")
	return &name
}

func extractTime(text string) *string {
	m := clock.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	out := m[1]
	// A suffix glued to further letters belongs to the next word.
	if m[2] != "" && m[3] == "" {
		out += " " + m[2]
	}
	return &out
}

var digitReplacer = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
)

// NormalizeDigits maps Arabic-Indic and Persian digits to ASCII.
func NormalizeDigits(text string) string {
	return digitReplacer.Replace(text)
}
