// Package receipt extracts structured purchase data from receipt images:
// OCR through the vision collaborator, then heuristic text parsing. The
// parser is pure and safe to run on arbitrary OCR noise.
package receipt

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Receipt is the parsed result returned to the client.
type Receipt struct {
	Store       string   `json:"store"`
	Items       []string `json:"items"`
	TotalAmount int64    `json:"totalAmount"`
	Date        string   `json:"date"`
}

// Fallback labels when a field cannot be recognized.
const (
	unknownStore = "매장명 인식 실패"
	unknownItem  = "상품명 인식 실패"
)

var (
	hangulRe     = regexp.MustCompile(`[가-힣]`)
	storeNoiseRe = regexp.MustCompile(`\d+원|\d+:\d+|\d+\.`)
	commaAmount  = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)`)
	pureDigitsRe = regexp.MustCompile(`^\d+$`)

	hangulItemRe = regexp.MustCompile(`[가-힣]{2,}(?:\s*[가-힣]*)*`)
	latinItemRe  = regexp.MustCompile(`[A-Za-z]{3,}(?:\s*[A-Za-z]*)*`)
)

// datePattern carries the capture-group order alongside the regexp
// because receipts print dates a few different ways.
type datePattern struct {
	re       *regexp.Regexp
	yearLast bool // M-D-YYYY style
}

var datePatterns = []datePattern{
	{re: regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)},
	{re: regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`)},
	{re: regexp.MustCompile(`(\d{2})[/-](\d{1,2})[/-](\d{1,2})`)},
	{re: regexp.MustCompile(`(\d{2})\.(\d{1,2})\.(\d{1,2})`)},
	{re: regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`), yearLast: true},
}

var storeExcludeKeywords = []string{"영수증", "거래", "카드", "현금", "승인", "번호", "시간", "일시"}

var totalKeywords = []string{"총계", "합계", "총액", "TOTAL", "결제금액", "카드승인", "받을금액", "총합", "지불금액"}

var itemLineExclude = []string{"원", "카드", "승인", "거래", "시간", ":", "POS", "번호", "전화", "주소", "사업자"}

var itemNameExclude = []string{"매장", "점포", "지점", "대표"}

// Plausible single-receipt total range in won; used when no total keyword
// line is found and the maximum candidate has to be guessed.
const (
	minPlausibleTotal = 500
	maxPlausibleTotal = 1000000
)

const maxItems = 5

// Parse extracts store, date, total and purchased items from raw OCR
// text. Missing fields get explicit fallback values; the date defaults to
// now when no date is printed on the receipt.
func Parse(text string, now time.Time) Receipt {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	r := Receipt{
		Store: parseStore(lines),
		Date:  parseDate(lines),
		Items: parseItems(lines),
	}
	r.TotalAmount = parseTotal(lines)

	if r.Store == "" {
		r.Store = unknownStore
	}
	if r.Date == "" {
		r.Date = now.Format("2006-01-02")
	}
	if len(r.Items) == 0 {
		r.Items = []string{unknownItem}
	}
	return r
}

// parseStore scans the top lines for a Korean name that is not an amount,
// a timestamp or boilerplate.
func parseStore(lines []string) string {
	top := lines
	if len(top) > 5 {
		top = top[:5]
	}
	for _, line := range top {
		if !hangulRe.MatchString(line) || storeNoiseRe.MatchString(line) {
			continue
		}
		if containsAnyKeyword(line, storeExcludeKeywords) {
			continue
		}
		if len([]rune(line)) >= 2 {
			return line
		}
	}
	return ""
}

func parseDate(lines []string) string {
	for _, line := range lines {
		for _, p := range datePatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			year, month, day := m[1], m[2], m[3]
			if p.yearLast {
				month, day, year = m[1], m[2], m[3]
			}
			if len(year) == 2 {
				if y, _ := strconv.Atoi(year); y < 50 {
					year = "20" + year
				} else {
					year = "19" + year
				}
			}
			return year + "-" + zeroPad(month) + "-" + zeroPad(day)
		}
	}
	return ""
}

// parseTotal prefers a keyword line ("합계", "TOTAL", ...); otherwise it
// takes the plausible maximum of every amount on the receipt.
func parseTotal(lines []string) int64 {
	for _, line := range lines {
		if !containsAnyKeyword(line, totalKeywords) {
			continue
		}
		if m := commaAmount.FindStringSubmatch(line); m != nil {
			return parseWon(m[1])
		}
	}

	var max int64
	for _, line := range lines {
		for _, m := range commaAmount.FindAllStringSubmatch(line, -1) {
			amount := parseWon(m[1])
			if amount >= minPlausibleTotal && amount <= maxPlausibleTotal && amount > max {
				max = amount
			}
		}
	}
	return max
}

func parseItems(lines []string) []string {
	if len(lines) <= 2 {
		return nil
	}
	seen := make(map[string]struct{})
	var items []string
	for _, line := range lines[2:] {
		if containsAnyKeyword(line, itemLineExclude) || pureDigitsRe.MatchString(line) {
			continue
		}
		for _, re := range []*regexp.Regexp{hangulItemRe, latinItemRe} {
			for _, match := range re.FindAllString(line, -1) {
				item := strings.TrimSpace(match)
				if len([]rune(item)) < 2 || pureDigitsRe.MatchString(item) {
					continue
				}
				if containsAnyKeyword(item, itemNameExclude) {
					continue
				}
				if _, dup := seen[item]; dup {
					continue
				}
				seen[item] = struct{}{}
				items = append(items, item)
			}
		}
	}
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func parseWon(s string) int64 {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func zeroPad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func containsAnyKeyword(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
