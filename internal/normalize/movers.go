package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"marketboard/internal/market"
)

// Field names per logical value, newest vendor schema first. The numbered
// names are the legacy TOP_GAINERS_LOSERS shape.
var (
	symbolFields  = []string{"ticker", "symbol", "1. symbol"}
	nameFields    = []string{"name", "2. name"}
	changeFields  = []string{"change_amount", "change", "3. change"}
	priceFields   = []string{"price", "4. price"}
	percentFields = []string{"change_percentage", "change_percent", "5. change percent"}
	volumeFields  = []string{"volume", "6. volume"}
)

// List keys, newest schema first.
var (
	gainersKeys = []string{"top_gainers", "top gainers"}
	losersKeys  = []string{"top_losers", "top losers"}
)

// RawMover is one ranking record in whatever schema the vendor used.
type RawMover struct {
	r record
}

// NewRawMover wraps an already decoded vendor record.
func NewRawMover(fields map[string]any) RawMover { return RawMover{r: record(fields)} }

// Symbol returns the trimmed ticker, or "" when the record carries none.
func (m RawMover) Symbol() string {
	return trimmed(m.r.text(symbolFields...))
}

// MoversList is a decoded movers-list response. Records without a symbol
// are dropped; the order of the rest is the vendor's.
type MoversList struct {
	Gainers []RawMover
	Losers  []RawMover
}

// DecodeMovers sniffs which schema the movers-list body uses and splits it into
// gainers and losers. A missing list decodes as empty.
func DecodeMovers(raw []byte) (MoversList, error) {
	body, err := decodeObject(raw)
	if err != nil {
		return MoversList{}, err
	}
	gainers, err := moverList(body, gainersKeys)
	if err != nil {
		return MoversList{}, err
	}
	losers, err := moverList(body, losersKeys)
	if err != nil {
		return MoversList{}, err
	}
	return MoversList{Gainers: gainers, Losers: losers}, nil
}

func moverList(body map[string]json.RawMessage, keys []string) ([]RawMover, error) {
	key, arr := firstArray(body, keys...)
	if arr == nil {
		return []RawMover{}, nil
	}
	recs, err := decodeRecords(arr)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", key, err)
	}
	out := make([]RawMover, 0, len(recs))
	for _, r := range recs {
		m := RawMover{r: r}
		if m.Symbol() == "" {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Mover maps a raw record and its metadata onto the stable contract.
//
// Name is the metadata display name. When the metadata is only the default
// (display name equal to the symbol) a vendor-supplied name wins.
func Mover(raw RawMover, meta market.CompanyMetadata) market.Mover {
	symbol := raw.Symbol()

	name := strings.TrimSpace(meta.DisplayName)
	if name == "" || name == symbol {
		if vendorName := trimmed(raw.r.text(nameFields...)); vendorName != "" {
			name = vendorName
		}
	}
	if name == "" {
		name = symbol
	}

	change, _ := raw.r.text(changeFields...)
	price, _ := raw.r.text(priceFields...)
	percent, _ := raw.r.text(percentFields...)
	volume, _ := raw.r.text(volumeFields...)

	return market.Mover{
		Symbol:        symbol,
		Name:          name,
		Change:        market.Number(ParseChange(change)),
		Price:         price,
		ChangePercent: percent,
		Volume:        volume,
		DeepLinkURL:   DeepLinkURL(symbol, meta.Exchange),
	}
}

// ParseChange parses a signed decimal with '.' as separator regardless of
// locale, optionally with an exponent. Anything else, including "", "NaN",
// "Inf" and hex floats, is NaN and never zero.
func ParseChange(s string) float64 {
	s = strings.TrimSpace(s)
	if !isDecimal(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// isDecimal reports whether s is [+-]digits[.digits][e[+-]digits] with at
// least one mantissa digit.
func isDecimal(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		for i++; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		start := i
		for ; i < len(s) && isDigit(s[i]); i++ {
		}
		if i == start {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Venue is the coarse listing venue used for deep links.
type Venue int

const (
	VenueOther Venue = iota
	VenueNYSE
	VenueNASDAQ
)

// ClassifyExchange is a substring heuristic: anything mentioning NYSE (NYSE
// Arca, NYSE American...) is NYSE, then NASDAQ, else other. It is not an
// exchange registry.
func ClassifyExchange(exchange string) Venue {
	e := strings.ToUpper(exchange)
	switch {
	case strings.Contains(e, "NYSE"):
		return VenueNYSE
	case strings.Contains(e, "NASDAQ"):
		return VenueNASDAQ
	default:
		return VenueOther
	}
}

const (
	nyseQuoteURL   = "https://www.nyse.com/quote/XNYS:"
	nasdaqQuoteURL = "https://www.nasdaq.com/market-activity/stocks/"
	searchURL      = "https://www.google.com/search?q="
)

// DeepLinkURL builds a quote page link for symbol on the given exchange.
func DeepLinkURL(symbol, exchange string) string {
	switch ClassifyExchange(exchange) {
	case VenueNYSE:
		return nyseQuoteURL + url.PathEscape(strings.ToUpper(symbol))
	case VenueNASDAQ:
		return nasdaqQuoteURL + url.PathEscape(strings.ToLower(symbol))
	default:
		return searchURL + url.QueryEscape(symbol+" stock")
	}
}
