package market

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// DefaultExchange is assumed for any symbol whose listing could not be resolved.
// It is a policy default, not a statement about where the symbol actually trades.
const DefaultExchange = "NASDAQ"

// CompanyMetadata is the supplementary per-symbol data used to label a mover.
type CompanyMetadata struct {
	DisplayName string `json:"displayName" yaml:"displayName"`
	Exchange    string `json:"exchange" yaml:"exchange"`
}

// DefaultMetadata returns the metadata used when enrichment is off or fails.
func DefaultMetadata(symbol string) CompanyMetadata {
	return CompanyMetadata{DisplayName: symbol, Exchange: DefaultExchange}
}

// Number is a float64 that survives JSON when it is NaN or infinite.
// Non-finite values encode as null and null decodes back to NaN.
type Number float64

// NaN returns a Number holding NaN.
func NaN() Number { return Number(math.NaN()) }

// IsNaN reports whether n is NaN.
func (n Number) IsNaN() bool { return math.IsNaN(float64(n)) }

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*n = NaN()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Mover is one entry of the gainers or losers ranking.
// Price and ChangePercent keep the vendor's text untouched.
type Mover struct {
	Symbol        string `json:"symbol" yaml:"symbol"`
	Name          string `json:"name" yaml:"name"`
	Change        Number `json:"change" yaml:"change"`
	Price         string `json:"price" yaml:"price"`
	ChangePercent string `json:"changePercent" yaml:"changePercent"`
	Volume        string `json:"volume,omitempty" yaml:"volume,omitempty"`
	DeepLinkURL   string `json:"deepLinkUrl" yaml:"deepLinkUrl"`
}

// NewsItem is a single headline. PublishedAt is Unix seconds, NaN when the
// vendor timestamp could not be parsed.
type NewsItem struct {
	Title       string `json:"title" yaml:"title"`
	Summary     string `json:"summary" yaml:"summary"`
	Link        string `json:"link" yaml:"link"`
	PublishedAt Number `json:"publishedAt" yaml:"publishedAt"`
	Source      string `json:"source" yaml:"source"`
}

// MoversPayload keeps the vendor's ranking order in both lists.
type MoversPayload struct {
	Gainers []Mover `json:"gainers" yaml:"gainers"`
	Losers  []Mover `json:"losers" yaml:"losers"`
}

type NewsPayload struct {
	News []NewsItem `json:"news" yaml:"news"`
}
