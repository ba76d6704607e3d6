package normalize

import (
	"encoding/json"
	"strings"

	"marketboard/internal/market"
)

// CompanyOverview extracts display name and exchange from a company-overview
// body. ok is false unless both are present and non-empty.
func CompanyOverview(raw []byte) (meta market.CompanyMetadata, ok bool) {
	var body struct {
		Name     string `json:"Name"`
		Exchange string `json:"Exchange"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return market.CompanyMetadata{}, false
	}
	name := strings.TrimSpace(body.Name)
	exchange := strings.TrimSpace(body.Exchange)
	if name == "" || exchange == "" {
		return market.CompanyMetadata{}, false
	}
	return market.CompanyMetadata{DisplayName: name, Exchange: exchange}, true
}
