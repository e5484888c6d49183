package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether a flag is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string. Gamma sends
// liquidity and volume both ways depending on the endpoint.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// APIEvent is an event as returned by the Gamma API. An event groups one or
// more related markets.
type APIEvent struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Slug     string      `json:"slug"`
	Category string      `json:"category"`
	NegRisk  flexBool    `json:"negRisk"`
	Active   flexBool    `json:"active"`
	Closed   flexBool    `json:"closed"`
	Markets  []APIMarket `json:"markets"`
}

// APIMarket is a market as returned by the Gamma API.
type APIMarket struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	ConditionID   string     `json:"conditionId"`
	Slug          string     `json:"slug"`
	Category      string     `json:"category"`
	Active        flexBool   `json:"active"`
	Closed        flexBool   `json:"closed"`
	Outcomes      string     `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string     `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	Tokens        []Token    `json:"tokens"`
	Liquidity     flexFloat  `json:"liquidity"`
	Volume        flexFloat  `json:"volume"`
	NegRisk       flexBool   `json:"negRisk"`
	EndDate       string     `json:"endDate"`
	ClosedTime    string     `json:"closedTime"`
	CreatedAt     string     `json:"createdAt"`
	Events        []APIEvent `json:"events"`
}

// Token is a token entry inside the Gamma API market response.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// Prices decodes OutcomePrices in Outcomes order. ok is false unless the
// market is binary with parseable prices.
func (m *APIMarket) Prices() (yes, no float64, ok bool) {
	var raw []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &raw); err != nil || len(raw) != 2 {
		return 0, 0, false
	}
	p0, err0 := strconv.ParseFloat(raw[0], 64)
	p1, err1 := strconv.ParseFloat(raw[1], 64)
	if err0 != nil || err1 != nil {
		return 0, 0, false
	}

	var names []string
	if err := json.Unmarshal([]byte(m.Outcomes), &names); err == nil && len(names) == 2 &&
		strings.EqualFold(names[0], "no") && strings.EqualFold(names[1], "yes") {
		return p1, p0, true
	}
	return p0, p1, true
}

// ToSnapshot converts the market into a detection snapshot. ok is false for
// closed or non-binary markets.
func (m *APIMarket) ToSnapshot() (domain.MarketSnapshot, bool) {
	if bool(m.Closed) {
		return domain.MarketSnapshot{}, false
	}
	yes, no, ok := m.Prices()
	if !ok {
		return domain.MarketSnapshot{}, false
	}

	snap := domain.MarketSnapshot{
		ID:        m.ID,
		Question:  strings.TrimSpace(m.Question),
		Category:  m.Category,
		Slug:      m.Slug,
		YesPrice:  yes,
		NoPrice:   no,
		Liquidity: float64(m.Liquidity),
		Volume:    float64(m.Volume),
		NegRisk:   bool(m.NegRisk),
	}
	if len(m.Events) > 0 {
		ev := m.Events[0]
		snap.EventID = ev.ID
		snap.NegRisk = snap.NegRisk || bool(ev.NegRisk)
		if snap.Category == "" {
			snap.Category = ev.Category
		}
	}
	if t, ok := parseTime(m.EndDate); ok {
		snap.CloseTime = &t
	}
	if t, ok := parseTime(m.CreatedAt); ok {
		snap.CreatedAt = t
	}
	return snap, true
}

// Resolution reports the settled state. A closed market resolved YES when
// the YES token is flagged the winner or its final price is at least 0.99.
func (m *APIMarket) Resolution() domain.Resolution {
	res := domain.Resolution{MarketID: m.ID, Closed: bool(m.Closed)}
	if !res.Closed {
		return res
	}
	for _, t := range m.Tokens {
		if strings.EqualFold(t.Outcome, "yes") && t.Winner {
			res.YesWon = true
		}
	}
	if !res.YesWon {
		if yes, _, ok := m.Prices(); ok && yes >= 0.99 {
			res.YesWon = true
		}
	}
	if t, ok := parseTime(m.ClosedTime); ok {
		res.ResolvedAt = t
	}
	return res
}

// parseTime accepts the RFC 3339 and "2006-01-02 15:04:05+00" forms Gamma
// emits.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05-07", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
