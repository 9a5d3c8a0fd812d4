package quotes

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	msgTypeSubscribe = "SUB"
	msgTypeQuote     = "QUOTE"
)

// fixed2 marshals as a JSON number with exactly two decimal places.
type fixed2 float64

func (f fixed2) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(f), 'f', 2, 64)), nil
}

// QuoteEvent is one outbound quote frame.
type QuoteEvent struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Price     fixed2 `json:"price"`
	ChangePct fixed2 `json:"changePct"`
	Ts        int64  `json:"ts"`
}

// EncodeQuote serializes a quote event with 2-decimal price and changePct and
// an epoch-milliseconds timestamp.
func EncodeQuote(symbol string, price, changePct float64, now time.Time) []byte {
	data, err := json.Marshal(QuoteEvent{
		Type:      msgTypeQuote,
		Symbol:    symbol,
		Price:     fixed2(price),
		ChangePct: fixed2(changePct),
		Ts:        now.UnixMilli(),
	})
	if err != nil {
		// struct of strings and floats; cannot fail
		return nil
	}
	return data
}

type subscribeRequest struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// DecodeSubscribe parses an inbound frame as a subscribe request, returning
// the normalized symbol list (trimmed, uppercased, empties dropped). Any
// malformed or non-subscribe frame returns ok=false; this is a best-effort
// protocol and such frames are ignored, not errors. An ok result with an
// empty list means the client wants the default set.
func DecodeSubscribe(data []byte) (symbols []string, ok bool) {
	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, false
	}
	if !strings.EqualFold(strings.TrimSpace(req.Type), msgTypeSubscribe) {
		return nil, false
	}

	seen := make(map[string]struct{}, len(req.Symbols))
	out := make([]string, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out, true
}
