package registry

import "strings"

// Tickers is a case-insensitive set of countervalue tickers.
type Tickers struct {
	set map[string]struct{}
}

// NewTickers builds a set from list, ignoring blanks and duplicates.
func NewTickers(list []string) *Tickers {
	t := &Tickers{set: make(map[string]struct{}, len(list))}
	for _, s := range list {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		t.set[s] = struct{}{}
	}
	return t
}

// Has reports whether ticker is known. A nil set knows nothing.
func (t *Tickers) Has(ticker string) bool {
	if t == nil {
		return false
	}
	_, ok := t.set[strings.ToUpper(strings.TrimSpace(ticker))]
	return ok
}

// Len returns the number of distinct tickers.
func (t *Tickers) Len() int {
	if t == nil {
		return 0
	}
	return len(t.set)
}
