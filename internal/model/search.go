package model

// CandidateTypeMessage marks a synthetic candidate that carries a
// user-facing message instead of a symbol.
const CandidateTypeMessage = "Message"

// SymbolCandidate is a single search result row.
type SymbolCandidate struct {
	Symbol      string
	Description string
	Type        string // "Stock", "Crypto", provider type, or "Message"
	Exchange    string
}

// IsMessage reports whether the candidate is a synthetic message entry.
func (c SymbolCandidate) IsMessage() bool { return c.Type == CandidateTypeMessage }
