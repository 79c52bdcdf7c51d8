// Package mention classifies tokens in free text into cryptocurrency
// mentions: address-like strings (EVM hex, base58 runs) and ticker-like
// words ($BONK, #bonk, BONK).
//
// Extraction is pure and total: any input string yields a (possibly empty)
// mention map, never an error. Callers aggregate across texts.
package mention

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Mention is one classified token with its occurrence count in a single text.
type Mention struct {
	Count      int       `json:"count"`
	TickerLike bool      `json:"ticker_like"`
	LastSeen   time.Time `json:"last_seen"`
}

var (
	evmAddrRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	base58Re  = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	sigilRe   = regexp.MustCompile(`^[$#][A-Za-z0-9]{2,10}$`)
	bareUpRe  = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
)

// stopWords are common English and crypto filler words that match the bare
// uppercase or sigil patterns but are never coin references. Checked
// case-insensitively.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"THE", "AND", "FOR", "YOU", "ARE", "NOT", "BUT", "ALL", "CAN",
		"GET", "NOW", "NEW", "HOW", "WHY", "WHO", "ITS", "OUT", "TOP",
		"BIG", "LOW", "BUY", "SELL", "HOLD", "SEND", "THIS", "THAT",
		"WITH", "JUST", "ONLY", "WHEN", "WHAT", "MOON", "PUMP", "DUMP",
		"HODL", "LFG", "WAGMI", "NGMI", "GM", "GN", "ATH", "ATL",
		"DYOR", "NFA", "FOMO", "FUD", "IMO", "IMHO", "TLDR", "LOL",
		"OMG", "WTF", "USD", "USA", "CEO", "APY", "APR", "TVL",
		"DEX", "CEX", "NFT", "DAO", "DEFI", "WEB3", "100X", "1000X",
		"RT", "DM", "PS", "OK", "NO", "GO", "UP", "SO", "AI",
	} {
		stopWords[w] = struct{}{}
	}
}

// Extract classifies every token of text and returns a map of mention key to
// occurrence data. Tokens are split on whitespace and commas. Each token is
// tried against the address rule first, then the ticker rule; the first rule
// that matches wins, so one occurrence is never counted twice.
//
// Address-like keys are stored verbatim (after stripping any URL path down
// to its last segment). Ticker-like keys keep their original case with the
// leading $ or # removed; the stop-word check is case-insensitive.
func Extract(text string, at time.Time) map[string]Mention {
	out := make(map[string]Mention)

	for _, tok := range tokenize(text) {
		key, tickerLike, ok := classify(tok)
		if !ok {
			continue
		}
		m := out[key]
		m.Count++
		m.TickerLike = tickerLike
		m.LastSeen = at
		out[key] = m
	}

	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}

func classify(tok string) (key string, tickerLike, ok bool) {
	// Rule 1: address-like. Explorer links carry the address as the last
	// path segment, so collapse URL-shaped tokens before matching.
	cand := lastPathSegment(tok)
	if evmAddrRe.MatchString(cand) || base58Re.MatchString(cand) {
		return cand, false, true
	}

	// Rule 2: ticker-like.
	switch {
	case sigilRe.MatchString(tok):
		key = tok[1:]
	case bareUpRe.MatchString(tok) && hasLetter(tok):
		key = tok
	default:
		return "", false, false
	}

	if _, stopped := stopWords[strings.ToUpper(key)]; stopped {
		return "", false, false
	}
	return key, true, true
}

// lastPathSegment strips any URL path prefix from a token, keeping only the
// part after the final slash. Tokens without a slash pass through unchanged.
func lastPathSegment(tok string) string {
	if i := strings.LastIndexByte(tok, '/'); i >= 0 {
		return tok[i+1:]
	}
	return tok
}

// hasLetter guards the bare-uppercase rule: a run of pure digits ("2024",
// "100") is not a ticker.
func hasLetter(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}
