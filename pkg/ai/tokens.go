package ai

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/OFFIS-RIT/parversion/pkg/logger"
)

// TokenEncoding is the tiktoken encoding used for budgeting.
const TokenEncoding = "o200k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(TokenEncoding)
		if err != nil {
			logger.Debug("[AI] Token encoding unavailable, estimating", "err", err)
			return
		}
		enc = e
	})
	return enc
}

// CountTokens returns the token count of text. Without the encoding tables it
// estimates four bytes per token.
func CountTokens(text string) int {
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// TruncateTokens cuts text to at most budget tokens.
func TruncateTokens(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if e := encoding(); e != nil {
		tokens := e.Encode(text, nil, nil)
		if len(tokens) <= budget {
			return text
		}
		return e.Decode(tokens[:budget])
	}
	limit := budget * 4
	if len(text) <= limit {
		return text
	}
	return strings.ToValidUTF8(text[:limit], "")
}
