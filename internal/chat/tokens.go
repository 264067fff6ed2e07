package chat

import (
	"math"
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// estimateTokens counts tokens with the cl100k encoding, falling back to
// the 4-chars-per-token heuristic when the tokenizer is unavailable.
func estimateTokens(text string) int64 {
	if text == "" {
		return 0
	}
	codecOnce.Do(func() {
		enc, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			codec = enc
		}
	})
	if codec != nil {
		if count, err := codec.Count(text); err == nil {
			return int64(count)
		}
	}
	length := utf8.RuneCountInString(text)
	return int64(math.Ceil(float64(length) / 4))
}
