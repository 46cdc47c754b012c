package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_SplitsOnNonAlphanumerics(t *testing.T) {
	assert.Equal(t,
		[]string{"great", "camera", "4k", "video"},
		Tokenize("Great camera, 4K video!"))
}

func TestTokenize_KeepsUnicodeWordsWhole(t *testing.T) {
	assert.Equal(t,
		[]string{"café", "über", "días", "店"},
		Tokenize("Café, über días — 店!"))
}

func TestTokenize_EmptyAndPunctuationOnly(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("--- !!! ..."))
}

func TestDistinctTokens_PreservesFirstOccurrenceOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"the", "camera", "beats", "other"},
		DistinctTokens("the camera beats the other camera"))
}

func TestTokenSet_Membership(t *testing.T) {
	set := TokenSet("Battery life is great")

	assert.Contains(t, set, "battery")
	assert.Contains(t, set, "great")
	assert.NotContains(t, set, "Battery")
	assert.NotContains(t, set, "camera")
}
