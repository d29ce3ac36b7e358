package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestIsStable(t *testing.T) {
	assert.Equal(t, Digest("a", "b"), Digest("a", "b"))
	assert.NotEqual(t, Digest("a", "b"), Digest("a", "c"))
}

func TestDigestSeparatesParts(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide.
	assert.NotEqual(t, Digest("ab", "c"), Digest("a", "bc"))
	assert.NotEqual(t, Digest("a"), Digest("a", ""))
}
