package pathsafe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRejects(t *testing.T) {
	cases := []string{
		"/etc/passwd",
		"../x",
		"a/../b",
		"a/b\x00c",
	}
	for _, c := range cases {
		assert.False(t, IsSafeRelativePath(c), "expected rejection for %q", c)
	}
}

func TestAccepts(t *testing.T) {
	cases := []string{
		"",
		".",
		"./x",
		".gitignore",
		"a/b/c/d.txt",
	}
	for _, c := range cases {
		assert.True(t, IsSafeRelativePath(c), "expected acceptance for %q", c)
	}
}
