package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentFilterCheck(t *testing.T) {
	f := NewContentFilter()
	cases := map[string]string{
		"a perfectly fine post":             "",
		"this is a SCAM, stay away":         "inappropriate_language",
		"nooooooooo way":                    "spam_detected",
		"WHY ARE THESE WORDS SHOUTED AGAIN": "excessive_caps",
		"scampi for dinner":                 "",
	}
	for text, want := range cases {
		reason, ok := f.Check(text)
		assert.Equal(t, want, reason, text)
		assert.Equal(t, want == "", ok, text)
	}
	assert.ErrorIs(t, f.Validate("total scammer"), ErrInvalidOperation)
}

func TestContentFilterSharedAcrossGoroutines(t *testing.T) {
	f := NewContentFilter()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, ok := f.Check("phishing link inside")
				assert.False(t, ok)
			}
		}()
	}
	wg.Wait()
}
