package services

import (
	"fmt"
	"regexp"
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"scam", "scammer", "phishing", "malware",
}

// ContentFilter screens user text before it is published. It is immutable
// after construction and safe for concurrent use.
type ContentFilter struct {
	bannedWordRegexps   []*regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	f := &ContentFilter{
		bannedWordRegexps:   make([]*regexp.Regexp, 0, len(BannedWords)),
		repeatedCharPattern: regexp.MustCompile(`(?i)(a{6,}|e{6,}|i{6,}|o{6,}|u{6,}|!{6,}|\?{6,})`),
		allCapsPattern:      regexp.MustCompile(`[A-Z]{5,}`),
	}
	for _, word := range BannedWords {
		f.bannedWordRegexps = append(f.bannedWordRegexps, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return f
}

// Check returns ("", true) for acceptable text or a reason code.
func (f *ContentFilter) Check(text string) (string, bool) {
	if text == "" {
		return "", true
	}
	for _, re := range f.bannedWordRegexps {
		if re.MatchString(text) {
			return "inappropriate_language", false
		}
	}
	if f.repeatedCharPattern.MatchString(text) {
		return "spam_detected", false
	}
	if len(f.allCapsPattern.FindAllString(text, -1)) > 3 {
		return "excessive_caps", false
	}
	return "", true
}

// Validate wraps Check as an ErrInvalidOperation with a user-facing message.
func (f *ContentFilter) Validate(text string) error {
	if reason, ok := f.Check(text); !ok {
		return fmt.Errorf("%s: %w", rejectionMessage(reason), ErrInvalidOperation)
	}
	return nil
}

func rejectionMessage(reason string) string {
	messages := map[string]string{
		"inappropriate_language": "Your text contains inappropriate language.",
		"spam_detected":          "Your text appears to be spam.",
		"excessive_caps":         "Please avoid using excessive capital letters.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "Your text does not meet our content guidelines."
}
