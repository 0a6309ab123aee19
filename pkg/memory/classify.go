package memory

import (
	"regexp"
	"strings"
)

/*
RuleClassifier infers content type and memory type from the content when a
caller does not supply them. Classification is heuristic and ordered: the
first matching rule wins, and every input resolves to some type.
*/
type RuleClassifier struct{}

// NewRuleClassifier returns the default classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

var codeMarkers = []string{
	"func ", "function ", "def ", "class ", "import ", "const ", "var ", "return ",
	"=>", "!=", "==", "&&", "||", "{", "};",
}

var codeFenceRe = regexp.MustCompile("(?s)```.*```")

// ClassifyContent decides text vs code. Fenced blocks are always code; bare
// content is code once enough language markers accumulate.
func (c *RuleClassifier) ClassifyContent(content string) ContentType {
	if codeFenceRe.MatchString(content) {
		return ContentCode
	}

	hits := 0
	for _, marker := range codeMarkers {
		if strings.Contains(content, marker) {
			hits++
		}
	}
	if hits >= 3 {
		return ContentCode
	}
	return ContentText
}

var episodicKeywords = []string{
	"yesterday", "user asked", "we discussed", "conversation",
	"told me", "asked me", "last week",
}

var workingKeywords = []string{
	"currently", "working on", "in progress", "right now",
	"todo", "next step",
}

// ClassifyType decides the memory type. Code is procedural knowledge;
// temporal and conversational phrasing marks episodes; active-task phrasing
// marks working memory; everything else is a semantic fact.
func (c *RuleClassifier) ClassifyType(content string, contentType ContentType) MemoryType {
	if contentType == ContentCode {
		return Procedural
	}

	lower := strings.ToLower(content)
	for _, kw := range episodicKeywords {
		if strings.Contains(lower, kw) {
			return Episodic
		}
	}
	for _, kw := range workingKeywords {
		if strings.Contains(lower, kw) {
			return Working
		}
	}
	return Semantic
}

var languageHints = map[string]string{
	"package main": "go",
	"func (":       "go",
	"def ":         "python",
	"import react": "typescript",
	"const ":       "javascript",
	"fn ":          "rust",
	"public class": "java",
	"#include":     "c",
}

// DetectLanguage makes a best-effort language guess for code content.
// Unknown languages return the empty string.
func (c *RuleClassifier) DetectLanguage(content string) string {
	lower := strings.ToLower(content)
	for hint, lang := range languageHints {
		if strings.Contains(lower, hint) {
			return lang
		}
	}
	return ""
}
