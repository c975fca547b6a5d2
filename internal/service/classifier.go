package service

import (
	"regexp"
	"strings"
)

// 分类规则名，同时用作日志与指标标签
const (
	RuleBlank           = "blank"
	RuleDirectResponse  = "direct_response"
	RuleNonSearchPhrase = "non_search_phrase"
	RuleLongMessage     = "long_message"
	RuleSearchKeyword   = "search_keyword"
	RuleDefault         = "default"
)

// 命中后一定走本地回复的模式
var directResponsePatterns = []*regexp.Regexp{
	regexp.MustCompile(`how are you`),
	regexp.MustCompile(`^hi$|^hi\s+there`),
	regexp.MustCompile(`^hello$|^hello\s+there`),
	regexp.MustCompile(`thank`),
	regexp.MustCompile(`your name`),
	regexp.MustCompile(`who are you`),
	regexp.MustCompile(`what can you (do|help)`),
}

// 寒暄、确认类短语
var nonSearchPhrases = []string{
	"hello", "hi there", "how are you", "nice to meet you", "thanks", "thank you",
	"goodbye", "bye", "see you", "your name", "who are you", "what can you do",
	"what can you help me with", "what can you help with", "help me", "ok", "okay",
	"yes", "no", "please", "great", "awesome",
}

// 表示信息检索意图的关键词
var searchKeywords = []string{
	"search", "find", "look up", "google", "information", "about", "what is", "who is",
	"where is", "when is", "why is", "how to", "latest", "recent", "news", "current",
	"today", "weather", "history", "facts", "data", "recipe", "receipe", "how do i",
	"tell me about", "what are", "chocolate", "make", "best way to", "top", "list of",
	"when did", "where can i", "show me", "price of", "cost of", "explain", "describe",
}

// longMessageWords 达到该词数的消息默认视为信息检索。
const longMessageWords = 3

// classifierRule 是一条带名字的分类规则，按顺序求值，第一条命中的规则决定结果。
type classifierRule struct {
	name    string
	match   func(text string, words []string) bool
	verdict bool
}

var classifierRules = []classifierRule{
	{name: RuleBlank, verdict: false, match: func(text string, _ []string) bool {
		return text == ""
	}},
	{name: RuleDirectResponse, verdict: false, match: func(text string, _ []string) bool {
		for _, p := range directResponsePatterns {
			if p.MatchString(text) {
				return true
			}
		}
		return false
	}},
	{name: RuleNonSearchPhrase, verdict: false, match: func(text string, _ []string) bool {
		for _, phrase := range nonSearchPhrases {
			if text == phrase || strings.HasPrefix(text, phrase+" ") || strings.HasSuffix(text, " "+phrase) {
				return true
			}
		}
		return false
	}},
	{name: RuleLongMessage, verdict: true, match: func(_ string, words []string) bool {
		return len(words) >= longMessageWords
	}},
	{name: RuleSearchKeyword, verdict: true, match: func(text string, _ []string) bool {
		for _, kw := range searchKeywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}},
	{name: RuleDefault, verdict: true, match: func(string, []string) bool { return true }},
}

// Classification 是一次分类的结果及命中的规则。
type Classification struct {
	Search bool
	Rule   string
}

// Classifier 判断一条消息是否需要联网搜索。
type Classifier interface {
	Classify(message string) Classification
}

type ruleClassifier struct {
	rules []classifierRule
}

// NewClassifier 创建一个按固定顺序求值的规则分类器。
func NewClassifier() Classifier {
	return &ruleClassifier{rules: classifierRules}
}

// Classify 是纯函数，大小写不敏感，没有副作用。
func (c *ruleClassifier) Classify(message string) Classification {
	text := strings.ToLower(strings.TrimSpace(message))
	words := strings.Fields(text)
	for _, rule := range c.rules {
		if rule.match(text, words) {
			return Classification{Search: rule.verdict, Rule: rule.name}
		}
	}
	// 最后一条规则恒命中，这里不可达
	return Classification{Search: true, Rule: RuleDefault}
}

// ShouldSearch 是 Classify 的便捷形式。
func ShouldSearch(message string) bool {
	return NewClassifier().Classify(message).Search
}
