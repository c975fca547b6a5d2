package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		search  bool
		rule    string
	}{
		{message: "hi", search: false, rule: RuleDirectResponse},
		{message: "  HELLO  ", search: false, rule: RuleDirectResponse},
		{message: "hi there friend", search: false, rule: RuleDirectResponse},
		{message: "thank you", search: false, rule: RuleDirectResponse},
		{message: "Thanks a lot for the help", search: false, rule: RuleDirectResponse},
		{message: "what is your name", search: false, rule: RuleDirectResponse},
		{message: "How are you", search: false, rule: RuleDirectResponse},
		{message: "who are you", search: false, rule: RuleDirectResponse},
		{message: "what can you do for me", search: false, rule: RuleDirectResponse},
		{message: "ok", search: false, rule: RuleNonSearchPhrase},
		{message: "okay then", search: false, rule: RuleNonSearchPhrase},
		{message: "goodbye", search: false, rule: RuleNonSearchPhrase},
		{message: "that was awesome", search: false, rule: RuleNonSearchPhrase},
		{message: "tell me about dinosaurs", search: true, rule: RuleLongMessage},
		{message: "search for cats", search: true, rule: RuleLongMessage},
		{message: "What is the capital of France", search: true, rule: RuleLongMessage},
		{message: "weather tomorrow", search: true, rule: RuleSearchKeyword},
		{message: "explain recursion", search: true, rule: RuleSearchKeyword},
		{message: "banana", search: true, rule: RuleDefault},
		{message: "golang generics", search: true, rule: RuleDefault},
		{message: "   ", search: false, rule: RuleBlank},
	}
	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := c.Classify(tt.message)
			assert.Equal(t, tt.search, got.Search)
			assert.Equal(t, tt.rule, got.Rule)
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// "hello" 同时也是长消息，但寒暄规则优先
	assert.False(t, ShouldSearch("hello there how is it going"))
	// 单个非寒暄词走默认规则
	assert.True(t, ShouldSearch("dinosaurs"))
	// 短语必须按词边界匹配，"nobody" 不等于 "no"
	assert.True(t, ShouldSearch("nobody"))
}

func TestEveryRuleIsReachable(t *testing.T) {
	seen := map[string]bool{}
	for _, msg := range []string{"", "hi", "ok", "one two three", "find cats", "banana"} {
		seen[NewClassifier().Classify(msg).Rule] = true
	}
	for _, rule := range classifierRules {
		assert.True(t, seen[rule.name], "rule %s never matched", rule.name)
	}
}
