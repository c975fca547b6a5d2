package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"soul-chat-go/pkg/log"
	"soul-chat-go/pkg/metrics"
	"soul-chat-go/pkg/search"
)

// 搜索失败时的兜底回复
const (
	weatherFallback = "I tried to search for weather information, but couldn't access real-time data at the moment. You can check a weather service like weather.com for current forecasts."
	newsFallback    = "I tried to search for news, but couldn't access the latest headlines at the moment. You can check news websites for the most current information."
	genericFallback = "I tried to search the internet for information about your question, but encountered an issue: %s. Could you try rephrasing your question?"
	defaultIssue    = "couldn't find relevant information"
)

// 本地回复
const (
	statusReply     = "I'm functioning well, thank you for asking! I'm here to assist you with information and conversations. How can I help you today?"
	greetingReply   = "Hello! It's nice to chat with you. How can I assist you today?"
	thanksReply     = "You're welcome! I'm happy to help. Is there anything else you'd like to know?"
	identityReply   = "I'm an AI assistant built to help answer your questions and provide information. Is there something specific you'd like to know about?"
	capabilityReply = "I can help you with a variety of tasks including:\n\n" +
		"• Answering questions about almost any topic\n" +
		"• Searching the internet for current information\n" +
		"• Finding recipes and cooking instructions\n" +
		"• Providing weather information\n" +
		"• Offering recommendations for books, movies, etc.\n" +
		"• Explaining concepts or ideas\n\n" +
		"Try asking me something specific, and I'll do my best to help!"
	unknownReply = "I'm not sure I have enough information about that. Try asking a question with search terms like 'search for...' or 'find information about...' so I can look up the latest information for you."
)

type localReply struct {
	name  string
	match func(text string) bool
	reply string
}

func containsAny(subs ...string) func(string) bool {
	return func(text string) bool {
		for _, s := range subs {
			if strings.Contains(text, s) {
				return true
			}
		}
		return false
	}
}

// 按顺序匹配，第一条命中的生效
var localReplies = []localReply{
	{name: "status", match: containsAny("how are you"), reply: statusReply},
	{name: "greeting", match: func(text string) bool {
		return text == "hi" || containsAny("hello", "hi ")(text)
	}, reply: greetingReply},
	{name: "thanks", match: containsAny("thank"), reply: thanksReply},
	{name: "identity", match: containsAny("your name", "who are you"), reply: identityReply},
	{name: "capability", match: containsAny("what can you help", "what can you do"), reply: capabilityReply},
}

// 搜索失败时按话题选择兜底文案
var topicFallbacks = []localReply{
	{name: "weather", match: containsAny("weather"), reply: weatherFallback},
	{name: "news", match: containsAny("news"), reply: newsFallback},
}

// Reply 是一次回复的生成结果。
type Reply struct {
	Text     string
	Rule     string // 分类命中的规则
	Searched bool   // 是否尝试了联网搜索
	Found    bool   // 搜索是否成功给出结果
}

// Synthesizer 根据用户消息生成 AI 回复。
type Synthesizer interface {
	// Synthesize 对任意输入都返回非空字符串，搜索失败会被替换为兜底文案。
	Synthesize(ctx context.Context, message string) string
	Compose(ctx context.Context, message string) Reply
}

type responseSynthesizer struct {
	classifier Classifier
	searcher   search.Client
}

// NewSynthesizer 创建一个新的 Synthesizer 实例。
func NewSynthesizer(classifier Classifier, searcher search.Client) Synthesizer {
	return &responseSynthesizer{
		classifier: classifier,
		searcher:   searcher,
	}
}

func (s *responseSynthesizer) Synthesize(ctx context.Context, message string) string {
	return s.Compose(ctx, message).Text
}

func (s *responseSynthesizer) Compose(ctx context.Context, message string) Reply {
	decision := s.classifier.Classify(message)
	metrics.ClassifierDecisions.WithLabelValues(decision.Rule, strconv.FormatBool(decision.Search)).Inc()
	log.Infof("[Synthesizer] 分类完成, rule: %s, search: %t", decision.Rule, decision.Search)

	text := strings.ToLower(strings.TrimSpace(message))
	if !decision.Search {
		return Reply{Text: localReplyFor(text), Rule: decision.Rule}
	}

	outcome := s.searcher.Search(ctx, message)
	if outcome.Success && outcome.ResultText != "" {
		return Reply{Text: outcome.ResultText, Rule: decision.Rule, Searched: true, Found: true}
	}
	log.Infof("[Synthesizer] 搜索未返回结果, 使用兜底回复, reason: %s", outcome.ErrorMessage)
	return Reply{Text: fallbackFor(text, outcome.ErrorMessage), Rule: decision.Rule, Searched: true}
}

func localReplyFor(text string) string {
	for _, r := range localReplies {
		if r.match(text) {
			return r.reply
		}
	}
	return unknownReply
}

func fallbackFor(text, errorMessage string) string {
	for _, r := range topicFallbacks {
		if r.match(text) {
			return r.reply
		}
	}
	issue := errorMessage
	if issue == "" {
		issue = defaultIssue
	}
	return fmt.Sprintf(genericFallback, issue)
}
