package context

import (
	"strings"
	"unicode/utf8"
)

// PruningStrategy selects how a Pruner trims an over-budget message list.
type PruningStrategy int

const (
	PruneNone      PruningStrategy = iota // no pruning
	PruneAdaptive                         // importance-weighted adaptive trim
	PruneHardClear                        // hard cutoff from the oldest message
	PruneSummarize                        // summarize (requires model support)
)

// String returns the strategy's label.
func (s PruningStrategy) String() string {
	switch s {
	case PruneNone:
		return "none"
	case PruneAdaptive:
		return "adaptive"
	case PruneHardClear:
		return "hard_clear"
	case PruneSummarize:
		return "summarize"
	default:
		return "unknown"
	}
}

// Message is the context-management view of a conversation message.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	Importance float64 // importance score (0-1)
	Tokens     int      // estimated token count
}

// PruneConfig configures a Pruner.
type PruneConfig struct {
	Strategy            PruningStrategy
	MaxTokens           int     // token budget
	SoftTrimRatio       float64 // fraction of MaxTokens at which soft trimming begins (e.g. 0.7)
	HardClearRatio      float64 // fraction of MaxTokens at which hard clearing is forced (e.g. 0.85)
	PreserveSystem      bool    // always keep system messages
	PreserveRecent      int     // always keep the N most recent messages
	ImportanceThreshold float64 // minimum importance score to survive adaptive pruning
}

// DefaultPruneConfig returns a PruneConfig with sane defaults.
func DefaultPruneConfig() *PruneConfig {
	return &PruneConfig{
		Strategy:            PruneAdaptive,
		MaxTokens:           100000,
		SoftTrimRatio:       0.7,
		HardClearRatio:      0.85,
		PreserveSystem:      true,
		PreserveRecent:      4,
		ImportanceThreshold: 0.3,
	}
}

// Pruner trims a message list to fit within a token budget.
type Pruner struct {
	config    *PruneConfig
	tokenizer Tokenizer
}

// Tokenizer counts the tokens in a string.
type Tokenizer interface {
	Count(text string) int
}

// SimpleTokenizer is a character-count-based token estimator.
type SimpleTokenizer struct {
	charsPerToken float64
}

// NewSimpleTokenizer creates a SimpleTokenizer.
func NewSimpleTokenizer() *SimpleTokenizer {
	return &SimpleTokenizer{
		charsPerToken: 4.0, // ~4 chars/token for Latin scripts, ~2 for CJK
	}
}

// Count estimates the token count of text.
func (t *SimpleTokenizer) Count(text string) int {
	cjkCount := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			cjkCount++
		}
	}

	totalChars := utf8.RuneCountInString(text)
	latinChars := totalChars - cjkCount

	tokens := float64(cjkCount)/2.0 + float64(latinChars)/t.charsPerToken

	return int(tokens) + 1
}

// NewPruner creates a Pruner. A nil tokenizer defaults to SimpleTokenizer.
func NewPruner(config *PruneConfig, tokenizer Tokenizer) *Pruner {
	if tokenizer == nil {
		tokenizer = NewSimpleTokenizer()
	}
	return &Pruner{
		config:    config,
		tokenizer: tokenizer,
	}
}

// Prune trims messages according to the configured strategy.
func (p *Pruner) Prune(messages []Message) []Message {
	if p.config.Strategy == PruneNone {
		return messages
	}

	totalTokens := p.calculateTotalTokens(messages)

	softThreshold := int(float64(p.config.MaxTokens) * p.config.SoftTrimRatio)
	hardThreshold := int(float64(p.config.MaxTokens) * p.config.HardClearRatio)

	if totalTokens < softThreshold {
		return messages
	}

	switch p.config.Strategy {
	case PruneAdaptive:
		return p.adaptivePrune(messages, totalTokens, softThreshold, hardThreshold)
	case PruneHardClear:
		return p.hardClearPrune(messages, hardThreshold)
	case PruneSummarize:
		// summarization requires a model call; fall back to adaptive for now
		return p.adaptivePrune(messages, totalTokens, softThreshold, hardThreshold)
	default:
		return messages
	}
}

// calculateTotalTokens sums (and backfills) each message's token estimate.
func (p *Pruner) calculateTotalTokens(messages []Message) int {
	total := 0
	for i := range messages {
		if messages[i].Tokens == 0 {
			messages[i].Tokens = p.tokenizer.Count(messages[i].Content)
		}
		total += messages[i].Tokens
	}
	return total
}

// adaptivePrune keeps system messages, the most recent PreserveRecent
// messages, and any middle message whose importance clears the
// configured threshold; if that still exceeds the hard threshold it
// drops the older half of the surviving middle messages.
func (p *Pruner) adaptivePrune(messages []Message, totalTokens, softThreshold, hardThreshold int) []Message {
	if len(messages) == 0 {
		return messages
	}

	result := make([]Message, 0, len(messages))

	systemMessages := make([]Message, 0)
	if p.config.PreserveSystem {
		for _, msg := range messages {
			if msg.Role == "system" {
				systemMessages = append(systemMessages, msg)
			}
		}
	}

	recentStart := len(messages) - p.config.PreserveRecent
	if recentStart < 0 {
		recentStart = 0
	}
	recentMessages := messages[recentStart:]

	middleMessages := make([]Message, 0)
	for i, msg := range messages {
		if msg.Role == "system" {
			continue
		}
		if i >= recentStart {
			continue
		}

		importance := p.evaluateImportance(msg)
		if importance >= p.config.ImportanceThreshold {
			middleMessages = append(middleMessages, msg)
		}
	}

	result = append(result, systemMessages...)
	result = append(result, middleMessages...)
	result = append(result, recentMessages...)

	currentTokens := p.calculateTotalTokens(result)
	if currentTokens > hardThreshold && len(middleMessages) > 0 {
		halfMiddle := len(middleMessages) / 2
		result = make([]Message, 0)
		result = append(result, systemMessages...)
		result = append(result, middleMessages[halfMiddle:]...)
		result = append(result, recentMessages...)
	}

	return result
}

// hardClearPrune keeps system messages, then fills from the most recent
// message backward until the hard threshold would be exceeded.
func (p *Pruner) hardClearPrune(messages []Message, hardThreshold int) []Message {
	if len(messages) == 0 {
		return messages
	}

	result := make([]Message, 0)
	currentTokens := 0

	if p.config.PreserveSystem {
		for _, msg := range messages {
			if msg.Role == "system" {
				result = append(result, msg)
				currentTokens += msg.Tokens
			}
		}
	}

	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role == "system" {
			continue
		}

		if currentTokens+msg.Tokens > hardThreshold {
			break
		}

		insertIdx := len(result)
		for j, m := range result {
			if m.Role != "system" {
				insertIdx = j
				break
			}
		}

		result = append(result[:insertIdx], append([]Message{msg}, result[insertIdx:]...)...)
		currentTokens += msg.Tokens
	}

	return result
}

// evaluateImportance scores msg for adaptive pruning, or returns its
// pre-assigned Importance if one was set.
func (p *Pruner) evaluateImportance(msg Message) float64 {
	if msg.Importance > 0 {
		return msg.Importance
	}

	importance := 0.5 // baseline

	if msg.Role == "tool" || msg.ToolCallID != "" {
		importance += 0.2
	}

	if strings.Contains(msg.Content, "```") {
		importance += 0.15
	}

	lowerContent := strings.ToLower(msg.Content)
	if strings.Contains(lowerContent, "error") ||
		strings.Contains(lowerContent, "failed") ||
		strings.Contains(lowerContent, "exception") {
		importance += 0.1
	}

	if len(msg.Content) > 500 {
		importance += 0.05
	}

	if importance > 1.0 {
		importance = 1.0
	}

	return importance
}

// EstimateTokens estimates the token count of messages.
func (p *Pruner) EstimateTokens(messages []Message) int {
	return p.calculateTotalTokens(messages)
}

// NeedsPruning reports whether messages has crossed the soft threshold.
func (p *Pruner) NeedsPruning(messages []Message) bool {
	totalTokens := p.calculateTotalTokens(messages)
	softThreshold := int(float64(p.config.MaxTokens) * p.config.SoftTrimRatio)
	return totalTokens >= softThreshold
}
