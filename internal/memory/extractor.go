package memory

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/easeaico/persona-agent/internal/types"
)

const (
	defaultImportance = 0.5
	highImportance    = 0.8
	mediumImportance  = 0.6
	lowImportanceCap  = 0.4
)

type compiledCategory struct {
	name       string
	memoryType string
	patterns   []*regexp.Regexp
}

// Extractor derives typed memory candidates from user utterances using a
// data-driven rule table. Extraction is deterministic: the same text and
// role always yield the same candidate set.
type Extractor struct {
	table      RuleTable
	categories []compiledCategory
}

// NewExtractor compiles the rule table.
func NewExtractor(table RuleTable) (*Extractor, error) {
	categories := make([]compiledCategory, 0, len(table.Categories))
	for _, category := range table.Categories {
		compiled := compiledCategory{
			name:       category.Name,
			memoryType: category.MemoryType,
		}
		for _, pattern := range category.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q in category %s: %w", pattern, category.Name, err)
			}
			compiled.patterns = append(compiled.patterns, re)
		}
		categories = append(categories, compiled)
	}
	return &Extractor{table: table, categories: categories}, nil
}

// ExtractFromMessage extracts candidates from one utterance. Only
// user-authored, non-interrogative messages are considered: any question
// marker skips the whole message, trading recall for precision.
func (e *Extractor) ExtractFromMessage(content, role string) []types.MemoryCandidate {
	if role != types.RoleUser {
		return nil
	}
	for _, marker := range e.table.QuestionMarkers {
		if strings.Contains(content, marker) {
			return nil
		}
	}

	var candidates []types.MemoryCandidate
	for _, category := range e.categories {
		for _, pattern := range category.patterns {
			for _, match := range pattern.FindAllStringSubmatch(content, -1) {
				text := joinGroups(match)
				if utf8.RuneCountInString(text) < 2 {
					continue
				}
				candidates = append(candidates, types.MemoryCandidate{
					Content:    renderCandidate(category.name, text, content),
					Type:       category.memoryType,
					Importance: e.scoreImportance(content),
					SourceText: content,
				})
			}
		}
	}
	return candidates
}

// ExtractFromTranscript extracts candidates from a whole conversation,
// deduplicating by rendered content within the batch. Previously persisted
// memories are deliberately not consulted.
func (e *Extractor) ExtractFromTranscript(messages []types.Message) []types.MemoryCandidate {
	var all []types.MemoryCandidate
	for i, msg := range messages {
		candidates := e.ExtractFromMessage(msg.Content, msg.Role)
		for _, candidate := range candidates {
			candidate.MessageIndex = i
			all = append(all, candidate)
		}
	}

	seen := make(map[string]bool, len(all))
	unique := all[:0]
	for _, candidate := range all {
		if seen[candidate.Content] {
			continue
		}
		seen[candidate.Content] = true
		unique = append(unique, candidate)
	}
	return unique
}

// DetectTopics returns up to max topic keywords present in the user
// messages, in rule-table order.
func (e *Extractor) DetectTopics(messages []types.Message, max int) []string {
	var topics []string
	for _, keyword := range e.table.TopicKeywords {
		for _, msg := range messages {
			if msg.Role != types.RoleUser {
				continue
			}
			if strings.Contains(msg.Content, keyword) {
				topics = append(topics, keyword)
				break
			}
		}
		if len(topics) >= max {
			break
		}
	}
	return topics
}

// scoreImportance computes a keyword-intensity score. Upward adjustments
// take the maximum; weakening words cap the result.
func (e *Extractor) scoreImportance(text string) float64 {
	importance := defaultImportance
	for _, keyword := range e.table.Importance.High {
		if strings.Contains(text, keyword) && importance < highImportance {
			importance = highImportance
		}
	}
	for _, keyword := range e.table.Importance.Medium {
		if strings.Contains(text, keyword) && importance < mediumImportance {
			importance = mediumImportance
		}
	}
	for _, keyword := range e.table.Importance.Low {
		if strings.Contains(text, keyword) && importance > lowImportanceCap {
			importance = lowImportanceCap
		}
	}
	return importance
}

func joinGroups(match []string) string {
	if len(match) <= 1 {
		return strings.TrimSpace(match[0])
	}
	groups := make([]string, 0, len(match)-1)
	for _, group := range match[1:] {
		group = strings.TrimSpace(group)
		if group != "" {
			groups = append(groups, group)
		}
	}
	return strings.Join(groups, " ")
}

// renderCandidate builds the stored memory text for a match.
func renderCandidate(category, match, source string) string {
	switch category {
	case "preference":
		return "用户喜欢" + match
	case "dislike":
		return "用户不喜欢" + match
	case "fact":
		// 日期/时间类陈述保留原文。
		if strings.HasPrefix(source, "今天是") || strings.HasPrefix(source, "现在是") {
			return source
		}
		return "用户" + match
	case "event":
		return "用户说: " + source
	case "emotion":
		return "用户感到" + match
	case "correction":
		return "纠正信息: " + match
	default:
		return match
	}
}
