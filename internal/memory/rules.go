package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/easeaico/persona-agent/internal/types"
)

// Category is one extraction category with an ordered pattern list.
type Category struct {
	Name       string   `yaml:"name"`
	MemoryType string   `yaml:"memory_type"`
	Patterns   []string `yaml:"patterns"`
}

// ImportanceKeywords raise or cap the heuristic importance score.
type ImportanceKeywords struct {
	High   []string `yaml:"high"`
	Medium []string `yaml:"medium"`
	Low    []string `yaml:"low"`
}

// RuleTable is the data-driven extraction rule set. Patterns can be swapped
// per deployment locale without touching the extraction control flow.
type RuleTable struct {
	QuestionMarkers []string           `yaml:"question_markers"`
	Categories      []Category         `yaml:"categories"`
	Importance      ImportanceKeywords `yaml:"importance"`
	TopicKeywords   []string           `yaml:"topic_keywords"`
}

// LoadRuleTable reads a rule table from a YAML file.
func LoadRuleTable(path string) (RuleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RuleTable{}, fmt.Errorf("failed to read rule table: %w", err)
	}
	var table RuleTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return RuleTable{}, fmt.Errorf("failed to parse rule table: %w", err)
	}
	if len(table.Categories) == 0 {
		return RuleTable{}, fmt.Errorf("rule table has no categories")
	}
	return table, nil
}

// DefaultRuleTable returns the built-in zh-CN rule set.
func DefaultRuleTable() RuleTable {
	return RuleTable{
		QuestionMarkers: []string{"吗", "呢", "?", "？", "什么", "怎么", "哪", "几", "谁", "为何", "如何"},
		Categories: []Category{
			{
				Name:       "preference",
				MemoryType: types.MemoryTypePreference,
				Patterns: []string{
					`我喜欢(.{2,20})`,
					`我爱(.{2,20})`,
					`我最喜欢的(.+)是(.+)`,
					`我偏好(.{2,20})`,
					`我想要(.{2,20})`,
					`我希望(.{2,20})`,
					`我觉得(.{2,20})很好`,
				},
			},
			{
				Name:       "dislike",
				MemoryType: types.MemoryTypePreference,
				Patterns: []string{
					`我不喜欢(.{2,20})`,
					`我讨厌(.{2,20})`,
					`我不想(.{2,20})`,
					`我不要(.{2,20})`,
					`我不太喜欢(.{2,20})`,
				},
			},
			{
				Name:       "fact",
				MemoryType: types.MemoryTypeFact,
				Patterns: []string{
					`我是(\S{2,20})`,
					`我叫(\S{2,10})`,
					`我的名字是(\S{2,10})`,
					`我在(.{2,20})工作`,
					`我住在(.{2,20})`,
					`我今年(\d+)岁`,
					`我的(\S+)是(.{2,20})`,
					`今天是(\d{4}年\d{1,2}月\d{1,2}[日号])`,
					`现在是(\d+[点时])`,
					`我有(\S{2,20})`,
				},
			},
			{
				Name:       "event",
				MemoryType: types.MemoryTypeEvent,
				Patterns: []string{
					`我今天(.{3,30})`,
					`我昨天(.{3,30})`,
					`我明天要(.{3,30})`,
					`我刚才(.{3,30})`,
					`我最近(.{3,30})`,
					`我上周(.{3,30})`,
					`我下周(.{3,30})`,
					`我已经(.{3,30})`,
					`我正在(.{3,30})`,
					`我马上(.{2,20})`,
				},
			},
			{
				Name:       "emotion",
				MemoryType: types.MemoryTypeEmotion,
				Patterns: []string{
					`我很(开心|高兴|快乐)`,
					`我很(难过|伤心|悲伤)`,
					`我很(生气|愤怒)`,
					`我很(累|疲惫)`,
					`我感到(.{2,10})`,
					`我觉得很(.{2,10})`,
				},
			},
			{
				Name: "correction",
				// 纠正信息也是事实。
				MemoryType: types.MemoryTypeFact,
				Patterns: []string{
					`不对.{0,5}是(.{3,30})`,
					`不是.{0,5}是(.{3,30})`,
					`应该是(.{3,30})`,
					`其实是(.{3,30})`,
				},
			},
		},
		Importance: ImportanceKeywords{
			High:   []string{"最", "非常", "特别", "一直", "永远", "从不", "绝对"},
			Medium: []string{"很", "比较", "挺", "有点", "可能", "大概"},
			Low:    []string{"有时", "偶尔", "也许", "随便"},
		},
		TopicKeywords: []string{"游戏", "工作", "学习", "旅行", "电影", "美食"},
	}
}
