package service

import (
	_ "embed"
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// PatternKind 模式类成就的判定规则。新增规则需在 evaluatePattern 的 switch 中补齐分支。
type PatternKind int

const (
	PatternMorningRitual PatternKind = iota + 1
	PatternNightOwl
	PatternPerfectDay
	PatternPerfectWeek
	PatternDeepMarathon
)

var patternKinds = map[string]PatternKind{
	"morning_ritual": PatternMorningRitual,
	"night_owl":      PatternNightOwl,
	"perfect_day":    PatternPerfectDay,
	"perfect_week":   PatternPerfectWeek,
	"deep_marathon":  PatternDeepMarathon,
}

// CatalogEntry 加载后的成就定义
type CatalogEntry struct {
	schema.AchievementDefinition
	Pattern PatternKind // 仅 pattern 类型
}

// Catalog 成就目录（内存表，加载一次）
type Catalog struct {
	entries []CatalogEntry
	byID    map[string]int
}

// LoadCatalog 解析 YAML 目录；rateMinSamples 按 id 覆盖 rate 类成就的最小样本数
func LoadCatalog(data []byte, rateMinSamples map[string]int) (*Catalog, error) {
	var defs []schema.AchievementDefinition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("解析成就目录失败: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(defs))}
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("成就目录存在空 id")
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("成就 id 重复: %s", def.ID)
		}
		entry := CatalogEntry{AchievementDefinition: def}

		switch def.CriteriaType {
		case schema.CriteriaThreshold, schema.CriteriaCumulative:
			switch def.CriteriaUnit {
			case schema.UnitSessions, schema.UnitDeepSessions, schema.UnitMinutes:
			default:
				return nil, fmt.Errorf("成就 %s 的统计口径未知: %q", def.ID, def.CriteriaUnit)
			}
		case schema.CriteriaStreak:
		case schema.CriteriaRate:
			if n, ok := rateMinSamples[def.ID]; ok && n >= 0 {
				entry.MinSample = n
			}
		case schema.CriteriaPattern:
			kind, ok := patternKinds[def.ID]
			if !ok {
				return nil, fmt.Errorf("未知的模式成就: %s", def.ID)
			}
			entry.Pattern = kind
		default:
			return nil, fmt.Errorf("成就 %s 的判定类型未知: %q", def.ID, def.CriteriaType)
		}

		c.byID[def.ID] = len(c.entries)
		c.entries = append(c.entries, entry)
	}
	return c, nil
}

// DefaultCatalog 内置目录
func DefaultCatalog(rateMinSamples map[string]int) (*Catalog, error) {
	return LoadCatalog(defaultCatalogYAML, rateMinSamples)
}

// Entries 目录顺序的全部条目
func (c *Catalog) Entries() []CatalogEntry {
	return c.entries
}

// Get 按 id 查找
func (c *Catalog) Get(id string) (CatalogEntry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entries[i], true
}

// Definitions 用于写入 achievement_definitions
func (c *Catalog) Definitions() []schema.AchievementDefinition {
	out := make([]schema.AchievementDefinition, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.AchievementDefinition)
	}
	return out
}
