// Package content loads the lantern and letter catalog.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ichi0g0y/keepsake/internal/letters"
	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"github.com/ichi0g0y/keepsake/internal/types"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	ErrDuplicateID      = errors.New("duplicate catalog id")
	ErrInvalidThreshold = errors.New("threshold out of range")
)

// Catalog は道に並べるランタンと手紙の一式
type Catalog struct {
	Lanterns []types.Lantern
	Letters  []types.Letter
}

// Letter returns the letter with the given key.
func (c Catalog) Letter(key string) (types.Letter, bool) {
	for _, l := range c.Letters {
		if l.Key == key {
			return l, true
		}
	}
	return types.Letter{}, false
}

type yamlCatalog struct {
	Lanterns []yamlLantern `yaml:"lanterns"`
	Letters  []yamlLetter  `yaml:"letters"`
}

type yamlLantern struct {
	ID                   string `yaml:"id"`
	Kind                 string `yaml:"kind"`
	Title                string `yaml:"title"`
	Content              string `yaml:"content"`
	OpenedCountThreshold *int   `yaml:"opened_count_threshold"`
	TimeThresholdMS      *int64 `yaml:"time_threshold_ms"`
	RevealMessage        string `yaml:"reveal_message"`
	RevealEffect         string `yaml:"reveal_effect"`
}

type yamlLetter struct {
	Key           string `yaml:"letter_key"`
	Title         string `yaml:"title"`
	Content       string `yaml:"content"`
	UnlockType    string `yaml:"unlock_type"`
	UnlockDate    string `yaml:"unlock_date"`
	PositionOrder int    `yaml:"position_order"`
	Accent        string `yaml:"accent"`
}

// Default は埋め込みカタログを返す
func Default() (Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path returns the embedded catalog.
func Load(path string) (Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(raw)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	logger.Info("Loaded content catalog", zap.String("path", path),
		zap.Int("lanterns", len(c.Lanterns)), zap.Int("letters", len(c.Letters)))
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(raw []byte) (Catalog, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	c := Catalog{
		Lanterns: make([]types.Lantern, 0, len(doc.Lanterns)),
		Letters:  make([]types.Letter, 0, len(doc.Letters)),
	}

	seen := make(map[string]struct{}, len(doc.Lanterns))
	for _, y := range doc.Lanterns {
		id := strings.TrimSpace(y.ID)
		if id == "" {
			return Catalog{}, fmt.Errorf("lantern %q: empty id", y.Title)
		}
		if _, dup := seen[id]; dup {
			return Catalog{}, fmt.Errorf("lantern %s: %w", id, ErrDuplicateID)
		}
		seen[id] = struct{}{}

		if y.OpenedCountThreshold != nil && *y.OpenedCountThreshold < 0 {
			return Catalog{}, fmt.Errorf("lantern %s opened_count_threshold: %w", id, ErrInvalidThreshold)
		}
		var delay *time.Duration
		if ms := y.TimeThresholdMS; ms != nil {
			// time.Duration に収まらない値は負に折り返すので拒否する
			if *ms < 0 || *ms > math.MaxInt64/int64(time.Millisecond) {
				return Catalog{}, fmt.Errorf("lantern %s time_threshold_ms: %w", id, ErrInvalidThreshold)
			}
			delay = types.Delay(time.Duration(*ms) * time.Millisecond)
		}

		kind := types.LanternKind(strings.TrimSpace(y.Kind))
		if !knownKind(kind) {
			// エンジン側で表示しないので読み込みは続ける
			logger.Warn("Unknown lantern kind", zap.String("id", id), zap.String("kind", y.Kind))
		}

		c.Lanterns = append(c.Lanterns, types.Lantern{
			ID:      id,
			Kind:    kind,
			Title:   y.Title,
			Content: y.Content,
			Rule: types.UnlockRule{
				OpenedCountThreshold: y.OpenedCountThreshold,
				TimeThreshold:        delay,
			},
			RevealMessage: y.RevealMessage,
			RevealEffect:  y.RevealEffect,
		})
	}

	keys := make(map[string]struct{}, len(doc.Letters))
	for _, y := range doc.Letters {
		key := strings.TrimSpace(y.Key)
		if key == "" {
			return Catalog{}, fmt.Errorf("letter %q: empty letter_key", y.Title)
		}
		if _, dup := keys[key]; dup {
			return Catalog{}, fmt.Errorf("letter %s: %w", key, ErrDuplicateID)
		}
		keys[key] = struct{}{}

		l := types.Letter{
			Key:           key,
			Title:         y.Title,
			Content:       y.Content,
			UnlockType:    types.UnlockType(strings.TrimSpace(y.UnlockType)),
			UnlockDate:    strings.TrimSpace(y.UnlockDate),
			PositionOrder: y.PositionOrder,
			Accent:        y.Accent,
		}
		// どちらも開封不可として扱われるので読み込みは続ける
		switch l.UnlockType {
		case types.UnlockAbsolute, types.UnlockRelative:
			if !letters.ValidUnlockDate(l) {
				logger.Warn("Invalid letter unlock date", zap.String("letter_key", key),
					zap.String("unlock_type", y.UnlockType), zap.String("unlock_date", y.UnlockDate))
			}
		default:
			logger.Warn("Unknown letter unlock type", zap.String("letter_key", key), zap.String("unlock_type", y.UnlockType))
		}

		c.Letters = append(c.Letters, l)
	}

	return c, nil
}

func knownKind(k types.LanternKind) bool {
	switch k {
	case types.KindStandard, types.KindLocked, types.KindGolden, types.KindHidden, types.KindRevelation:
		return true
	}
	return false
}
