// Package roadpath places lanterns along a vertical road, reproducibly per viewer.
package roadpath

import (
	"math"
	"sort"

	"github.com/ichi0g0y/keepsake/internal/types"
)

const (
	defaultMinSpacing = 100
	defaultMaxSpacing = 150
	defaultStartY     = 200
	defaultSeedKey    = "default"
)

// Side は道のどちら側に置くか
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Position は1つのランタンの配置
type Position struct {
	ID   string `json:"id"`
	Y    int    `json:"y"`
	Side Side   `json:"side"`
	// BaseVisible は実行時の解放判定とは別の静的フラグ（ゴースト表示用）
	BaseVisible bool `json:"base_visible"`
}

// Generator は配置パラメータと乱数戦略を持つ
type Generator struct {
	MinSpacing int
	MaxSpacing int
	StartY     int
	NewSource  SourceFunc
}

// NewGenerator returns a generator with the default spacing and LCG source.
func NewGenerator() *Generator {
	return &Generator{
		MinSpacing: defaultMinSpacing,
		MaxSpacing: defaultMaxSpacing,
		StartY:     defaultStartY,
		NewSource:  DefaultSource,
	}
}

// Generate は入力順に1回ずつ乱数を引いて y を進め、左右を交互に割り当てる。
// 同じ items と seedKey なら常に同じ結果になる。
func (g *Generator) Generate(items []types.Lantern, seedKey string) []Position {
	if seedKey == "" {
		seedKey = defaultSeedKey
	}
	newSource := g.NewSource
	if newSource == nil {
		newSource = DefaultSource
	}
	minSpacing, span := g.MinSpacing, g.MaxSpacing-g.MinSpacing
	if minSpacing <= 0 {
		minSpacing = 1
	}
	if span < 0 {
		span = 0
	}

	rng := newSource(seedKey)
	positions := make([]Position, 0, len(items))
	currentY := g.StartY

	for i, item := range items {
		offset := minSpacing + int(math.Floor(rng.Next()*float64(span)))
		// Source の実装が [0,1) を外れても範囲内に収める
		if offset >= minSpacing+span && span > 0 {
			offset = minSpacing + span - 1
		}
		if offset < minSpacing {
			offset = minSpacing
		}
		currentY += offset

		side := SideLeft
		if i%2 == 1 {
			side = SideRight
		}

		positions = append(positions, Position{
			ID:          item.ID,
			Y:           currentY,
			Side:        side,
			BaseVisible: item.Kind == types.KindStandard || item.Kind == types.KindLocked,
		})
	}

	return positions
}

// Generate uses the default generator.
func Generate(items []types.Lantern, seedKey string) []Position {
	return NewGenerator().Generate(items, seedKey)
}

// SortByY sorts positions by y ascending in place (stable).
func SortByY(positions []Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Y < positions[j].Y
	})
}

// Placed は配置とランタン本体の組
type Placed struct {
	Position
	Lantern types.Lantern `json:"lantern"`
}

// Join はカタログに存在する配置だけをランタンと結合して y 昇順で返す
func Join(positions []Position, lanterns []types.Lantern) []Placed {
	byID := make(map[string]types.Lantern, len(lanterns))
	for _, l := range lanterns {
		byID[l.ID] = l
	}

	placed := make([]Placed, 0, len(positions))
	for _, pos := range positions {
		l, ok := byID[pos.ID]
		if !ok {
			continue
		}
		placed = append(placed, Placed{Position: pos, Lantern: l})
	}
	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].Y < placed[j].Y
	})
	return placed
}
