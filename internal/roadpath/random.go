package roadpath

import "unicode/utf16"

// LCGのパラメータ（配置の再現性のみが目的で統計的な品質は求めない）
const (
	lcgMultiplier = 9301
	lcgIncrement  = 49297
	lcgModulus    = 233280
)

// Source は [0,1) の疑似乱数列。同じシードなら同じ列を返すこと。
type Source interface {
	Next() float64
}

// SourceFunc builds a Source from a seed key.
type SourceFunc func(seedKey string) Source

// HashSeed は文字コードを順に畳み込んでシード値を作る（h = h*31 + c, int32で折り返し）
func HashSeed(key string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(key)) {
		h = (h << 5) - h + int32(c)
	}
	return h
}

// LCG is a linear congruential generator seeded from a string key.
type LCG struct {
	state int64
}

// NewLCG は文字列キーから LCG を生成する
func NewLCG(seedKey string) *LCG {
	s := int64(HashSeed(seedKey)) % lcgModulus
	if s < 0 {
		s += lcgModulus
	}
	return &LCG{state: s}
}

func (g *LCG) Next() float64 {
	g.state = (g.state*lcgMultiplier + lcgIncrement) % lcgModulus
	return float64(g.state) / lcgModulus
}

// DefaultSource はシードキーから LCG を作る既定の戦略
func DefaultSource(seedKey string) Source {
	return NewLCG(seedKey)
}
