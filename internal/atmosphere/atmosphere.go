// Package atmosphere maps the number of revealed secrets to presentation parameters.
package atmosphere

// Params は描画側に渡す雰囲気パラメータ。値の意味は描画側の関心事。
type Params struct {
	Tier           int     `json:"tier"`
	FogOpacity     float64 `json:"fog_opacity"`
	ParticleCount  int     `json:"particle_count"`
	SkyShade       string  `json:"sky_shade"`
	LightIntensity float64 `json:"light_intensity"`
}

// 段階は3つだけ。数値はすべて段階が上がるほど大きくなる。
var tiers = [...]Params{
	{
		Tier:           0,
		FogOpacity:     0.1,
		ParticleCount:  5,
		SkyShade:       "from-slate-900 via-rose-900/20 to-slate-900",
		LightIntensity: 1.0,
	},
	{
		Tier:           1,
		FogOpacity:     0.15,
		ParticleCount:  8,
		SkyShade:       "from-slate-800 via-purple-900/30 to-slate-800",
		LightIntensity: 1.1,
	},
	{
		Tier:           2,
		FogOpacity:     0.2,
		ParticleCount:  12,
		SkyShade:       "from-slate-900 via-indigo-900/40 to-purple-900",
		LightIntensity: 1.25,
	},
}

// Derive returns the bundle for the given revealed-secret count.
// 0以下は基本、1は第1段階、2以上は第2段階。
func Derive(revealedSecretCount int) Params {
	switch {
	case revealedSecretCount <= 0:
		return tiers[0]
	case revealedSecretCount == 1:
		return tiers[1]
	default:
		return tiers[2]
	}
}
