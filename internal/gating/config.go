package gating

import "time"

const (
	defaultLockedDelay         = 90 * time.Second
	defaultGoldenThreshold     = 3
	defaultHiddenThreshold     = 5
	defaultRevelationThreshold = 5
	defaultContinueMinOpened   = 2
	defaultContinueGoalOpened  = 3
)

// Config はコンテンツ調整用の値。ルールに個別の値がない場合に使う。
type Config struct {
	LockedDelay         time.Duration `json:"locked_delay"`
	GoldenThreshold     int           `json:"golden_threshold"`
	HiddenThreshold     int           `json:"hidden_threshold"`
	RevelationThreshold int           `json:"revelation_threshold"`
	ContinueMinOpened   int           `json:"continue_min_opened"`
	ContinueGoalOpened  int           `json:"continue_goal_opened"`
}

func DefaultConfig() Config {
	return Config{
		LockedDelay:         defaultLockedDelay,
		GoldenThreshold:     defaultGoldenThreshold,
		HiddenThreshold:     defaultHiddenThreshold,
		RevelationThreshold: defaultRevelationThreshold,
		ContinueMinOpened:   defaultContinueMinOpened,
		ContinueGoalOpened:  defaultContinueGoalOpened,
	}
}

// normalize は負の値を0に丸める
func (c Config) normalize() Config {
	if c.LockedDelay < 0 {
		c.LockedDelay = 0
	}
	for _, v := range []*int{&c.GoldenThreshold, &c.HiddenThreshold, &c.RevelationThreshold, &c.ContinueMinOpened, &c.ContinueGoalOpened} {
		if *v < 0 {
			*v = 0
		}
	}
	if c.ContinueGoalOpened < c.ContinueMinOpened {
		c.ContinueGoalOpened = c.ContinueMinOpened
	}
	return c
}
