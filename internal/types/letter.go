package types

import "time"

// UnlockType は手紙の解放方式
type UnlockType string

const (
	UnlockAbsolute UnlockType = "absolute" // UnlockDate に YYYY-MM-DD
	UnlockRelative UnlockType = "relative" // UnlockDate に初回訪問からの日数
)

// Letter は日付で解放される手紙
type Letter struct {
	Key           string     `json:"letter_key" db:"letter_key"`
	Title         string     `json:"title" db:"title"`
	Content       string     `json:"content" db:"content"`
	UnlockType    UnlockType `json:"unlock_type" db:"unlock_type"`
	UnlockDate    string     `json:"unlock_date" db:"unlock_date"`
	PositionOrder int        `json:"position_order" db:"position_order"`
	Accent        string     `json:"accent,omitempty" db:"accent"`
}

// LetterState は閲覧者ごとの手紙の状態
type LetterState struct {
	ViewerID     string     `json:"user_identifier" db:"user_identifier"`
	LetterKey    string     `json:"letter_key" db:"letter_key"`
	IsOpened     bool       `json:"is_opened" db:"is_opened"`
	IsBookmarked bool       `json:"is_bookmarked" db:"is_bookmarked"`
	OpenedAt     *time.Time `json:"opened_at,omitempty" db:"opened_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
