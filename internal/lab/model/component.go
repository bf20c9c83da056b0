package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Component は在庫の1品目
type Component struct {
	ID         string
	Name       string
	Total      int
	Working    int
	NotWorking int
	Issued     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Available = max(0, working - issued)
func (c Component) Available() int {
	if a := c.Working - c.Issued; a > 0 {
		return a
	}
	return 0
}

// NameKey は大文字小文字を区別しない比較用キー
// cases.Caser はゴルーチン間で共有できないので都度生成する
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
