package domain

import "time"

// CatalogEntry is one application record of the library. Owned by the host,
// never mutated here.
type CatalogEntry struct {
	ReleaseTime  time.Time `json:"releaseTime,omitempty"`
	LastPlayed   time.Time `json:"lastPlayed,omitempty"`
	PurchaseTime time.Time `json:"purchaseTime,omitempty"`

	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Platform Platform `json:"platform,omitempty"`
	// Card is the id of the removable media card the entry is installed on
	Card string `json:"card,omitempty"`

	Tags []int `json:"tags,omitempty"`

	SizeOnDisk int64 `json:"sizeOnDisk,omitempty"` // bytes

	Category             CategoryMask `json:"category,omitempty"`
	DeckCompatibility    int          `json:"deckCompatibility,omitempty"`
	MinutesPlayed        int          `json:"minutesPlayed,omitempty"`
	MetacriticScore      int          `json:"metacriticScore,omitempty"`
	ReviewPercent        int          `json:"reviewPercent,omitempty"`
	AchievementsUnlocked int          `json:"achievementsUnlocked,omitempty"`
	AchievementsTotal    int          `json:"achievementsTotal,omitempty"`

	Installed  bool `json:"installed,omitempty"`
	IsDemo     bool `json:"isDemo,omitempty"`
	Streamable bool `json:"streamable,omitempty"`
}

// HasTag reports whether the entry carries the tag
func (e *CatalogEntry) HasTag(tag int) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CategoryMask is a set of entry categories. An entry carries exactly one
// category bit; tabs carry the set they show.
type CategoryMask uint32

const (
	CategoryGame CategoryMask = 1 << iota
	CategorySoftware
	CategoryMusic
	CategoryVideo
	CategoryTool
	// CategoryHidden opts a tab into entries the host has hidden
	CategoryHidden

	DefaultCategoryMask = CategoryGame | CategorySoftware
)

// Effective substitutes the default types when the mask names none
func (m CategoryMask) Effective() CategoryMask {
	if m&^CategoryHidden == 0 {
		return m | DefaultCategoryMask
	}
	return m
}

func (m CategoryMask) Has(c CategoryMask) bool {
	return m&c != 0
}

// Includes reports whether an entry of category c is shown by the mask
func (m CategoryMask) Includes(c CategoryMask) bool {
	if c == 0 {
		c = CategoryGame
	}
	return m.Effective()&c != 0
}
