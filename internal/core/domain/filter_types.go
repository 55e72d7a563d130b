package domain

import "math"

// FilterType discriminates the FilterParams carried by a Filter
type FilterType string

const (
	FilterCollection        FilterType = "collection"
	FilterInstalled         FilterType = "installed"
	FilterRegex             FilterType = "regex"
	FilterFriends           FilterType = "friends"
	FilterTags              FilterType = "tags"
	FilterWhitelist         FilterType = "whitelist"
	FilterBlacklist         FilterType = "blacklist"
	FilterMerge             FilterType = "merge"
	FilterPlatform          FilterType = "platform"
	FilterDeckCompatibility FilterType = "deck compatibility"
	FilterReviewScore       FilterType = "review score"
	FilterTimePlayed        FilterType = "time played"
	FilterSizeOnDisk        FilterType = "size on disk"
	FilterReleaseDate       FilterType = "release date"
	FilterLastPlayed        FilterType = "last played date"
	FilterPurchaseDate      FilterType = "purchase date"
	FilterAchievements      FilterType = "achievements"
	FilterDemo              FilterType = "demo"
	FilterStreamable        FilterType = "streamable"
	FilterRemovableMedia    FilterType = "removable media"
	FilterExpression        FilterType = "expression"
)

// CombinationMode governs how sibling filter results combine
type CombinationMode string

const (
	ModeAnd CombinationMode = "and"
	ModeOr  CombinationMode = "or"
)

// Valid reports whether the mode is one of the known modes
func (m CombinationMode) Valid() bool {
	return m == ModeAnd || m == ModeOr
}

// Condition is the comparison direction of threshold and date filters.
// Both directions are inclusive.
type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

func (c Condition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

type Platform string

const (
	PlatformSteam    Platform = "steam"
	PlatformNonSteam Platform = "nonSteam"
)

type ScoreType string

const (
	ScoreMetacritic   ScoreType = "metacritic"
	ScoreStorePercent ScoreType = "storePercent"
)

type TimeUnit string

const (
	UnitMinutes TimeUnit = "minutes"
	UnitHours   TimeUnit = "hours"
	UnitDays    TimeUnit = "days"
)

// minutesPer is the size of one unit in minutes
func (u TimeUnit) minutesPer() int64 {
	switch u {
	case UnitHours:
		return 60
	case UnitDays:
		return 24 * 60
	default:
		return 1
	}
}

// Minutes converts an amount expressed in the unit to minutes. ok is false
// when the result does not fit in an int64.
func (u TimeUnit) Minutes(amount int) (minutes int64, ok bool) {
	per := u.minutesPer()
	n := int64(amount)
	if n > math.MaxInt64/per || n < math.MinInt64/per {
		return 0, false
	}
	return n * per, true
}

type ThresholdType string

const (
	ThresholdCount   ThresholdType = "count"
	ThresholdPercent ThresholdType = "percent"
)

// FilterParams is the sealed set of per-variant parameter payloads
type FilterParams interface {
	isFilterParams()
	cloneParams() FilterParams
}

type CollectionParams struct {
	Collection string `json:"collection"`
}

type InstalledParams struct {
	Installed bool `json:"installed"`
}

type RegexParams struct {
	Regex string `json:"regex"`
}

type FriendsParams struct {
	Mode    CombinationMode `json:"mode"`
	Friends []string        `json:"friends"`
}

type TagsParams struct {
	Mode CombinationMode `json:"mode"`
	Tags []int           `json:"tags"`
}

// ListParams backs both the whitelist and blacklist variants
type ListParams struct {
	Games []string `json:"games"`
}

// MergeParams holds child filters by value; see NewMerge
type MergeParams struct {
	Mode    CombinationMode `json:"mode"`
	Filters []Filter        `json:"filters"`
}

type PlatformParams struct {
	Platform Platform `json:"platform"`
}

type DeckCompatibilityParams struct {
	Category int `json:"category"`
}

type ReviewScoreParams struct {
	ScoreType ScoreType `json:"scoreType"`
	Condition Condition `json:"condition"`
	Threshold int       `json:"threshold"`
}

type TimePlayedParams struct {
	Units         TimeUnit  `json:"units"`
	Condition     Condition `json:"condition"`
	TimeThreshold int       `json:"timeThreshold"`
}

type SizeOnDiskParams struct {
	// Size is human readable, e.g. "25GB" or "512MB"
	Size      string    `json:"size"`
	Condition Condition `json:"condition"`
}

// DateSpec is an absolute calendar date at year, month or day granularity.
// Month and Day are 1-based; zero means unset.
type DateSpec struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// DateParams backs the release, last played and purchase date variants.
// Exactly one of Date and DaysAgo is set.
type DateParams struct {
	Date      *DateSpec `json:"date,omitempty"`
	DaysAgo   *int      `json:"daysAgo,omitempty"`
	Condition Condition `json:"condition"`
}

type AchievementsParams struct {
	ThresholdType ThresholdType `json:"thresholdType"`
	Condition     Condition     `json:"condition"`
	Threshold     int           `json:"threshold"`
}

type DemoParams struct {
	IsDemo bool `json:"isDemo"`
}

type StreamableParams struct {
	IsStreamable bool `json:"isStreamable"`
}

// RemovableMediaParams selects entries installed on a card; an empty Card
// means whichever card is currently inserted
type RemovableMediaParams struct {
	Card string `json:"card,omitempty"`
}

// ExpressionParams carries a CEL predicate evaluated against the entry bound as `app`
type ExpressionParams struct {
	Expression string `json:"expression"`
}

func (CollectionParams) isFilterParams()        {}
func (InstalledParams) isFilterParams()         {}
func (RegexParams) isFilterParams()             {}
func (FriendsParams) isFilterParams()           {}
func (TagsParams) isFilterParams()              {}
func (ListParams) isFilterParams()              {}
func (MergeParams) isFilterParams()             {}
func (PlatformParams) isFilterParams()          {}
func (DeckCompatibilityParams) isFilterParams() {}
func (ReviewScoreParams) isFilterParams()       {}
func (TimePlayedParams) isFilterParams()        {}
func (SizeOnDiskParams) isFilterParams()        {}
func (DateParams) isFilterParams()              {}
func (AchievementsParams) isFilterParams()      {}
func (DemoParams) isFilterParams()              {}
func (StreamableParams) isFilterParams()        {}
func (RemovableMediaParams) isFilterParams()    {}
func (ExpressionParams) isFilterParams()        {}

func (p CollectionParams) cloneParams() FilterParams        { return p }
func (p InstalledParams) cloneParams() FilterParams         { return p }
func (p RegexParams) cloneParams() FilterParams             { return p }
func (p PlatformParams) cloneParams() FilterParams          { return p }
func (p DeckCompatibilityParams) cloneParams() FilterParams { return p }
func (p ReviewScoreParams) cloneParams() FilterParams       { return p }
func (p TimePlayedParams) cloneParams() FilterParams        { return p }
func (p SizeOnDiskParams) cloneParams() FilterParams        { return p }
func (p AchievementsParams) cloneParams() FilterParams      { return p }
func (p DemoParams) cloneParams() FilterParams              { return p }
func (p StreamableParams) cloneParams() FilterParams        { return p }
func (p RemovableMediaParams) cloneParams() FilterParams    { return p }
func (p ExpressionParams) cloneParams() FilterParams        { return p }

func (p FriendsParams) cloneParams() FilterParams {
	p.Friends = append([]string(nil), p.Friends...)
	return p
}

func (p TagsParams) cloneParams() FilterParams {
	p.Tags = append([]int(nil), p.Tags...)
	return p
}

func (p ListParams) cloneParams() FilterParams {
	p.Games = append([]string(nil), p.Games...)
	return p
}

func (p MergeParams) cloneParams() FilterParams {
	p.Filters = CloneFilters(p.Filters)
	return p
}

func (p DateParams) cloneParams() FilterParams {
	if p.Date != nil {
		d := *p.Date
		p.Date = &d
	}
	if p.DaysAgo != nil {
		n := *p.DaysAgo
		p.DaysAgo = &n
	}
	return p
}
