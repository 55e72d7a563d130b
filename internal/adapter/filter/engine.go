package filter

import (
	"regexp"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
)

// Engine evaluates filter trees against catalog entries. It holds no
// per-call state; the regex, size and expression caches only memoise
// compilation of parameters.
type Engine struct {
	provider ports.CatalogProvider
	now      func() time.Time
	loc      *time.Location

	regexCache *xsync.Map[string, *regexp.Regexp]
	sizeCache  *xsync.Map[string, int64]
	exprs      *ExpressionCompiler
}

// Option customises an Engine
type Option func(*Engine)

// WithClock injects the clock used by relative date filters
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the zone calendar dates are interpreted in
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func NewEngine(provider ports.CatalogProvider, opts ...Option) *Engine {
	e := &Engine{
		provider:   provider,
		now:        time.Now,
		loc:        time.Local,
		regexCache: xsync.NewMap[string, *regexp.Regexp](),
		sizeCache:  xsync.NewMap[string, int64](),
		exprs:      NewExpressionCompiler(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ports.FilterEvaluator = (*Engine)(nil)

// Evaluate returns whether the entry matches the filter. Inversion is
// applied for invertible variants, except when the variant's optional
// dependency is unavailable: such a filter never matches.
func (e *Engine) Evaluate(f domain.Filter, entry *domain.CatalogEntry) bool {
	if entry == nil || f.Params == nil {
		return false
	}
	if f.Type == domain.FilterRemovableMedia && !e.provider.RemovableMediaAvailable() {
		return false
	}

	matched := e.match(f, entry)
	if f.Inverted && domain.IsInvertible(f.Type) {
		return !matched
	}
	return matched
}

// EvaluateAll combines the filters like a merge group
func (e *Engine) EvaluateAll(filters []domain.Filter, mode domain.CombinationMode, entry *domain.CatalogEntry) bool {
	if mode == domain.ModeOr {
		for i := range filters {
			if e.Evaluate(filters[i], entry) {
				return true
			}
		}
		return false
	}

	for i := range filters {
		if !e.Evaluate(filters[i], entry) {
			return false
		}
	}
	return true
}

// DependencyAvailable reports false when any filter in the tree needs the
// removable media plugin and it is not present
func (e *Engine) DependencyAvailable(filters []domain.Filter) bool {
	if !domain.HasFilterType(filters, domain.FilterRemovableMedia) {
		return true
	}
	return e.provider.RemovableMediaAvailable()
}

func (e *Engine) match(f domain.Filter, entry *domain.CatalogEntry) bool {
	switch p := f.Params.(type) {
	case domain.CollectionParams:
		return e.provider.InGrouping(p.Collection, entry.ID)

	case domain.InstalledParams:
		return entry.Installed == p.Installed

	case domain.RegexParams:
		re, ok := e.regex(p.Regex)
		return ok && re.MatchString(entry.Name)

	case domain.FriendsParams:
		return combine(p.Mode, len(p.Friends), func(i int) bool {
			return e.provider.OwnedBy(p.Friends[i], entry.ID)
		})

	case domain.TagsParams:
		return combine(p.Mode, len(p.Tags), func(i int) bool {
			return entry.HasTag(p.Tags[i])
		})

	case domain.ListParams:
		listed := false
		for _, id := range p.Games {
			if id == entry.ID {
				listed = true
				break
			}
		}
		if f.Type == domain.FilterBlacklist {
			return !listed
		}
		return listed

	case domain.MergeParams:
		return e.EvaluateAll(p.Filters, p.Mode, entry)

	case domain.PlatformParams:
		return entry.Platform == p.Platform

	case domain.DeckCompatibilityParams:
		return entry.DeckCompatibility == p.Category

	case domain.ReviewScoreParams:
		score := entry.MetacriticScore
		if p.ScoreType == domain.ScoreStorePercent {
			score = entry.ReviewPercent
		}
		// unscored entries carry 0 and never match either direction
		if score <= 0 {
			return false
		}
		return compare(p.Condition, int64(score), int64(p.Threshold))

	case domain.TimePlayedParams:
		threshold, ok := p.Units.Minutes(p.TimeThreshold)
		if !ok {
			return false
		}
		return compare(p.Condition, int64(entry.MinutesPlayed), threshold)

	case domain.SizeOnDiskParams:
		threshold, ok := e.size(p.Size)
		if !ok || entry.SizeOnDisk <= 0 {
			return false
		}
		return compare(p.Condition, entry.SizeOnDisk, threshold)

	case domain.DateParams:
		return e.matchDate(p, timestampFor(f.Type, entry))

	case domain.AchievementsParams:
		if entry.AchievementsTotal <= 0 {
			return false
		}
		if p.ThresholdType == domain.ThresholdPercent {
			// unlocked/total against threshold/100, cross multiplied so
			// fractional percentages are not truncated
			return compare(p.Condition,
				int64(entry.AchievementsUnlocked)*100, int64(p.Threshold)*int64(entry.AchievementsTotal))
		}
		return compare(p.Condition, int64(entry.AchievementsUnlocked), int64(p.Threshold))

	case domain.DemoParams:
		return entry.IsDemo == p.IsDemo

	case domain.StreamableParams:
		return entry.Streamable == p.IsStreamable

	case domain.RemovableMediaParams:
		card := p.Card
		if card == "" {
			card = e.provider.CurrentCard()
		}
		return card != "" && entry.Card == card

	case domain.ExpressionParams:
		prg, err := e.exprs.Compile(p.Expression)
		if err != nil {
			return false
		}
		return e.exprs.Eval(prg, entry, e.now())
	}

	return false
}

// regex compiles case-insensitively and caches both hits and failures
func (e *Engine) regex(pattern string) (*regexp.Regexp, bool) {
	re, _ := e.regexCache.LoadOrCompute(pattern, func() (*regexp.Regexp, bool) {
		compiled, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, false
		}
		return compiled, false
	})
	return re, re != nil
}

func (e *Engine) size(human string) (int64, bool) {
	n, _ := e.sizeCache.LoadOrCompute(human, func() (int64, bool) {
		parsed, err := ParseSize(human)
		if err != nil {
			return -1, false
		}
		return parsed, false
	})
	return n, n >= 0
}

// combine applies a set-membership mode over n elements
func combine(mode domain.CombinationMode, n int, has func(i int) bool) bool {
	if mode == domain.ModeOr {
		for i := 0; i < n; i++ {
			if has(i) {
				return true
			}
		}
		return false
	}
	for i := 0; i < n; i++ {
		if !has(i) {
			return false
		}
	}
	return true
}

// compare is inclusive in both directions
func compare(c domain.Condition, value, threshold int64) bool {
	switch c {
	case domain.ConditionAbove:
		return value >= threshold
	case domain.ConditionBelow:
		return value <= threshold
	}
	return false
}

func timestampFor(t domain.FilterType, entry *domain.CatalogEntry) time.Time {
	switch t {
	case domain.FilterLastPlayed:
		return entry.LastPlayed
	case domain.FilterPurchaseDate:
		return entry.PurchaseTime
	default:
		return entry.ReleaseTime
	}
}
