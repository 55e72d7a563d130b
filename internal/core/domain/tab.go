package domain

import "time"

const HiddenPosition = -1

// Built-in tab ids managed by the host
const (
	TabDeckGames   = "DeckGames"
	TabAllGames    = "AllGames"
	TabInstalled   = "Installed"
	TabFavorites   = "Favorites"
	TabCollections = "Collections"
	TabNonSteam    = "NonSteam"
	TabSoundtracks = "Soundtracks"
)

// TabSpec is the persisted and runtime description of one tab. A nil
// Filters slice marks a built-in tab; a non-nil one, even empty, marks a
// custom tab owned by this module.
type TabSpec struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	CombinationMode CombinationMode `json:"combinationMode,omitempty"`
	SortOverride    string          `json:"sortOverride,omitempty"`
	Filters         []Filter        `json:"filters"`
	Position        int             `json:"position"`
	CategoryMask    CategoryMask    `json:"categoryMask,omitempty"`
	AutoHide        bool            `json:"autoHide,omitempty"`
}

// IsCustom reports whether the tab's membership is computed by filters
func (t *TabSpec) IsCustom() bool {
	return t.Filters != nil
}

// MarshalJSON leaves out filters for built-in tabs, a custom tab without
// filters still writes an empty list
func (t TabSpec) MarshalJSON() ([]byte, error) {
	type plain TabSpec
	if t.Filters != nil {
		return json.Marshal(plain(t))
	}
	return json.Marshal(struct {
		plain
		Filters []Filter `json:"filters,omitempty"`
	}{plain: plain(t)})
}

func (t *TabSpec) IsHidden() bool {
	return t.Position == HiddenPosition
}

// Mode returns the combination mode, defaulting to and
func (t *TabSpec) Mode() CombinationMode {
	if t.CombinationMode == "" {
		return ModeAnd
	}
	return t.CombinationMode
}

// Clone returns a deep copy of the spec
func (t TabSpec) Clone() TabSpec {
	t.Filters = CloneFilters(t.Filters)
	return t
}

// TabSettingsDictionary is the persisted shape of the whole tab collection
type TabSettingsDictionary map[string]TabSpec

func (d TabSettingsDictionary) Clone() TabSettingsDictionary {
	out := make(TabSettingsDictionary, len(d))
	for id, spec := range d {
		out[id] = spec.Clone()
	}
	return out
}

// DefaultTabs is the dictionary used on first run and after a corrupt
// configuration is reset. Favorites and Soundtracks are added on demand.
func DefaultTabs() TabSettingsDictionary {
	builtins := []struct{ id, title string }{
		{TabDeckGames, "Great on Deck"},
		{TabAllGames, "All Games"},
		{TabInstalled, "Installed"},
		{TabCollections, "Collections"},
		{TabNonSteam, "Non-Steam"},
	}
	out := make(TabSettingsDictionary, len(builtins))
	for i, b := range builtins {
		out[b.id] = TabSpec{ID: b.id, Title: b.title, Position: i}
	}
	return out
}

// TabSettings holds the user-editable fields of a custom tab
type TabSettings struct {
	Title           string
	CombinationMode CombinationMode
	SortOverride    string
	Filters         []Filter
	CategoryMask    CategoryMask
	AutoHide        bool
}

// SettingsOf extracts the editable fields from a spec
func SettingsOf(spec TabSpec) TabSettings {
	return TabSettings{
		Title:           spec.Title,
		CombinationMode: spec.CombinationMode,
		SortOverride:    spec.SortOverride,
		Filters:         CloneFilters(spec.Filters),
		CategoryMask:    spec.CategoryMask,
		AutoHide:        spec.AutoHide,
	}
}

// Catalog is the materialised membership of a custom tab as of BuiltAt.
// It is replaced on rebuild, never patched.
type Catalog struct {
	BuiltAt     time.Time
	AllMatching []string
	Visible     []string
}

func (c *Catalog) Clone() *Catalog {
	if c == nil {
		return nil
	}
	return &Catalog{
		BuiltAt:     c.BuiltAt,
		AllMatching: append([]string(nil), c.AllMatching...),
		Visible:     append([]string(nil), c.Visible...),
	}
}

// TabContainer pairs a tab with its cached catalog
type TabContainer struct {
	Catalog *Catalog
	Spec    TabSpec
	// Stale is set when a rebuild was skipped while the tab was hidden
	Stale bool
}

func (c *TabContainer) Clone() *TabContainer {
	return &TabContainer{
		Spec:    c.Spec.Clone(),
		Catalog: c.Catalog.Clone(),
		Stale:   c.Stale,
	}
}

// HasActiveFilters reports whether the container is a custom tab with at
// least one filter
func (c *TabContainer) HasActiveFilters() bool {
	return c.Spec.IsCustom() && len(c.Spec.Filters) > 0
}

// TabsSnapshot is the read-only view handed to renderers and menus
type TabsSnapshot struct {
	Visible []*TabContainer
	Hidden  []*TabContainer
}
