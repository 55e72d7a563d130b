package domain

import "time"

// ResourceKind names a class of external data tabs depend on
type ResourceKind string

const (
	ResourceCatalog        ResourceKind = "catalog"
	ResourceGrouping       ResourceKind = "grouping"
	ResourceSocial         ResourceKind = "social"
	ResourceTags           ResourceKind = "tags"
	ResourceInstall        ResourceKind = "install"
	ResourceRemovableMedia ResourceKind = "removable-media"
	ResourceHidden         ResourceKind = "hidden"
	ResourceFavorites      ResourceKind = "favorites"
	ResourceSoundtracks    ResourceKind = "soundtracks"
)

// Well known grouping ids backing the favourites and soundtracks tabs
const (
	GroupingFavorites   = "favorite"
	GroupingSoundtracks = "type-music"
)

// ResourceKey identifies one observable resource. ID is only set for
// specific groupings.
type ResourceKey struct {
	Kind ResourceKind
	ID   string
}

func (k ResourceKey) String() string {
	if k.ID == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + ":" + k.ID
}

func GroupingKey(id string) ResourceKey {
	return ResourceKey{Kind: ResourceGrouping, ID: id}
}

// ResourceEvent is published whenever a resource changes
type ResourceEvent struct {
	At  time.Time
	Key ResourceKey
}

// Grouping is a named, user or host maintained set of entries
type Grouping struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Entries []string `json:"entries"`
}

// Contact is a member of the user's social graph
type Contact struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tag is one store tag as known to the tag metadata dictionary
type Tag struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// LayoutKind distinguishes the named tab orderings the user can save
type LayoutKind string

const (
	LayoutProfiles  LayoutKind = "profiles"
	LayoutGroups    LayoutKind = "groups"
	LayoutSnapshots LayoutKind = "snapshots"
)

// Layouts maps a layout name to its ordered visible tab ids
type Layouts map[string][]string
