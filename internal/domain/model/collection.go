package model

// Collection names a logical document; it doubles as the store key.
type Collection string

const (
	CollectionTeams      Collection = "teams"
	CollectionMatches    Collection = "matches"
	CollectionBonuses    Collection = "bonuses"
	CollectionPhotos     Collection = "photos"
	CollectionCaptains   Collection = "captains"
	CollectionChallenges Collection = "challenges"
	CollectionActivity   Collection = "activity-logs"
	CollectionImportLock Collection = "import-lock"
)

// Collections lists every logical document.
var Collections = []Collection{
	CollectionTeams, CollectionMatches, CollectionBonuses, CollectionPhotos,
	CollectionCaptains, CollectionChallenges, CollectionActivity, CollectionImportLock,
}

// Guarded reports whether the collection is edited as a whole document
// under optimistic version checks.
func (c Collection) Guarded() bool {
	switch c {
	case CollectionTeams, CollectionMatches, CollectionBonuses, CollectionPhotos, CollectionCaptains:
		return true
	}
	return false
}

// ParseCollection maps a name to a known collection.
func ParseCollection(name string) (Collection, bool) {
	for _, c := range Collections {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Key is the store key of the collection.
func (c Collection) Key() string { return string(c) }
