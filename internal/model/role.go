package model

import "strings"

// Role is the standard on-field classification derived from a player's raw
// auction category.
type Role string

const (
	RoleBatsman      Role = "BATSMAN"
	RoleBowler       Role = "BOWLER"
	RoleAllRounder   Role = "ALL-ROUNDER"
	RoleWicketKeeper Role = "WICKET-KEEPER"
)

// DefaultRole is the named fallback for categories the mapping table does
// not know. Unknown categories are never coerced silently into anything
// else.
const DefaultRole = RoleBatsman

// categoryRoles maps raw category strings to standard roles.
var categoryRoles = map[string]Role{
	"Star_Indian_Batter":    RoleBatsman,
	"Foreign_Batters":       RoleBatsman,
	"Normal_Indian_Batters": RoleBatsman,
	"Indian_Fast_Bowlers":   RoleBowler,
	"Foreign_Fast_Bowlers":  RoleBowler,
	"Indian_Spinners":       RoleBowler,
	"Foreign_Spinners":      RoleBowler,
	"All_Rounders_Indian":   RoleAllRounder,
	"Foreign_All_Rounders":  RoleAllRounder,
	"Indian_Wicketkeepers":  RoleWicketKeeper,
	"Foreign_Wicket_Keepers": RoleWicketKeeper,
}

// RoleForCategory resolves a raw category string to its standard role,
// falling back to DefaultRole for unknown or empty categories.
func RoleForCategory(category string) Role {
	if r, ok := categoryRoles[strings.TrimSpace(category)]; ok {
		return r
	}
	return DefaultRole
}

// CategoryAll is the pseudo-category matching every player.
const CategoryAll = "ALL"

// CategoryUncategorized is assigned to players persisted without a category.
const CategoryUncategorized = "Uncategorized"

// NormalizeCategory trims a raw category, substituting the uncategorized
// bucket for empty values.
func NormalizeCategory(category string) string {
	c := strings.TrimSpace(category)
	if c == "" {
		return CategoryUncategorized
	}
	return c
}

// MatchesCategory reports whether a player category satisfies a filter.
// An empty filter or CategoryAll matches everything.
func MatchesCategory(playerCategory, filter string) bool {
	if filter == "" || filter == CategoryAll {
		return true
	}
	return NormalizeCategory(playerCategory) == filter
}
