package tokens

import (
	"strconv"
	"strings"
)

// AbilityKind discriminates the capability variants a token may carry.
type AbilityKind int

const (
	// AbilityOther covers capabilities this pipeline does not interpret.
	AbilityOther AbilityKind = iota
	// AbilityEnvironmentScope pins the token to one environment.
	AbilityEnvironmentScope
)

// Ability is the typed form of a raw capability string. Wire compatibility
// with the flat "environment_id:<n>" encoding is preserved via Raw.
type Ability struct {
	Kind          AbilityKind
	EnvironmentID int64
	Raw           string
}

const environmentScopePrefix = "environment_id:"

// ParseAbility decodes a raw capability string. A malformed environment suffix
// degrades to AbilityOther rather than failing.
func ParseAbility(raw string) Ability {
	a := Ability{Kind: AbilityOther, Raw: raw}
	if !strings.HasPrefix(raw, environmentScopePrefix) {
		return a
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, environmentScopePrefix), 10, 64)
	if err != nil || id <= 0 {
		return a
	}
	a.Kind = AbilityEnvironmentScope
	a.EnvironmentID = id
	return a
}

// EnvironmentScope scans abilities in order and returns the first environment
// scope. ok is false when the token carries none.
func EnvironmentScope(abilities []string) (int64, bool) {
	for _, raw := range abilities {
		if a := ParseAbility(raw); a.Kind == AbilityEnvironmentScope {
			return a.EnvironmentID, true
		}
	}
	return 0, false
}
