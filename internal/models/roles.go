package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of lane positions used as the normalization frame
// for impact metrics. The zero value is not a valid role.
type Role int

const (
	RoleUnknown Role = iota
	RoleTop
	RoleJungle
	RoleMid
	RoleBottom
	RoleSupport
)

// AllRoles lists every valid role in a fixed order.
var AllRoles = []Role{RoleTop, RoleJungle, RoleMid, RoleBottom, RoleSupport}

var roleNames = map[Role]string{
	RoleTop:     "top",
	RoleJungle:  "jungle",
	RoleMid:     "mid",
	RoleBottom:  "bottom",
	RoleSupport: "support",
}

// roleAliases maps Riot teamPosition values and common shorthands to roles.
var roleAliases = map[string]Role{
	"top":     RoleTop,
	"jungle":  RoleJungle,
	"jg":      RoleJungle,
	"mid":     RoleMid,
	"middle":  RoleMid,
	"bottom":  RoleBottom,
	"bot":     RoleBottom,
	"adc":     RoleBottom,
	"support": RoleSupport,
	"utility": RoleSupport,
	"sup":     RoleSupport,
}

// ParseRole resolves a raw role string. Empty and unrecognised values return
// an error instead of falling into a catch-all group.
func ParseRole(s string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if r, ok := roleAliases[key]; ok {
		return r, nil
	}
	return RoleUnknown, fmt.Errorf("unrecognised role %q", s)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	if strings.EqualFold(string(text), "unknown") {
		*r = RoleUnknown
		return nil
	}
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
