package user

import "strings"

// Profile is the identity returned by the OAuth provider. It lives only inside a session.
type Profile struct {
	ID          string  `json:"id"`
	Provider    string  `json:"provider"`
	DisplayName string  `json:"displayName"`
	Name        Name    `json:"name"`
	Emails      []Email `json:"emails,omitempty"`
	Photos      []Photo `json:"photos,omitempty"`
}

// Name 拆分后的姓名。
type Name struct {
	FamilyName string `json:"familyName,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
}

type Email struct {
	Value    string `json:"value"`
	Verified bool   `json:"verified"`
}

type Photo struct {
	Value string `json:"value"`
}

// PrimaryEmail returns the first verified address, falling back to the first one listed.
func (p Profile) PrimaryEmail() string {
	for _, e := range p.Emails {
		if e.Verified {
			return e.Value
		}
	}
	if len(p.Emails) > 0 {
		return p.Emails[0].Value
	}
	return ""
}

// Valid reports whether the profile carries a provider subject.
func (p Profile) Valid() bool {
	return strings.TrimSpace(p.ID) != ""
}
