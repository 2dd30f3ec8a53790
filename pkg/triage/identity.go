package triage

import (
	"strings"
)

// DefaultMailSuffix is stripped from unmapped developer addresses in reports.
const DefaultMailSuffix = "@gentoo.org"

// Mappings holds the address to GitHub login tables. Keys are lowercase addresses.
type Mappings struct {
	Developers map[string]string
	Projects   map[string]string
}

// IdentityMapper renders maintainer addresses for the report comment. Addresses with a
// known GitHub account become mentions, the rest are struck through so nobody is
// pinged by accident.
type IdentityMapper struct {
	Mappings
	MailSuffix string
}

func NewIdentityMapper(mappings Mappings, mailSuffix string) IdentityMapper {
	if mailSuffix == "" {
		mailSuffix = DefaultMailSuffix
	}
	return IdentityMapper{Mappings: mappings, MailSuffix: mailSuffix}
}

// Developer maps a person maintainer address
func (m IdentityMapper) Developer(address string) string {
	if handle := m.Developers[strings.ToLower(address)]; handle != "" {
		return "@" + handle
	}
	return "~~" + m.obfuscate(address) + "~~"
}

// Project maps a project (team) maintainer address. Team slugs are always lowercase.
func (m IdentityMapper) Project(address string) string {
	if handle, ok := m.Projects[strings.ToLower(address)]; ok {
		return "@" + strings.ToLower(handle)
	}
	return "~~[" + m.obfuscate(address) + " (project)]~~"
}

func (m IdentityMapper) obfuscate(address string) string {
	if local, ok := strings.CutSuffix(address, m.mailSuffix()); ok {
		return local
	}
	return strings.ReplaceAll(address, "@", "[at]")
}

func (m IdentityMapper) mailSuffix() string {
	if m.MailSuffix == "" {
		return DefaultMailSuffix
	}
	return m.MailSuffix
}
