package triage

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// MaintainerKind is the value of the maintainer type attribute
type MaintainerKind string

const (
	KindPerson  MaintainerKind = "person"
	KindProject MaintainerKind = "project"
)

// DefaultLang is assumed for descriptions without a lang attribute
const DefaultLang = "en"

var ErrMissingEmail = errors.New("maintainer without email")

type Description struct {
	Lang string
	Text string
}

// Maintainer is one maintainer element of a package metadata.xml
type Maintainer struct {
	Kind         MaintainerKind
	Email        string
	Name         string
	Descriptions []Description
}

// Description returns the maintainer description in the given language
func (m Maintainer) Description(lang string) (string, bool) {
	for _, d := range m.Descriptions {
		if d.Lang == lang {
			return d.Text, true
		}
	}
	return "", false
}

type xmlDescription struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

type xmlMaintainer struct {
	Type         string           `xml:"type,attr"`
	Email        *string          `xml:"email"`
	Name         string           `xml:"name"`
	Descriptions []xmlDescription `xml:"description"`
}

type xmlMetadata struct {
	Maintainers []xmlMaintainer `xml:"maintainer"`
}

// ParseMetadata reads the maintainers of a package metadata.xml document.
// A maintainer element without an email fails the whole document.
func ParseMetadata(data []byte) ([]Maintainer, error) {
	var doc xmlMetadata
	decoder := xml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	maintainers := make([]Maintainer, 0, len(doc.Maintainers))
	for i, m := range doc.Maintainers {
		if m.Email == nil {
			return nil, fmt.Errorf("maintainer %d: %w", i+1, ErrMissingEmail)
		}
		kind := KindPerson
		if m.Type == string(KindProject) {
			kind = KindProject
		}
		descriptions := make([]Description, 0, len(m.Descriptions))
		for _, d := range m.Descriptions {
			lang := d.Lang
			if lang == "" {
				lang = DefaultLang
			}
			descriptions = append(descriptions, Description{Lang: lang, Text: strings.TrimSpace(d.Text)})
		}
		maintainers = append(maintainers, Maintainer{
			Kind:         kind,
			Email:        strings.TrimSpace(*m.Email),
			Name:         strings.TrimSpace(m.Name),
			Descriptions: descriptions,
		})
	}
	return maintainers, nil
}

// MetadataPath is the tree path of a package's metadata.xml
func MetadataPath(pkg string) string {
	return pkg + "/" + metadataFile
}
