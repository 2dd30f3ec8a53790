package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gentoo/pr-assign/pkg/triage"
	"gopkg.in/yaml.v3"
)

// LoadMappings reads the three address-to-account maps. The files are JSON
// objects; YAML mappings are accepted as well. Entries of the
// developer map take precedence over the proxied maintainer map.
func LoadMappings(devPath string, proxiedPath string, projPath string) (triage.Mappings, error) {
	developers, err := readMapping(proxiedPath)
	if err != nil {
		return triage.Mappings{}, err
	}
	devs, err := readMapping(devPath)
	if err != nil {
		return triage.Mappings{}, err
	}
	for mail, handle := range devs {
		developers[mail] = handle
	}
	projects, err := readMapping(projPath)
	if err != nil {
		return triage.Mappings{}, err
	}
	return triage.Mappings{Developers: developers, Projects: projects}, nil
}

// readMapping decodes one mapping file. A repeated address keeps its last value, as
// JSON decoders commonly do.
func readMapping(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Mapping Error: %v", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("Mapping Error: %s: %v", path, err)
	}
	mapping := make(map[string]string)
	if len(doc.Content) == 0 {
		return mapping, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("Mapping Error: %s: line %d: expected a mapping of addresses", path, root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		var mail, handle string
		if err := root.Content[i].Decode(&mail); err != nil {
			return nil, fmt.Errorf("Mapping Error: %s: %v", path, err)
		}
		if err := root.Content[i+1].Decode(&handle); err != nil {
			return nil, fmt.Errorf("Mapping Error: %s: %v", path, err)
		}
		mapping[strings.ToLower(mail)] = handle
	}
	return mapping, nil
}

// ReadSecret reads a token file, dropping surrounding whitespace
func ReadSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
