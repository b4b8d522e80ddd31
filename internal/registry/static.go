// internal/registry/static.go
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/javajoker/imi-licensing/internal/licensing"
)

// Static is a registry backed by a fixed allow-list, typically loaded from a
// YAML file. It is read-only after construction and safe for concurrent use.
type Static struct {
	allowAll  bool
	contents  map[uint64]struct{}
	templates map[uint64]struct{}
	creators  map[licensing.Principal]struct{}
}

type staticFile struct {
	AllowAll  bool     `yaml:"allow_all"`
	Contents  []uint64 `yaml:"contents"`
	Templates []uint64 `yaml:"templates"`
	Creators  []string `yaml:"creators"`
}

func NewStatic(contents, templates []uint64, creators []licensing.Principal) *Static {
	s := &Static{
		contents:  make(map[uint64]struct{}, len(contents)),
		templates: make(map[uint64]struct{}, len(templates)),
		creators:  make(map[licensing.Principal]struct{}, len(creators)),
	}
	for _, id := range contents {
		s.contents[id] = struct{}{}
	}
	for _, id := range templates {
		s.templates[id] = struct{}{}
	}
	for _, p := range creators {
		s.creators[p] = struct{}{}
	}
	return s
}

// AllowAll returns a registry that accepts every content, template and
// creator. Intended for local development.
func AllowAll() *Static {
	s := NewStatic(nil, nil, nil)
	s.allowAll = true
	return s
}

func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	return ParseStatic(data)
}

func ParseStatic(data []byte) (*Static, error) {
	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}

	creators := make([]licensing.Principal, 0, len(file.Creators))
	for _, c := range file.Creators {
		if c == "" {
			return nil, fmt.Errorf("registry file lists an empty creator")
		}
		creators = append(creators, licensing.Principal(c))
	}

	s := NewStatic(file.Contents, file.Templates, creators)
	s.allowAll = file.AllowAll
	return s, nil
}

func (s *Static) IsContentValid(contentID uint64) bool {
	if s.allowAll {
		return true
	}
	_, ok := s.contents[contentID]
	return ok
}

func (s *Static) IsTemplateValid(templateID uint64) bool {
	if s.allowAll {
		return true
	}
	_, ok := s.templates[templateID]
	return ok
}

func (s *Static) IsCreatorRegistered(creator licensing.Principal) bool {
	if s.allowAll {
		return true
	}
	_, ok := s.creators[creator]
	return ok
}

var _ licensing.Registry = (*Static)(nil)
