/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// Package beamline holds the static, per-instrument rules used when ingesting
// MetaMan exports: which files are accepted, how they are grouped into
// datasets and which metadata schemas apply.
package beamline

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/exp/slices"
)

// Error is the type of the constant Err* variables.
type Error string

// Error returns a string version of the error.
func (e Error) Error() string { return string(e) }

const (
	ErrUnknownBeamline  = Error("unknown beamline")
	ErrDuplicate        = Error("beamline defined more than once")
	ErrNoName           = Error("beamline has no name")
	ErrNoFileTypes      = Error("beamline has no accepted file types")
	ErrNoStrategy       = Error("beamline has no grouping strategy")
	ErrBadStrategy      = Error("invalid grouping strategy")
	ErrBadStrategyParam = Error("invalid grouping strategy parameter")
	ErrHeaderNotFound   = Error("header not found")
	ErrTooFewColumns    = Error("too few tab separated columns")
)

// Schemas that apply to every experiment, regardless of beamline.
const (
	ExperimentSchema = "http://www.tardis.edu.au/schemas/ansto/experiment/2011/06/21"
	DatasetSchema    = "http://gendsschema.com/"
	SampleSchema     = "http://www.tardis.edu.au/schemas/ansto/sample/2011/06/21"
	ChemicalSchema   = "http://www.tardis.edu.au/schemas/ansto/chemical/2011/06/21"
)

// Config holds the rules for a single beamline. It must not be modified once
// it has been added to a Registry.
type Config struct {
	// Name is the case-sensitive short name, which is also the first path
	// segment of every file the beamline produces.
	Name string

	// FileTypes matches the basenames of files that should be ingested.
	FileTypes *regexp.Regexp

	Strategy Strategy

	// Metadata, if not nil, matches the basenames of files whose metadata
	// describes their dataset rather than themselves.
	Metadata *regexp.Regexp

	DatafileSchema string

	// AccessGroup is the name of the group given read access to experiments
	// containing data from this beamline.
	AccessGroup string
}

// CompilePattern compiles a file name pattern the way Config expects: case
// insensitive and anchored at the start of the basename.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)^(?:" + pattern + ")")
}

// Accepts returns true if the basename of the given path matches our
// FileTypes.
func (c *Config) Accepts(filePath string) bool {
	return c.FileTypes != nil && c.FileTypes.MatchString(path.Base(filePath))
}

// IsDatasetMetadata returns true if the file at the given path holds metadata
// about its dataset instead of about itself.
func (c *Config) IsDatasetMetadata(filePath string) bool {
	return c.Metadata != nil && c.Metadata.MatchString(path.Base(filePath))
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return ErrNoName
	case c.FileTypes == nil:
		return ErrNoFileTypes
	case c.Strategy == nil:
		return ErrNoStrategy
	}

	return nil
}

// Registry is an immutable set of beamline Configs, safe for concurrent use.
type Registry struct {
	configs map[string]*Config
}

// New creates a Registry from the given Configs, which must have unique
// names.
func New(configs ...*Config) (*Registry, error) {
	r := &Registry{configs: make(map[string]*Config, len(configs))}

	for _, c := range configs {
		if err := c.validate(); err != nil {
			return nil, err
		}

		if _, ok := r.configs[c.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, c.Name)
		}

		r.configs[c.Name] = c
	}

	return r, nil
}

// Lookup returns the Config of the named beamline, or ErrUnknownBeamline.
func (r *Registry) Lookup(name string) (*Config, error) {
	c, ok := r.configs[name]
	if !ok {
		return nil, ErrUnknownBeamline
	}

	return c, nil
}

// Names returns the sorted names of all our beamlines.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.configs))

	for name := range r.configs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Filter returns those of the given names that are in the Registry, in the
// given order and without duplicates.
func (r *Registry) Filter(names []string) []string {
	known := make([]string, 0, len(names))

	for _, name := range names {
		if _, ok := r.configs[name]; !ok || slices.Contains(known, name) {
			continue
		}

		known = append(known, name)
	}

	return known
}

// Default returns a Registry holding the neutron beamlines MetaMan exports
// are produced for.
func Default() *Registry {
	r, err := New(
		ansto("Echidna", "ech"),
		ansto("Kowari", "kwr"),
		ansto("Platypus", "plp"),
		ansto("Quokka", "qkk"),
		ansto("Wombat", "wbt"),
	)
	if err != nil {
		panic(err)
	}

	return r
}

func ansto(name, abbr string) *Config {
	return &Config{
		Name:           name,
		FileTypes:      regexp.MustCompile(`(?i)^(?:.*\.(pdf)$|.*\.(hdf)$)`),
		Strategy:       SampleName{},
		DatafileSchema: "http://www.tardis.edu.au/schemas/ansto/" + abbr + "/2011/06/21",
		AccessGroup:    "BEAMLINE_" + strings.ToUpper(abbr),
	}
}
