package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/karrick/godirwalk"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/boostgo/treediff"
)

// Fixture directory layout
const (
	ProjectDirName    = "project"
	ExpectedDirName   = "expected"
	FixtureConfigName = "fixture.yaml"
)

// FixtureConfig is the content of fixture.yaml
type FixtureConfig struct {
	Description string         `yaml:"description"`
	Context     map[string]any `yaml:"context"`
}

// Fixture is one template directory with its expected rendering
type Fixture struct {
	Name        string
	Dir         string
	ProjectDir  string
	ExpectedDir string
	Config      FixtureConfig
}

// LoadFixture reads a single fixture directory. fixture.yaml is optional.
// The fixture is named after the absolute directory, so "." works.
func LoadFixture(dir string) (Fixture, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Fixture{}, fmt.Errorf("fixture %s: %w", dir, err)
	}

	fixture := Fixture{
		Name:        filepath.Base(abs),
		Dir:         dir,
		ProjectDir:  filepath.Join(dir, ProjectDirName),
		ExpectedDir: filepath.Join(dir, ExpectedDirName),
	}

	for _, required := range []string{fixture.ProjectDir, fixture.ExpectedDir} {
		if !treediff.DirectoryExist(required) {
			return fixture, fmt.Errorf("fixture %s: missing directory %s", fixture.Name, required)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, FixtureConfigName))
	if err != nil && !os.IsNotExist(err) {
		return fixture, fmt.Errorf("fixture %s: %w", fixture.Name, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &fixture.Config); err != nil {
			return fixture, fmt.Errorf("fixture %s: failed to parse %s: %w", fixture.Name, FixtureConfigName, err)
		}
	}

	if fixture.Config.Context == nil {
		fixture.Config.Context = map[string]any{}
	}

	return fixture, nil
}

// Discover loads every fixture directory directly under dir. Names starting
// with "." are skipped. When filters are given, only fixtures whose name
// matches one of the doublestar patterns are returned.
func Discover(dir string, filters ...string) ([]Fixture, error) {
	for _, filter := range filters {
		if !doublestar.ValidatePattern(filter) {
			return nil, fmt.Errorf("invalid fixture filter %q", filter)
		}
	}

	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot read fixtures directory %s: %w", dir, err)
	}

	dirents = lo.Filter(dirents, func(de *godirwalk.Dirent, _ int) bool {
		if strings.HasPrefix(de.Name(), ".") {
			return false
		}
		isDir, err := de.IsDirOrSymlinkToDir()
		return err == nil && isDir && matchesAny(de.Name(), filters)
	})

	names := lo.Map(dirents, func(de *godirwalk.Dirent, _ int) string {
		return de.Name()
	})
	sort.Strings(names)

	fixtures := make([]Fixture, 0, len(names))
	for _, name := range names {
		fixture, err := LoadFixture(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, fixture)
	}

	return fixtures, nil
}

func matchesAny(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}

	return lo.ContainsBy(filters, func(filter string) bool {
		ok, _ := doublestar.Match(filter, name)
		return ok
	})
}
