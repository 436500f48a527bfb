// Package skills implements skill discovery, installation, trust policy
// and audit logging (spec.md §4.3). Frontmatter parsing is grounded on
// haasonsaas-nexus's internal/skills/parser.go, adapted to spec.md §4.3's
// looser contract: only `name:` is required, `description:` defaults to
// "No description" rather than failing the parse.
package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SkillFilename is the frontmatter-bearing file that marks a skill root.
const SkillFilename = "SKILL.md"

const frontmatterDelimiter = "---"

// Skill is one loaded skill: its identity plus the verbatim instructional
// body concatenated into the agent's system prompt.
type Skill struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Path        string `yaml:"-"`
	Body        string `yaml:"-"`
}

// Discover walks dir, considering every subtree whose root contains
// SKILL.md a loaded skill. Unparseable skill files are skipped silently
// (the parse error is not returned), not fatal to discovery overall.
func Discover(dir string) ([]Skill, error) {
	var found []Skill

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return found, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != SkillFilename {
			return nil
		}
		skill, parseErr := ParseFile(path)
		if parseErr != nil {
			return nil
		}
		found = append(found, *skill)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("skills: discover %s: %w", dir, err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found, nil
}

// ParseFile parses a SKILL.md file on disk.
func ParseFile(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("skills: read %s: %w", path, err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse parses SKILL.md content. Only `name` is required; `description`
// defaults to "No description" (spec.md §4.3 "Discovery").
func Parse(data []byte, skillPath string) (*Skill, error) {
	frontmatter, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("skills: split frontmatter: %w", err)
	}

	var s Skill
	if err := yaml.Unmarshal(frontmatter, &s); err != nil {
		return nil, fmt.Errorf("skills: parse frontmatter: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("skills: name is required")
	}
	if s.Description == "" {
		s.Description = "No description"
	}

	s.Body = strings.TrimSpace(string(body))
	s.Path = skillPath
	return &s, nil
}

func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty file")
	}
	if strings.TrimSpace(scanner.Text()) != frontmatterDelimiter {
		return nil, nil, fmt.Errorf("missing opening frontmatter delimiter")
	}

	var frontLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			closed = true
			break
		}
		frontLines = append(frontLines, line)
	}
	if !closed {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanner error: %w", err)
	}

	return []byte(strings.Join(frontLines, "\n")), []byte(strings.Join(bodyLines, "\n")), nil
}

// Catalog formats the loaded skill set as the fixed-header block
// concatenated into the system prompt (spec.md §4.5 step 3).
func Catalog(loaded []Skill) string {
	if len(loaded) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Available Skills:\n")
	for _, s := range loaded {
		sb.WriteString(fmt.Sprintf("## %s\n%s\n\n%s\n\n", s.Name, s.Description, s.Body))
	}
	return sb.String()
}
