// Package parser reads Markdown prompt documents: YAML frontmatter followed
// by headed sections.
package parser

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	h1Regex      = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
)

// MarkdownDoc represents a parsed Markdown document.
type MarkdownDoc struct {
	// Frontmatter metadata (from YAML)
	Frontmatter map[string]any

	// Title extracted from frontmatter or first h1
	Title string

	// Main content (after frontmatter)
	Content string

	// Structured content by heading
	Sections []Section
}

// Section represents a heading and its content.
type Section struct {
	Level   int    // 1-6 for h1-h6
	Heading string // The heading text
	Path    string // Full path like "## System > ### Rules"
	Content string // Content under this heading, excluding subsections
	Start   int    // Line number where section starts
	End     int    // Line number where section ends
}

// ParseMarkdown parses a Markdown document into structured form.
// Malformed frontmatter is an error.
func ParseMarkdown(content string) (*MarkdownDoc, error) {
	doc := &MarkdownDoc{
		Frontmatter: make(map[string]any),
	}

	remaining := content
	if strings.HasPrefix(content, "---\n") {
		endIdx := strings.Index(content[4:], "\n---")
		if endIdx < 0 {
			return nil, fmt.Errorf("unterminated frontmatter")
		}
		frontmatterYAML := content[4 : 4+endIdx]
		remaining = strings.TrimPrefix(content[4+endIdx+4:], "\n")

		if err := yaml.Unmarshal([]byte(frontmatterYAML), &doc.Frontmatter); err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
		if doc.Frontmatter == nil {
			doc.Frontmatter = make(map[string]any)
		}
	}

	doc.Content = remaining
	doc.Title = extractTitle(doc.Frontmatter, remaining)
	doc.Sections = parseSections(remaining)

	return doc, nil
}

func extractTitle(fm map[string]any, content string) string {
	if title, ok := fm["title"].(string); ok && title != "" {
		return title
	}
	if name, ok := fm["name"].(string); ok && name != "" {
		return name
	}
	if match := h1Regex.FindStringSubmatch(content); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	return ""
}

func parseSections(content string) []Section {
	var sections []Section

	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNum := 0
	var currentPath []string
	var currentLevels []int

	var currentSection *Section
	var contentBuilder strings.Builder

	flushSection := func(endLine int) {
		if currentSection != nil {
			currentSection.Content = strings.TrimSpace(contentBuilder.String())
			currentSection.End = endLine
			sections = append(sections, *currentSection)
			contentBuilder.Reset()
		}
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		match := headingRegex.FindStringSubmatch(line)
		if len(match) == 0 {
			if currentSection != nil {
				contentBuilder.WriteString(line)
				contentBuilder.WriteString("\n")
			}
			continue
		}

		flushSection(lineNum - 1)

		level := len(match[1])
		heading := strings.TrimSpace(match[2])
		for len(currentLevels) > 0 && currentLevels[len(currentLevels)-1] >= level {
			currentPath = currentPath[:len(currentPath)-1]
			currentLevels = currentLevels[:len(currentLevels)-1]
		}
		currentPath = append(currentPath, match[1]+" "+heading)
		currentLevels = append(currentLevels, level)

		currentSection = &Section{
			Level:   level,
			Heading: heading,
			Path:    strings.Join(currentPath, " > "),
			Start:   lineNum,
		}
	}
	flushSection(lineNum)

	return sections
}

// Section returns the content of the first section whose heading matches
// heading case-insensitively, and whether one was found.
func (d *MarkdownDoc) Section(heading string) (string, bool) {
	for _, s := range d.Sections {
		if strings.EqualFold(s.Heading, heading) {
			return s.Content, true
		}
	}
	return "", false
}

// GetFrontmatterString extracts a string from frontmatter.
func (d *MarkdownDoc) GetFrontmatterString(key string) string {
	if v, ok := d.Frontmatter[key].(string); ok {
		return v
	}
	return ""
}

// GetFrontmatterStringSlice extracts a string slice from frontmatter.
func (d *MarkdownDoc) GetFrontmatterStringSlice(key string) []string {
	switch v := d.Frontmatter[key].(type) {
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case []string:
		return v
	}
	return nil
}
