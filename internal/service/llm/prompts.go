package llm

import (
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.yaml
var promptFiles embed.FS

// GenrePrompts holds the prompt templates for one genre, plus the display
// metadata the themes endpoint exposes. Templates use {placeholder} markers
// filled in by the render methods.
type GenrePrompts struct {
	Genre       string   `yaml:"genre"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Features    []string `yaml:"features"`
	System      string   `yaml:"system"`
	Outline     string   `yaml:"outline"`
	Chapter     string   `yaml:"chapter"`
}

// Theme is a selectable novel genre as presented to clients.
type Theme struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// PromptLibrary manages per-genre prompt templates loaded from embedded YAML
type PromptLibrary struct {
	genres map[string]*GenrePrompts
	mu     sync.RWMutex
}

// NewPromptLibrary creates a prompt library and loads the embedded templates
func NewPromptLibrary() (*PromptLibrary, error) {
	l := &PromptLibrary{
		genres: make(map[string]*GenrePrompts),
	}

	for _, genre := range []string{"default", "wuxia", "scifi"} {
		if err := l.loadGenreFile(genre); err != nil {
			return nil, fmt.Errorf("load %s prompts: %w", genre, err)
		}
	}

	return l, nil
}

// loadGenreFile loads one genre's prompt YAML file
func (l *PromptLibrary) loadGenreFile(genre string) error {
	filename := fmt.Sprintf("prompts/%s.yaml", genre)
	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	var prompts GenrePrompts
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return fmt.Errorf("unmarshal %s: %w", filename, err)
	}

	l.mu.Lock()
	l.genres[genre] = &prompts
	l.mu.Unlock()

	return nil
}

// ForGenre returns the templates for a genre, falling back to the default set
// when the genre has no dedicated templates.
func (l *PromptLibrary) ForGenre(genre string) *GenrePrompts {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if p, ok := l.genres[strings.ToLower(genre)]; ok {
		return p
	}
	return l.genres["default"]
}

// Themes lists the genres clients can pick from, sorted by id. The default
// prompt set is a fallback, not a theme, so it is excluded.
func (l *PromptLibrary) Themes() []Theme {
	l.mu.RLock()
	defer l.mu.RUnlock()

	themes := make([]Theme, 0, len(l.genres))
	for genre, p := range l.genres {
		if genre == "default" {
			continue
		}
		themes = append(themes, Theme{
			ID:          genre,
			Name:        p.Name,
			Description: p.Description,
			Features:    p.Features,
		})
	}
	sort.Slice(themes, func(i, j int) bool { return themes[i].ID < themes[j].ID })
	return themes
}

// RenderOutline fills the outline template from the request
func (g *GenrePrompts) RenderOutline(req *ChapterRequest) string {
	return g.replacer(req).Replace(g.Outline)
}

// RenderChapter fills the chapter template from the request
func (g *GenrePrompts) RenderChapter(req *ChapterRequest) string {
	return g.replacer(req).Replace(g.Chapter)
}

func (g *GenrePrompts) replacer(req *ChapterRequest) *strings.Replacer {
	var title, summary string
	if req.Outline != nil {
		title = req.Outline.Title
		summary = req.Outline.Summary
	}

	return strings.NewReplacer(
		"{novel_title}", req.Novel.Title,
		"{genre}", req.Novel.Genre,
		"{description}", req.Novel.Description,
		"{background}", req.Novel.BackgroundSetting,
		"{characters}", req.Novel.CharacterSetting,
		"{chapter_number}", strconv.Itoa(req.ChapterNumber),
		"{previous_content}", req.PreviousContent,
		"{chosen_option}", req.ChosenOption,
		"{chapter_title}", title,
		"{chapter_summary}", summary,
	)
}
