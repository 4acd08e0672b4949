package kb

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mpetrov/reglens/internal/cache"
	"github.com/mpetrov/reglens/internal/model"
)

// FrameworkNotFoundError indicates the requested framework directory
// or its articles file does not exist under the knowledge-base root.
type FrameworkNotFoundError struct {
	Framework string
	Dir       string
}

func (e *FrameworkNotFoundError) Error() string {
	return fmt.Sprintf("framework %q not found under %s", e.Framework, e.Dir)
}

// Framework is a fully loaded regulatory corpus: its articles, the
// keyword categories and violation patterns used for risk scoring,
// and the prose context injected into prompts. Read-only after load.
type Framework struct {
	Info       model.FrameworkInfo
	Context    string
	Entries    []model.RegulationEntry
	Patterns   []model.ViolationPattern
	Categories map[string][]string

	byID map[string]int
}

// Entry returns the regulation entry with the given id, if present.
func (f *Framework) Entry(id string) (*model.RegulationEntry, bool) {
	i, ok := f.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, false
	}
	return &f.Entries[i], true
}

// KnowledgeBase loads frameworks from a root directory, one
// subdirectory per framework holding framework.yaml and articles.txt.
// Each framework is loaded at most once per process; concurrent
// callers of Load block until the first load completes and then share
// the same immutable Framework.
type KnowledgeBase struct {
	root  string
	cache cache.Cache

	mu    sync.Mutex
	loads map[string]*frameworkLoad
}

type frameworkLoad struct {
	once sync.Once
	fw   *Framework
	err  error
}

// New creates a knowledge base rooted at dir. The cache, when non-nil,
// stores retrieval results keyed on framework and query.
func New(dir string, c cache.Cache) *KnowledgeBase {
	return &KnowledgeBase{
		root:  dir,
		cache: c,
		loads: make(map[string]*frameworkLoad),
	}
}

// Load returns the named framework, reading it from disk on first use.
func (k *KnowledgeBase) Load(name string) (*Framework, error) {
	k.mu.Lock()
	l, ok := k.loads[name]
	if !ok {
		l = &frameworkLoad{}
		k.loads[name] = l
	}
	k.mu.Unlock()

	l.once.Do(func() {
		l.fw, l.err = k.loadFramework(name)
	})
	return l.fw, l.err
}

// List enumerates the frameworks available under the root directory.
func (k *KnowledgeBase) List() ([]model.FrameworkInfo, error) {
	dirs, err := os.ReadDir(k.root)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge base dir: %w", err)
	}

	var infos []model.FrameworkInfo
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(k.root, d.Name(), "framework.yaml"))
		if err != nil {
			continue
		}
		var ff frameworkFile
		if err := yaml.Unmarshal(raw, &ff); err != nil {
			continue
		}
		info := ff.info()
		if info.ID == "" {
			info.ID = d.Name()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// frameworkFile mirrors the on-disk framework.yaml layout.
type frameworkFile struct {
	ID          string                   `yaml:"id"`
	Name        string                   `yaml:"name"`
	Version     string                   `yaml:"version"`
	Region      string                   `yaml:"region"`
	Description string                   `yaml:"description"`
	Context     string                   `yaml:"context"`
	Categories  map[string][]string      `yaml:"keyword_categories"`
	Patterns    []model.ViolationPattern `yaml:"patterns"`
}

func (ff *frameworkFile) info() model.FrameworkInfo {
	return model.FrameworkInfo{
		ID:          ff.ID,
		Name:        ff.Name,
		Version:     ff.Version,
		Region:      ff.Region,
		Description: ff.Description,
	}
}

func (k *KnowledgeBase) loadFramework(name string) (*Framework, error) {
	dir := filepath.Join(k.root, name)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, &FrameworkNotFoundError{Framework: name, Dir: k.root}
	}

	articles, err := os.ReadFile(filepath.Join(dir, "articles.txt"))
	if err != nil {
		return nil, &FrameworkNotFoundError{Framework: name, Dir: k.root}
	}

	fw := &Framework{
		Info:       model.FrameworkInfo{ID: name},
		Categories: map[string][]string{},
		byID:       map[string]int{},
	}

	raw, err := os.ReadFile(filepath.Join(dir, "framework.yaml"))
	if err == nil {
		var ff frameworkFile
		if err := yaml.Unmarshal(raw, &ff); err != nil {
			return nil, fmt.Errorf("parsing framework.yaml for %s: %w", name, err)
		}
		info := ff.info()
		if info.ID == "" {
			info.ID = name
		}
		fw.Info = info
		fw.Context = strings.TrimSpace(ff.Context)
		if ff.Categories != nil {
			fw.Categories = ff.Categories
		}
		fw.Patterns = ff.Patterns
	}

	fw.Entries = parseArticles(string(articles), fw.Info.ID, fw.Categories)
	if len(fw.Entries) == 0 {
		return nil, fmt.Errorf("framework %s: no entries found in articles.txt", name)
	}
	for i, e := range fw.Entries {
		fw.byID[strings.ToLower(e.ID)] = i
	}
	return fw, nil
}

// Article headings: "Article 5", "Article 5(1)(e)", "Recital 39",
// "Section 1798.100", optionally followed by a dash or colon and title.
var articleHeadingRe = regexp.MustCompile(`^((?:Article|Recital|Section|Chapter)\s+[0-9][0-9a-zA-Z().]*)\s*[-–—:]?\s*(.*)$`)

// parseArticles splits the articles file into entries on heading lines
// and extracts per-entry concepts from the title and category keywords.
func parseArticles(text, framework string, categories map[string][]string) []model.RegulationEntry {
	var entries []model.RegulationEntry
	var cur *model.RegulationEntry
	var body strings.Builder

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.TrimSpace(body.String())
		cur.Concepts = extractConcepts(cur.Title, cur.Text, categories)
		entries = append(entries, *cur)
		cur = nil
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := articleHeadingRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			cur = &model.RegulationEntry{
				ID:        strings.TrimSpace(m[1]),
				Title:     strings.TrimSpace(m[2]),
				Framework: framework,
			}
			continue
		}
		if cur != nil {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	return entries
}

// extractConcepts gathers the distinctive terms of an entry: its title
// words minus stopwords, plus any category keywords its text mentions.
func extractConcepts(title, text string, categories map[string][]string) []string {
	seen := map[string]bool{}
	var concepts []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || stopwords[s] || seen[s] {
			return
		}
		seen[s] = true
		concepts = append(concepts, s)
	}

	for _, w := range tokenize(title) {
		add(w)
	}
	lower := strings.ToLower(text)
	var names []string
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, kw := range categories[name] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				add(kw)
			}
		}
	}
	return concepts
}
