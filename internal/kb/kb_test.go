package kb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testArticles = `Article 5 - Principles relating to processing of personal data
Personal data shall be processed lawfully, fairly and in a transparent manner.
Personal data shall be kept in a form which permits identification of data
subjects for no longer than is necessary; this is the storage limitation
principle. Retention periods must be defined and justified.

Article 6 - Lawfulness of processing
Processing shall be lawful only if the data subject has given consent or
another legal basis applies, such as contract performance or legal obligation.

Article 17 - Right to erasure
The data subject shall have the right to obtain the erasure of personal data
concerning him or her without undue delay where the data are no longer
necessary for the purposes for which they were collected.

Recital 39 - Transparency
Any processing of personal data should be transparent to natural persons.
`

const testFrameworkYAML = `id: gdpr
name: General Data Protection Regulation
version: "2016/679"
region: EU
context: |
  EU regulation on data protection and privacy.
keyword_categories:
  retention:
    - retention
    - storage limitation
  erasure:
    - erasure
    - deletion
patterns:
  - name: indefinite_retention
    description: Data kept without a defined retention period
    indicators:
      - stored indefinitely
    regulations:
      - Article 5(1)(e)
`

func writeFramework(t *testing.T, root, name, articles, yaml string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if articles != "" {
		if err := os.WriteFile(filepath.Join(dir, "articles.txt"), []byte(articles), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if yaml != "" {
		if err := os.WriteFile(filepath.Join(dir, "framework.yaml"), []byte(yaml), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoad_Framework(t *testing.T) {
	root := t.TempDir()
	writeFramework(t, root, "gdpr", testArticles, testFrameworkYAML)

	kb := New(root, nil)
	fw, err := kb.Load("gdpr")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if fw.Info.ID != "gdpr" || fw.Info.Region != "EU" {
		t.Errorf("Unexpected info: %+v", fw.Info)
	}
	if len(fw.Entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(fw.Entries))
	}
	if fw.Entries[0].ID != "Article 5" || fw.Entries[0].Title != "Principles relating to processing of personal data" {
		t.Errorf("First entry misparsed: %+v", fw.Entries[0].ID)
	}
	if fw.Entries[3].ID != "Recital 39" {
		t.Errorf("Recital heading not recognized: %q", fw.Entries[3].ID)
	}
	if len(fw.Patterns) != 1 || fw.Patterns[0].Name != "indefinite_retention" {
		t.Errorf("Patterns not loaded: %+v", fw.Patterns)
	}
	if len(fw.Categories["retention"]) != 2 {
		t.Errorf("Categories not loaded: %+v", fw.Categories)
	}
	if fw.Context == "" {
		t.Errorf("Context not loaded")
	}
}

func TestLoad_EntryLookup(t *testing.T) {
	root := t.TempDir()
	writeFramework(t, root, "gdpr", testArticles, testFrameworkYAML)

	kb := New(root, nil)
	fw, err := kb.Load("gdpr")
	if err != nil {
		t.Fatal(err)
	}

	e, ok := fw.Entry("article 17")
	if !ok {
		t.Fatal("Case-insensitive lookup failed")
	}
	if e.Title != "Right to erasure" {
		t.Errorf("Wrong entry: %+v", e)
	}
	if _, ok := fw.Entry("Article 99"); ok {
		t.Errorf("Nonexistent entry resolved")
	}
}

func TestLoad_WithoutFrameworkYAML(t *testing.T) {
	root := t.TempDir()
	writeFramework(t, root, "bare", testArticles, "")

	kb := New(root, nil)
	fw, err := kb.Load("bare")
	if err != nil {
		t.Fatalf("articles.txt alone should load: %v", err)
	}
	if fw.Info.ID != "bare" {
		t.Errorf("ID should default to the directory name, got %q", fw.Info.ID)
	}
	if len(fw.Entries) != 4 {
		t.Errorf("Expected 4 entries, got %d", len(fw.Entries))
	}
}

func TestLoad_NotFound(t *testing.T) {
	root := t.TempDir()
	kb := New(root, nil)

	_, err := kb.Load("hipaa")
	var nf *FrameworkNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected FrameworkNotFoundError, got %v", err)
	}
	if nf.Framework != "hipaa" {
		t.Errorf("Wrong framework in error: %q", nf.Framework)
	}

	// Directory exists but has no articles file.
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := kb.Load("empty"); !errors.As(err, &nf) {
		t.Errorf("Missing articles.txt should be a not-found error, got %v", err)
	}
}

func TestLoad_Memoized(t *testing.T) {
	root := t.TempDir()
	writeFramework(t, root, "gdpr", testArticles, testFrameworkYAML)

	kb := New(root, nil)
	first, err := kb.Load("gdpr")
	if err != nil {
		t.Fatal(err)
	}

	// Remove the files; the second load must still serve the framework.
	if err := os.RemoveAll(filepath.Join(root, "gdpr")); err != nil {
		t.Fatal(err)
	}
	second, err := kb.Load("gdpr")
	if err != nil {
		t.Fatalf("Memoized load failed: %v", err)
	}
	if first != second {
		t.Errorf("Load should return the same Framework pointer")
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	writeFramework(t, root, "gdpr", testArticles, testFrameworkYAML)
	writeFramework(t, root, "ccpa", testArticles, "id: ccpa\nname: California Consumer Privacy Act\nregion: US-CA\n")
	// A directory without framework.yaml is skipped.
	writeFramework(t, root, "bare", testArticles, "")

	kb := New(root, nil)
	infos, err := kb.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 frameworks, got %d: %+v", len(infos), infos)
	}
	if infos[0].ID != "ccpa" || infos[1].ID != "gdpr" {
		t.Errorf("Expected sorted ids, got %+v", infos)
	}
}

func TestLoad_ShippedFrameworks(t *testing.T) {
	kb := New(filepath.Join("..", "..", "knowledge_base"), nil)

	infos, err := kb.List()
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]bool{}
	for _, info := range infos {
		ids[info.ID] = true
	}
	for _, want := range []string{"gdpr", "hipaa"} {
		if !ids[want] {
			t.Errorf("Shipped corpus missing framework %q: %+v", want, infos)
			continue
		}
		fw, err := kb.Load(want)
		if err != nil {
			t.Errorf("Load(%s): %v", want, err)
			continue
		}
		if len(fw.Entries) == 0 || len(fw.Patterns) == 0 || len(fw.Categories) == 0 {
			t.Errorf("%s: incomplete framework: %d entries, %d patterns, %d categories",
				want, len(fw.Entries), len(fw.Patterns), len(fw.Categories))
		}
		if fw.Context == "" {
			t.Errorf("%s: missing context", want)
		}
	}
}

func TestSearch_Ranking(t *testing.T) {
	root := t.TempDir()
	writeFramework(t, root, "gdpr", testArticles, testFrameworkYAML)

	kb := New(root, nil)
	fw, err := kb.Load("gdpr")
	if err != nil {
		t.Fatal(err)
	}

	results := kb.Search(fw, "data retention and storage limitation periods", 2)
	if len(results) == 0 {
		t.Fatal("Expected results for a retention query")
	}
	if results[0].ID != "Article 5" {
		t.Errorf("Expected Article 5 ranked first for retention, got %q", results[0].ID)
	}

	results = kb.Search(fw, "right to erasure and deletion of personal data", 2)
	if len(results) == 0 || results[0].ID != "Article 17" {
		t.Errorf("Expected Article 17 ranked first for erasure, got %+v", results)
	}
}

func TestSearch_Limits(t *testing.T) {
	root := t.TempDir()
	writeFramework(t, root, "gdpr", testArticles, testFrameworkYAML)

	kb := New(root, nil)
	fw, err := kb.Load("gdpr")
	if err != nil {
		t.Fatal(err)
	}

	if got := kb.Search(fw, "personal data processing", 0); got != nil {
		t.Errorf("topK 0 should return nil, got %d results", len(got))
	}
	if got := kb.Search(fw, "personal data processing", 1); len(got) > 1 {
		t.Errorf("topK 1 returned %d results", len(got))
	}
	if got := kb.Search(fw, "zebra quantum spacecraft", 3); len(got) != 0 {
		t.Errorf("Unrelated query should return nothing, got %+v", got)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFramework(t, root, "gdpr", testArticles, testFrameworkYAML)

	kb := New(root, nil)
	fw, err := kb.Load("gdpr")
	if err != nil {
		t.Fatal(err)
	}

	first := kb.Search(fw, "personal data processing and consent", 3)
	for i := 0; i < 5; i++ {
		got := kb.Search(fw, "personal data processing and consent", 3)
		if len(got) != len(first) {
			t.Fatalf("Result count changed on run %d", i)
		}
		for j := range got {
			if got[j].ID != first[j].ID {
				t.Fatalf("Result order changed on run %d: %q vs %q", i, got[j].ID, first[j].ID)
			}
		}
	}
}

func TestExtractConcepts(t *testing.T) {
	categories := map[string][]string{
		"retention": {"retention", "storage limitation"},
	}
	concepts := extractConcepts(
		"Principles relating to processing of personal data",
		"data shall be kept no longer than necessary; this is the storage limitation principle",
		categories,
	)

	has := func(want string) bool {
		for _, c := range concepts {
			if c == want {
				return true
			}
		}
		return false
	}
	if !has("processing") || !has("personal") {
		t.Errorf("Title words missing from concepts: %v", concepts)
	}
	if !has("storage limitation") {
		t.Errorf("Category keyword present in text missing from concepts: %v", concepts)
	}
	if has("of") || has("the") {
		t.Errorf("Stopwords should be excluded: %v", concepts)
	}
}
