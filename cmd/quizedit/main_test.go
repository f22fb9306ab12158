package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const quizDoc = "# Quiz\n\n## Aufgabe 1\nWas ist Löten?\n- [x] Fügen mit Lot\n- [ ] Schweißen\n"

func setup(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("QUIZEDIT_CONFIG", "")
	t.Setenv("QUIZEDIT_STORE", filepath.Join(dir, "state.json"))
	t.Setenv("QUIZEDIT_LOG_LEVEL", "error")
	if err := os.WriteFile(filepath.Join(dir, "quiz.md"), []byte(quizDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runCmd(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersionAndUsage(t *testing.T) {
	setup(t)
	code, out, _ := runCmd(t, "--version")
	if code != 0 || !strings.HasPrefix(out, "quizedit dev") {
		t.Errorf("--version = %d %q", code, out)
	}
	if code, _, errOut := runCmd(t); code != 2 || !strings.Contains(errOut, "Commands:") {
		t.Errorf("no command = %d %q", code, errOut)
	}
	if code, _, errOut := runCmd(t, "frobnicate"); code != 2 || !strings.Contains(errOut, `unknown command "frobnicate"`) {
		t.Errorf("unknown command = %d %q", code, errOut)
	}
	if code, _, _ := runCmd(t, "--log-level", "loud", "parse", "x"); code != 2 {
		t.Errorf("invalid log level exit = %d", code)
	}
}

func TestLocateCommand(t *testing.T) {
	dir := setup(t)
	file := filepath.Join(dir, "quiz.md")

	code, out, errOut := runCmd(t, "locate", file, "Was ist Löten?")
	start := strings.Index(quizDoc, "Was ist")
	want := "exact\nWas ist Löten?\n"
	if code != 0 || !strings.HasSuffix(out, want) || !strings.HasPrefix(out, strconv.Itoa(start)+"-") {
		t.Errorf("locate = %d %q %q", code, out, errOut)
	}

	if code, _, errOut := runCmd(t, "locate", file, "Kupfer"); code != 1 || !strings.Contains(errOut, "not found") {
		t.Errorf("missing snippet = %d %q", code, errOut)
	}
	if code, _, _ := runCmd(t, "locate", file); code != 2 {
		t.Errorf("missing argument exit = %d", code)
	}
}

func TestParseCommand(t *testing.T) {
	dir := setup(t)
	file := filepath.Join(dir, "quiz.md")

	code, out, errOut := runCmd(t, "parse", "--as", "tasks", "--format", "yaml", file)
	if code != 0 || !strings.Contains(out, "id: aufgabe-1-0") || !strings.Contains(out, "isCorrect: true") {
		t.Errorf("parse yaml = %d %q %q", code, out, errOut)
	}

	code, out, _ = runCmd(t, "parse", "--kind", "lesson", file)
	if code != 0 || !strings.Contains(out, `"slides"`) {
		t.Errorf("parse lesson = %d %q", code, out)
	}

	if code, _, _ := runCmd(t, "parse", "--format", "xml", file); code != 1 {
		t.Errorf("unknown format exit = %d", code)
	}
	if code, _, _ := runCmd(t, "parse", "--as", "slides", file); code != 1 {
		t.Errorf("unknown structure exit = %d", code)
	}
}

func TestApplyCommand(t *testing.T) {
	dir := setup(t)
	file := filepath.Join(dir, "quiz.md")
	suggestions := filepath.Join(dir, "suggestions.json")
	body := `{"fachlich":[{"original":"Schweißen","suggestion":"Kleben"}],"sprachlich":[{"original":"Kupfer","suggestion":"Zinn"}]}`
	if err := os.WriteFile(suggestions, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCmd(t, "--no-color", "apply", file, suggestions)
	if code != 0 || !strings.Contains(out, "applied 1 of 2 suggestions") || !strings.Contains(errOut, "skipped") {
		t.Fatalf("apply = %d %q %q", code, out, errOut)
	}
	if data, _ := os.ReadFile(file); string(data) != quizDoc {
		t.Error("apply without --write changed the file")
	}

	if code, _, _ := runCmd(t, "apply", "--write", file, suggestions); code != 0 {
		t.Fatalf("apply --write exit = %d", code)
	}
	data, _ := os.ReadFile(file)
	if string(data) != strings.Replace(quizDoc, "Schweißen", "Kleben", 1) {
		t.Errorf("file = %q", data)
	}
}

func TestPromptsCommand(t *testing.T) {
	dir := setup(t)

	code, out, _ := runCmd(t, "prompts", "show")
	if code != 0 || !strings.Contains(out, "combined:") {
		t.Fatalf("prompts show = %d %q", code, out)
	}

	imp := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(imp, []byte("combined: Prüfe streng.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, errOut := runCmd(t, "prompts", "import", imp); code != 0 {
		t.Fatalf("prompts import = %d %q", code, errOut)
	}
	_, out, _ = runCmd(t, "prompts", "export")
	if !strings.Contains(out, "combined: Prüfe streng.") {
		t.Errorf("imported prompt not persisted: %q", out)
	}

	if code, _, _ := runCmd(t, "prompts", "import"); code != 2 {
		t.Errorf("import without file exit = %d", code)
	}
}

func TestCheckWithoutAPIKey(t *testing.T) {
	dir := setup(t)
	for _, k := range []string{"QUIZEDIT_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
	code, _, errOut := runCmd(t, "check", filepath.Join(dir, "quiz.md"))
	if code != 1 || !strings.Contains(errOut, "API key") {
		t.Errorf("check = %d %q", code, errOut)
	}
}
