package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/quizedit/internal/chat"
	"github.com/dshills/quizedit/internal/editor"
	"github.com/dshills/quizedit/internal/prompts"
	"github.com/dshills/quizedit/internal/store"
)

const quizDoc = "# Quiz\n\n## Aufgabe 1\nWas ist Löten?\n- [x] Fügen mit Lot\n- [ ] Schweißen\n"

type stubProvider struct {
	reply string
	got   chat.Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req chat.Request) (string, error) {
	s.got = req
	return s.reply, nil
}

type fixture struct {
	srv      *httptest.Server
	session  *editor.Session
	prompts  *prompts.Manager
	provider *stubProvider
	store    store.Store
}

func newFixture(t *testing.T, withProvider bool) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	f := &fixture{
		session: editor.New(editor.KindQuiz, editor.Options{Store: st}),
		prompts: prompts.NewManager(st, nil),
		store:   st,
	}
	f.session.Load(quizDoc)
	cfg := Config{Session: f.session, Prompts: f.prompts, Store: st}
	if withProvider {
		f.provider = &stubProvider{}
		cfg.Provider = f.provider
	}
	f.srv = httptest.NewServer(New(cfg).Handler())
	t.Cleanup(func() {
		f.srv.Close()
		f.session.Close()
		f.prompts.Close()
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, gjson.Result) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("%s %s content type = %q", method, path, ct)
	}
	return resp.StatusCode, gjson.ParseBytes(data)
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestDocumentRoutes(t *testing.T) {
	f := newFixture(t, false)

	code, doc := f.do(t, http.MethodGet, "/api/document", "")
	if code != http.StatusOK || doc.Get("text").String() != quizDoc || doc.Get("kind").String() != "quiz" {
		t.Fatalf("GET document = %d %s", code, doc.Raw)
	}

	code, doc = f.do(t, http.MethodPut, "/api/document", `{"text":"neu"}`)
	if code != http.StatusOK || doc.Get("text").String() != "neu" || !doc.Get("canUndo").Bool() {
		t.Errorf("PUT document = %d %s", code, doc.Raw)
	}

	_, doc = f.do(t, http.MethodPost, "/api/undo", "")
	if doc.Get("text").String() != quizDoc || !doc.Get("canRedo").Bool() {
		t.Errorf("undo = %s", doc.Raw)
	}
	_, doc = f.do(t, http.MethodPost, "/api/redo", "")
	if doc.Get("text").String() != "neu" {
		t.Errorf("redo = %s", doc.Raw)
	}

	_, doc = f.do(t, http.MethodPost, "/api/document/reset", `{"text":"frisch"}`)
	if doc.Get("text").String() != "frisch" || doc.Get("canUndo").Bool() {
		t.Errorf("reset = %s", doc.Raw)
	}

	if code, _ := f.do(t, http.MethodPut, "/api/document", `{"text":`); code != http.StatusBadRequest {
		t.Errorf("invalid body status = %d", code)
	}
}

func TestLocateRoute(t *testing.T) {
	f := newFixture(t, false)

	code, res := f.do(t, http.MethodPost, "/api/locate", `{"snippet":"Was  ist Löten?"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d %s", code, res.Raw)
	}
	start := strings.Index(quizDoc, "Was ist")
	if res.Get("start").Int() != int64(start) || res.Get("pass").String() != "whitespace" || res.Get("text").String() != "Was ist Löten?" {
		t.Errorf("locate = %s", res.Raw)
	}
	// "Löten" has one two-byte rune before the end of the match.
	if res.Get("utf16.end").Int() != res.Get("end").Int()-1 {
		t.Errorf("utf16 range = %s", res.Get("utf16").Raw)
	}

	if code, _ := f.do(t, http.MethodPost, "/api/locate", `{"snippet":"Kupfer"}`); code != http.StatusNotFound {
		t.Errorf("not found status = %d", code)
	}
}

func TestApplyAndPreviewRoutes(t *testing.T) {
	f := newFixture(t, false)

	code, res := f.do(t, http.MethodPost, "/api/preview", `{"original":"Schweißen","suggestion":"Kleben"}`)
	if code != http.StatusOK || !strings.Contains(res.Get("diff").String(), "{+Kleb") {
		t.Errorf("preview = %d %s", code, res.Raw)
	}
	if f.session.Text() != quizDoc {
		t.Error("preview changed the document")
	}

	code, res = f.do(t, http.MethodPost, "/api/apply", `{"original":"Schweißen","suggestion":"Kleben"}`)
	if code != http.StatusOK {
		t.Fatalf("apply status = %d %s", code, res.Raw)
	}
	if !strings.Contains(res.Get("document.text").String(), "- [ ] Kleben") || res.Get("range.pass").String() != "exact" {
		t.Errorf("apply = %s", res.Raw)
	}

	if code, _ := f.do(t, http.MethodPost, "/api/apply", `{"original":"Kupfer","suggestion":"Zinn"}`); code != http.StatusUnprocessableEntity {
		t.Errorf("not located status = %d", code)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/apply", `{"original":"Lot","suggestion":"x","taskId":"aufgabe-7-0"}`); code != http.StatusNotFound {
		t.Errorf("unknown task status = %d", code)
	}
}

func TestParseRoutes(t *testing.T) {
	f := newFixture(t, false)

	_, tasks := f.do(t, http.MethodGet, "/api/tasks", "")
	if tasks.Get("#").Int() != 1 || tasks.Get("0.id").String() != "aufgabe-1-0" || tasks.Get("0.range.start").Int() != int64(strings.Index(quizDoc, "## Aufgabe")) {
		t.Errorf("tasks = %s", tasks.Raw)
	}
	_, lesson := f.do(t, http.MethodGet, "/api/lesson", "")
	if lesson.Get("slides.#").Int() != 1 {
		t.Errorf("lesson = %s", lesson.Raw)
	}
	_, sections := f.do(t, http.MethodGet, "/api/sections", "")
	if !sections.IsArray() {
		t.Errorf("sections = %s", sections.Raw)
	}

	code, doc := f.do(t, http.MethodDelete, "/api/tasks/aufgabe-1-0", "")
	if code != http.StatusOK || strings.Contains(doc.Get("text").String(), "Aufgabe 1") {
		t.Errorf("delete = %d %s", code, doc.Raw)
	}
	if code, _ := f.do(t, http.MethodDelete, "/api/tasks/aufgabe-1-0", ""); code != http.StatusNotFound {
		t.Errorf("second delete status = %d", code)
	}
}

func TestAIRoutesWithoutProvider(t *testing.T) {
	f := newFixture(t, false)
	for _, path := range []string{"/api/check", "/api/tasks/generate"} {
		if code, _ := f.do(t, http.MethodPost, path, ""); code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, code)
		}
	}
	if code, _ := f.do(t, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"Hallo"}]}`); code != http.StatusServiceUnavailable {
		t.Errorf("chat status = %d, want 503", code)
	}
}

func TestCheckRoute(t *testing.T) {
	f := newFixture(t, true)
	f.provider.reply = `{"fachlich":[{"original":"Schweißen","suggestion":"Kleben","explanation":"Beim Löten wird nicht geschweißt."}]}`
	_ = f.prompts.SetContent(prompts.IDReview, "Prüfe streng.")

	code, res := f.do(t, http.MethodPost, "/api/check", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d %s", code, res.Raw)
	}
	if res.Get("fachlich.#").Int() != 1 || res.Get("fachlich.0.suggestion").String() != "Kleben" || res.Get("fachlich.0.id").String() == "" {
		t.Errorf("results = %s", res.Raw)
	}
	if !res.Get("sprachlich").IsArray() {
		t.Errorf("empty category should be an array: %s", res.Raw)
	}
	if f.provider.got.Messages[0].Content != "Prüfe streng." {
		t.Errorf("system prompt = %q", f.provider.got.Messages[0].Content)
	}

	f.provider.reply = "kein JSON"
	if code, _ := f.do(t, http.MethodPost, "/api/check", `{"snippet":"Was ist Löten?"}`); code != http.StatusBadGateway {
		t.Errorf("malformed reply status = %d", code)
	}
}

func TestChatRoute(t *testing.T) {
	f := newFixture(t, true)
	f.provider.reply = "Vorschlag"

	body := jsonBody(t, map[string]any{
		"promptId": prompts.IDSingleChoice,
		"label":    "Aufgabe 1",
		"messages": []chat.Message{{Role: chat.RoleUser, Content: "Verbessere die Frage"}},
	})
	code, res := f.do(t, http.MethodPost, "/api/chat", body)
	if code != http.StatusOK || res.Get("reply").String() != "Vorschlag" {
		t.Fatalf("chat = %d %s", code, res.Raw)
	}
	msgs := f.provider.got.Messages
	if len(msgs) != 4 || msgs[1].Content != prompts.Defaults().SingleChoice || msgs[3].Content != "Verbessere die Frage" {
		t.Errorf("messages = %+v", msgs)
	}

	if code, _ := f.do(t, http.MethodPost, "/api/chat", `{"promptId":"nope","messages":[{"role":"user","content":"x"}]}`); code != http.StatusNotFound {
		t.Errorf("unknown prompt status = %d", code)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/chat", `{}`); code != http.StatusBadRequest {
		t.Errorf("no messages status = %d", code)
	}
}

func TestGenerateRoute(t *testing.T) {
	f := newFixture(t, true)
	f.provider.reply = "Welche Farbe hat Lot?\n- [x] Silbern"
	_ = editor.KindExplanation.Schema().Save(f.store, "Lot ist silbern.")

	code, res := f.do(t, http.MethodPost, "/api/tasks/generate", `{"instruction":"Kurz"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d %s", code, res.Raw)
	}
	if !strings.HasPrefix(res.Get("task").String(), "## Aufgabe 2\n") || !strings.Contains(res.Get("document.text").String(), "Welche Farbe hat Lot?") {
		t.Errorf("generate = %s", res.Raw)
	}
	if ctx := f.provider.got.Messages[2].Content; !strings.HasPrefix(ctx, "Kontext (TE):\nLot ist silbern.") {
		t.Errorf("context message = %q", ctx)
	}
}

func TestPromptRoutes(t *testing.T) {
	f := newFixture(t, false)

	_, p := f.do(t, http.MethodGet, "/api/prompts", "")
	if p.Get("combined").String() == "" || !p.Get("custom").IsArray() {
		t.Fatalf("prompts = %s", p.Raw)
	}

	code, d := f.do(t, http.MethodPost, "/api/prompts/custom", `{"title":"Eigener"}`)
	if code != http.StatusCreated || !strings.HasPrefix(d.Get("id").String(), "prompt-") {
		t.Fatalf("add custom = %d %s", code, d.Raw)
	}
	id := d.Get("id").String()

	_, p = f.do(t, http.MethodPut, "/api/prompts/"+id, `{"content":"Inhalt"}`)
	if p.Get("custom.0.content").String() != "Inhalt" {
		t.Errorf("put content = %s", p.Raw)
	}
	_, p = f.do(t, http.MethodPatch, "/api/prompts/custom/"+id, `{"title":"Neu"}`)
	if p.Get("custom.0.title").String() != "Neu" {
		t.Errorf("rename = %s", p.Raw)
	}
	_, p = f.do(t, http.MethodDelete, "/api/prompts/custom/"+id, "")
	if p.Get(`custom.#(id=="` + id + `")`).Exists() {
		t.Errorf("removed prompt still listed: %s", p.Raw)
	}
	if code, _ := f.do(t, http.MethodDelete, "/api/prompts/custom/"+id, ""); code != http.StatusNotFound {
		t.Errorf("second remove status = %d", code)
	}

	_, p = f.do(t, http.MethodPut, "/api/prompts", `{"combined":"A","singleChoice":"B","multiSingleChoice":"C","custom":[]}`)
	if p.Get("combined").String() != "A" || p.Get("custom.#").Int() != 0 {
		t.Errorf("put prompts = %s", p.Raw)
	}
	if f.prompts.Prompts().SingleChoice != "B" {
		t.Error("manager not updated")
	}
}

func TestPromptRoutesWithoutManager(t *testing.T) {
	session := editor.New(editor.KindQuiz, editor.Options{})
	defer session.Close()
	srv := httptest.NewServer(New(Config{Session: session}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/prompts")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
