package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/quizedit/internal/chat"
	"github.com/dshills/quizedit/internal/check"
	"github.com/dshills/quizedit/internal/diff"
	"github.com/dshills/quizedit/internal/editor"
	"github.com/dshills/quizedit/internal/engine/textrange"
	"github.com/dshills/quizedit/internal/prompts"
	"github.com/dshills/quizedit/internal/store"
)

const maxBodyBytes = 4 << 20

var errNoPrompts = errors.New("prompts are not available")

type documentResponse struct {
	Kind    editor.Kind `json:"kind"`
	Text    string      `json:"text"`
	CanUndo bool        `json:"canUndo"`
	CanRedo bool        `json:"canRedo"`
}

type rangeResponse struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Pass  string `json:"pass"`
	Text  string `json:"text"`
	// UTF16 holds the same range in UTF-16 code units for browser clients.
	UTF16 textrange.Range `json:"utf16"`
}

type suggestionRequest struct {
	ID         string         `json:"id"`
	Category   check.Category `json:"category"`
	Original   string         `json:"original"`
	Suggestion string         `json:"suggestion"`
	SlideID    string         `json:"slideId"`
	TaskID     string         `json:"taskId"`
}

func (req suggestionRequest) suggestion() check.Suggestion {
	return check.Suggestion{ID: req.ID, Category: req.Category, Original: req.Original, Suggestion: req.Suggestion}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// fail maps err to a status code.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var chatErr *chat.Error
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, editor.ErrNotLocated):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrUnknownTask), errors.Is(err, editor.ErrUnknownSlide),
		errors.Is(err, prompts.ErrUnknownPrompt), errors.Is(err, errNoPrompts):
		code = http.StatusNotFound
	case errors.Is(err, check.ErrNoProvider):
		code = http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrNoMessages):
		code = http.StatusBadRequest
	case errors.Is(err, check.ErrMalformedResponse), errors.Is(err, editor.ErrEmptyReply),
		errors.As(err, &chatErr):
		code = http.StatusBadGateway
	}
	if code >= 500 {
		s.log.Error("%v", err)
	}
	writeError(w, code, err.Error())
}

func (s *Server) document() documentResponse {
	text, canUndo, canRedo := s.cfg.Session.State()
	return documentResponse{Kind: s.cfg.Session.Kind(), Text: text, CanUndo: canUndo, CanRedo: canRedo}
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.document())
}

func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	s.cfg.Session.SetText(req.Text)
	writeJSON(w, http.StatusOK, s.document())
}

func (s *Server) resetDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	s.cfg.Session.Load(req.Text)
	writeJSON(w, http.StatusOK, s.document())
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.cfg.Session.Undo()
	writeJSON(w, http.StatusOK, s.document())
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.cfg.Session.Redo()
	writeJSON(w, http.StatusOK, s.document())
}

func newRangeResponse(doc string, m textrange.Match) rangeResponse {
	return rangeResponse{
		Start: m.Start,
		End:   m.End,
		Pass:  m.Pass.String(),
		Text:  m.Text(doc),
		UTF16: textrange.UTF16(doc, m.Range),
	}
}

func (s *Server) locate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Snippet string `json:"snippet"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	doc := s.cfg.Session.Text()
	m, ok := textrange.Locate(doc, req.Snippet)
	if !ok {
		writeError(w, http.StatusNotFound, editor.ErrNotLocated.Error())
		return
	}
	writeJSON(w, http.StatusOK, newRangeResponse(doc, m))
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	var req suggestionRequest
	if !readJSON(w, r, &req) {
		return
	}
	doc := s.cfg.Session.Text()
	m, ok := textrange.Locate(doc, req.Original)
	if !ok {
		s.fail(w, fmt.Errorf("preview: %w", editor.ErrNotLocated))
		return
	}
	after := textrange.Replace(doc, m.Range, req.Suggestion)
	writeJSON(w, http.StatusOK, map[string]any{
		"range": newRangeResponse(doc, m),
		"diff":  diff.Render(doc, after, false),
		"stats": diff.Compute(m.Text(doc), req.Suggestion),
	})
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request) {
	var req suggestionRequest
	if !readJSON(w, r, &req) {
		return
	}
	before := s.cfg.Session.Text()

	var applied editor.Applied
	var err error
	switch {
	case req.SlideID != "":
		applied, err = s.cfg.Session.ApplyInSlide(req.SlideID, req.suggestion())
	case req.TaskID != "":
		applied, err = s.cfg.Session.ApplyInTask(req.TaskID, req.suggestion())
	default:
		applied, err = s.cfg.Session.Apply(req.suggestion())
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": s.document(),
		"range":    newRangeResponse(before, applied.Match),
	})
}

func (s *Server) checker() *check.Checker {
	c := &check.Checker{Provider: s.cfg.Provider, Model: s.cfg.Model, Logger: s.log}
	if s.cfg.Prompts != nil {
		c.SystemPrompt = s.cfg.Prompts.Prompts().Combined
	}
	return c
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Snippet string `json:"snippet"`
	}
	if r.ContentLength != 0 && !readJSON(w, r, &req) {
		return
	}

	var res check.Results
	var err error
	if req.Snippet != "" {
		res, err = s.cfg.Session.CheckScope(r.Context(), s.checker(), req.Snippet)
	} else {
		res, err = s.cfg.Session.Check(r.Context(), s.checker())
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []chat.Message `json:"messages"`
		PromptID string         `json:"promptId"`
		Context  string         `json:"context"`
		Label    string         `json:"label"`
		Scope    string         `json:"scope"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if s.cfg.Provider == nil {
		s.fail(w, check.ErrNoProvider)
		return
	}

	ar := editor.AssistRequest{Context: req.Context, Label: req.Label, Scope: req.Scope, History: req.Messages, Model: s.cfg.Model}
	if req.PromptID != "" {
		if s.cfg.Prompts == nil {
			s.fail(w, errNoPrompts)
			return
		}
		content, ok := s.cfg.Prompts.Prompts().Content(req.PromptID)
		if !ok {
			s.fail(w, fmt.Errorf("%w: %s", prompts.ErrUnknownPrompt, req.PromptID))
			return
		}
		ar.Prompt = content
	}

	reply, err := s.cfg.Session.Assist(r.Context(), s.cfg.Provider, ar)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) tasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Session.Tasks())
}

func (s *Server) taskSets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Session.TaskSets())
}

func (s *Server) sections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Session.Sections())
}

func (s *Server) lesson(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Session.Lesson())
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Session.DeleteTask(chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.document())
}

func (s *Server) generateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instruction string `json:"instruction"`
		Context     string `json:"context"`
	}
	if r.ContentLength != 0 && !readJSON(w, r, &req) {
		return
	}
	if s.cfg.Provider == nil {
		s.fail(w, check.ErrNoProvider)
		return
	}

	gr := editor.GenerateRequest{Context: req.Context, Instruction: req.Instruction, Model: s.cfg.Model}
	if s.cfg.Prompts != nil {
		gr.Prompt = s.cfg.Prompts.Prompts().SingleChoice
	} else {
		gr.Prompt = prompts.Defaults().SingleChoice
	}
	if gr.Context == "" && s.cfg.Store != nil {
		gr.Context = store.LoadOr(s.cfg.Store, editor.KindExplanation.Schema(), "", s.log)
	}

	task, err := s.cfg.Session.GenerateTask(r.Context(), s.cfg.Provider, gr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task, "document": s.document()})
}

func (s *Server) promptManager(w http.ResponseWriter) (*prompts.Manager, bool) {
	if s.cfg.Prompts == nil {
		s.fail(w, errNoPrompts)
		return nil, false
	}
	return s.cfg.Prompts, true
}

func (s *Server) getPrompts(w http.ResponseWriter, r *http.Request) {
	m, ok := s.promptManager(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.Prompts())
}

func (s *Server) putPrompts(w http.ResponseWriter, r *http.Request) {
	m, ok := s.promptManager(w)
	if !ok {
		return
	}
	var p prompts.Prompts
	if !readJSON(w, r, &p) {
		return
	}
	m.Set(p)
	writeJSON(w, http.StatusOK, m.Prompts())
}

func (s *Server) putPromptContent(w http.ResponseWriter, r *http.Request) {
	m, ok := s.promptManager(w)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := m.SetContent(chi.URLParam(r, "id"), req.Content); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Prompts())
}

func (s *Server) addCustomPrompt(w http.ResponseWriter, r *http.Request) {
	m, ok := s.promptManager(w)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusCreated, m.AddCustom(req.Title))
}

func (s *Server) renameCustomPrompt(w http.ResponseWriter, r *http.Request) {
	m, ok := s.promptManager(w)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := m.RenameCustom(chi.URLParam(r, "id"), req.Title); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Prompts())
}

func (s *Server) removeCustomPrompt(w http.ResponseWriter, r *http.Request) {
	m, ok := s.promptManager(w)
	if !ok {
		return
	}
	if err := m.RemoveCustom(chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Prompts())
}
