package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dshills/quizedit/internal/chat"
	"github.com/dshills/quizedit/internal/check"
	"github.com/dshills/quizedit/internal/diff"
	"github.com/dshills/quizedit/internal/editor"
	"github.com/dshills/quizedit/internal/engine/textrange"
	"github.com/dshills/quizedit/internal/prompts"
	"github.com/dshills/quizedit/internal/server"
	"github.com/dshills/quizedit/internal/store"
)

func (a *app) flags(c command) *flag.FlagSet {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: quizedit %s [options] %s\n\n%s\n\nOptions:\n", c.name, c.args, c.summary)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses args and checks the number of positional arguments.
func parseArgs(fs *flag.FlagSet, args []string, n int) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() != n {
		fs.Usage()
		return errUsage
	}
	return nil
}

func (a *app) kind(name string) (editor.Kind, error) {
	if name == "" {
		name = a.cfg.Editor.Kind
	}
	return editor.ParseKind(name)
}

// session opens a session holding text. Persistent sessions share the
// configured store; the others use a throwaway one.
func (a *app) session(kind editor.Kind, text string, persist bool) *editor.Session {
	st := store.Store(store.NewMemoryStore())
	if persist {
		st = a.store
	}
	s := editor.New(kind, editor.Options{Store: st, Logger: a.log, MaxHistory: a.cfg.Editor.MaxHistory})
	s.Load(text)
	return s
}

func (a *app) provider() (chat.Provider, error) {
	p, err := chat.New(a.cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("%w (set [ai] in the config file or %s)", err, "QUIZEDIT_API_KEY")
	}
	return p, nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeText(path, text string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, []byte(text), mode)
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q (must be json or yaml)", format)
	}
}

func runLocate(_ context.Context, a *app, fs *flag.FlagSet, args []string) error {
	format := fs.String("format", "text", "output format (text, json, yaml)")
	if err := parseArgs(fs, args, 2); err != nil {
		return err
	}

	doc, err := readText(fs.Arg(0))
	if err != nil {
		return err
	}
	m, ok := textrange.Locate(doc, fs.Arg(1))
	if !ok {
		return editor.ErrNotLocated
	}

	if *format == "text" {
		fmt.Fprintf(a.stdout, "%d-%d %s\n%s\n", m.Start, m.End, m.Pass, m.Text(doc))
		return nil
	}
	return writeOutput(a.stdout, *format, map[string]any{
		"start": m.Start,
		"end":   m.End,
		"pass":  m.Pass.String(),
		"text":  m.Text(doc),
	})
}

func runApply(_ context.Context, a *app, fs *flag.FlagSet, args []string) error {
	write := fs.BoolP("write", "w", false, "save the result to the file")
	kindName := fs.String("kind", "", "document kind (quiz, mixed, explanation, lesson)")
	slide := fs.String("slide", "", "apply only inside this slide id")
	task := fs.String("task", "", "apply only inside this task id")
	if err := parseArgs(fs, args, 2); err != nil {
		return err
	}
	kind, err := a.kind(*kindName)
	if err != nil {
		return err
	}

	doc, err := readText(fs.Arg(0))
	if err != nil {
		return err
	}
	raw, err := readText(fs.Arg(1))
	if err != nil {
		return err
	}
	res, err := check.Decode(raw, doc)
	if err != nil {
		return err
	}

	s := a.session(kind, doc, false)
	defer s.Close()

	suggestions := res.All()
	applied := 0
	for _, sg := range suggestions {
		var err error
		switch {
		case *slide != "":
			_, err = s.ApplyInSlide(*slide, sg)
		case *task != "":
			_, err = s.ApplyInTask(*task, sg)
		default:
			_, err = s.Apply(sg)
		}
		if err != nil {
			fmt.Fprintf(a.stderr, "skipped: %v\n", err)
			continue
		}
		applied++
	}

	after := s.Text()
	stats := diff.Compute(doc, after)
	fmt.Fprint(a.stdout, diff.Render(doc, after, a.color))
	fmt.Fprintf(a.stdout, "\napplied %d of %d suggestions (+%d -%d)\n", applied, len(suggestions), stats.Inserted, stats.Deleted)

	if *write && after != doc {
		return writeText(fs.Arg(0), after)
	}
	return nil
}

func (a *app) checker(p chat.Provider) *check.Checker {
	m := prompts.NewManager(a.store, a.log)
	defer m.Close()
	return &check.Checker{Provider: p, Model: a.cfg.AI.Model, SystemPrompt: m.Prompts().Combined, Logger: a.log}
}

func runCheck(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	scope := fs.String("scope", "", "review only the part matching this snippet")
	perTask := fs.Bool("tasks", false, "review every task separately")
	format := fs.String("format", "json", "output format (json, yaml)")
	kindName := fs.String("kind", "", "document kind (quiz, mixed, explanation, lesson)")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}
	kind, err := a.kind(*kindName)
	if err != nil {
		return err
	}
	doc, err := readText(fs.Arg(0))
	if err != nil {
		return err
	}
	p, err := a.provider()
	if err != nil {
		return err
	}

	s := a.session(kind, doc, false)
	defer s.Close()
	checker := a.checker(p)

	if *perTask {
		out, err := s.CheckTasks(ctx, checker)
		if err != nil {
			return err
		}
		return writeOutput(a.stdout, *format, out)
	}

	var res check.Results
	if *scope != "" {
		res, err = s.CheckScope(ctx, checker, *scope)
	} else {
		res, err = s.Check(ctx, checker)
	}
	if err != nil {
		return err
	}
	return writeOutput(a.stdout, *format, res)
}

var defaultViews = map[editor.Kind]string{
	editor.KindQuiz:        "tasks",
	editor.KindMixed:       "sets",
	editor.KindExplanation: "sections",
	editor.KindLesson:      "lesson",
}

func runParse(_ context.Context, a *app, fs *flag.FlagSet, args []string) error {
	as := fs.String("as", "", "structure to extract (tasks, sets, sections, lesson); defaults by kind")
	format := fs.String("format", "json", "output format (json, yaml)")
	kindName := fs.String("kind", "", "document kind (quiz, mixed, explanation, lesson)")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}
	kind, err := a.kind(*kindName)
	if err != nil {
		return err
	}
	doc, err := readText(fs.Arg(0))
	if err != nil {
		return err
	}

	s := a.session(kind, doc, false)
	defer s.Close()

	view := *as
	if view == "" {
		view = defaultViews[kind]
	}
	var v any
	switch strings.ToLower(view) {
	case "tasks":
		v = s.Tasks()
	case "sets":
		v = s.TaskSets()
	case "sections":
		v = s.Sections()
	case "lesson":
		v = s.Lesson()
	default:
		return fmt.Errorf("unknown structure %q (must be tasks, sets, sections or lesson)", view)
	}
	return writeOutput(a.stdout, *format, v)
}

func runGenerate(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	instruction := fs.StringP("instruction", "i", "", "extra requirements for the new task")
	contextFile := fs.String("context", "", "file with the explanation text the task is based on")
	write := fs.BoolP("write", "w", false, "save the result to the file")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}
	doc, err := readText(fs.Arg(0))
	if err != nil {
		return err
	}
	p, err := a.provider()
	if err != nil {
		return err
	}

	req := editor.GenerateRequest{Instruction: *instruction, Model: a.cfg.AI.Model}
	if *contextFile != "" {
		if req.Context, err = readText(*contextFile); err != nil {
			return err
		}
	} else {
		req.Context = store.LoadOr(a.store, editor.KindExplanation.Schema(), "", a.log)
	}
	m := prompts.NewManager(a.store, a.log)
	req.Prompt = m.Prompts().SingleChoice
	m.Close()

	s := a.session(editor.KindQuiz, doc, false)
	defer s.Close()
	task, err := s.GenerateTask(ctx, p, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, task)
	if *write {
		return writeText(fs.Arg(0), s.Text())
	}
	return nil
}

func runPaste(_ context.Context, a *app, fs *flag.FlagSet, args []string) error {
	kindName := fs.String("kind", "", "document kind the clipboard holds")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}
	kind, err := a.kind(*kindName)
	if err != nil {
		return err
	}

	s := a.session(kind, "", true)
	defer s.Close()
	if err := s.Paste(editor.SystemClipboard{}); err != nil {
		return err
	}
	if err := writeText(fs.Arg(0), s.Text()); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %d bytes to %s\n", len(s.Text()), fs.Arg(0))
	return nil
}

func runCopy(_ context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}
	doc, err := readText(fs.Arg(0))
	if err != nil {
		return err
	}
	s := a.session(editor.KindQuiz, doc, false)
	defer s.Close()
	return s.Copy(editor.SystemClipboard{})
}

func runPrompts(_ context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}

	m := prompts.NewManager(a.store, a.log)
	defer m.Close()

	action := "show"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}
	switch {
	case action == "show" || action == "export":
		data, err := prompts.MarshalYAML(m.Prompts())
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(data)
		return err
	case action == "import" && fs.NArg() == 2:
		p, err := prompts.LoadFile(fs.Arg(1))
		if err != nil {
			return err
		}
		m.Set(p)
		fmt.Fprintf(a.stdout, "imported prompts from %s\n", fs.Arg(1))
		return nil
	case action == "reset":
		m.Reset()
		fmt.Fprintln(a.stdout, "prompts reset to defaults")
		return nil
	}
	fs.Usage()
	return errUsage
}

func runServe(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address (host:port)")
	watch := fs.Bool("watch", false, "reload the document when the file changes on disk")
	kindName := fs.String("kind", "", "document kind (quiz, mixed, explanation, lesson)")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}
	kind, err := a.kind(*kindName)
	if err != nil {
		return err
	}
	path := fs.Arg(0)
	doc, err := readText(path)
	if err != nil {
		return err
	}

	s := a.session(kind, doc, true)
	defer s.Close()
	stopWriteBack := s.OnChange(func(text string) {
		if cur, err := readText(path); err == nil && cur == text {
			return
		}
		if err := writeText(path, text); err != nil {
			a.log.Error("writing %s: %v", path, err)
		}
	})
	defer stopWriteBack()

	m := prompts.NewManager(a.store, a.log)
	defer m.Close()

	p, err := chat.New(a.cfg.AI)
	if err != nil {
		a.log.Warn("AI features disabled: %v", err)
		p = nil
	}

	if *watch {
		go func() {
			if err := s.Watch(ctx, path); err != nil {
				a.log.Error("watch: %v", err)
			}
		}()
	}

	srv := server.New(server.Config{
		Session:  s,
		Prompts:  m,
		Provider: p,
		Model:    a.cfg.AI.Model,
		Store:    a.store,
		Logger:   a.log,
	})
	fmt.Fprintf(a.stdout, "serving %s on http://%s\n", path, *addr)
	return srv.ListenAndServe(ctx, *addr)
}
