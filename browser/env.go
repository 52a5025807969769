// Package browser provides live host for style sheets driven through Chrome
// DevTools protocol.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagesheet/config"
	"pagesheet/sheet"
)

// Attr marks style elements created by Env.
const Attr = "data-pagesheet"

// Shared by all scripts: finds sheet either by owner or by registry index.
const prelude = `const el = (id) => document.querySelector('style[` + Attr + `="' + id + '"]');
const find = (id, idx) => {
	const s = id ? (el(id) || {}).sheet : document.styleSheets[idx];
	if (!s) { throw new Error('no sheet for ' + (id || idx)); }
	return s;
};
`

var _ sheet.Environment = (*Env)(nil)

// Env implements sheet.Environment on top of the current page of the browser
// context.
type Env struct {
	ctx context.Context
	log *zap.Logger
	// limits every single round trip to the browser, zero means no limit
	timeout time.Duration
}

// New wraps chromedp context which must already be attached to a target.
func New(ctx context.Context, log *zap.Logger) *Env {
	if log == nil {
		log = zap.NewNop()
	}
	return &Env{ctx: ctx, log: log.Named("browser")}
}

// Start launches (or connects to) browser according to configuration and
// opens blank document. Returned function must be called to shut everything
// down.
func Start(ctx context.Context, conf *config.BrowserConfig, log *zap.Logger) (*Env, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if conf.RemoteURL != "" {
		log.Debug("Connecting to browser", zap.String("url", conf.RemoteURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, conf.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", conf.Headless),
			chromedp.Flag("disable-gpu", true),
		)
		if conf.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(conf.ExecPath))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	sugar := log.Named("cdp").Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)

	stop := func() {
		browserCancel()
		allocCancel()
	}

	env := New(browserCtx, log)
	env.timeout = conf.Timeout

	ctx, cancel := env.callContext()
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		stop()
		return nil, nil, fmt.Errorf("unable to start browser: %w", err)
	}
	return env, stop, nil
}

// callContext bounds a single call, browser session itself lives as long as
// the context passed to New.
func (e *Env) callContext() (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(e.ctx, e.timeout)
	}
	return context.WithCancel(e.ctx)
}

// script builds self invoking expression passing JSON encoded arguments to
// function body.
func script(params, body string, args ...any) (string, error) {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("unable to encode script argument: %w", err)
		}
		encoded = append(encoded, string(data))
	}
	return fmt.Sprintf("(function(%s) {\n%s%s\n})(%s)", params, prelude, body, strings.Join(encoded, ", ")), nil
}

func (e *Env) eval(res any, params, body string, args ...any) error {
	expr, err := script(params, body, args...)
	if err != nil {
		return err
	}
	ctx, cancel := e.callContext()
	defer cancel()
	return chromedp.Run(ctx, chromedp.Evaluate(expr, res))
}

func (e *Env) CreateContainer() (sheet.Container, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("unable to generate container id: %w", err)
	}
	var ok bool
	if err := e.eval(&ok, "id", `const s = document.createElement('style');
s.setAttribute('`+Attr+`', id);
(document.head || document.documentElement).appendChild(s);
return true;`, id.String()); err != nil {
		return "", err
	}
	e.log.Debug("Style container created", zap.Stringer("id", id))
	return sheet.Container(id.String()), nil
}

func (e *Env) RemoveContainer(c sheet.Container) error {
	var ok bool
	if err := e.eval(&ok, "id", `const s = el(id);
if (s) { s.remove(); }
return !!s;`, string(c)); err != nil {
		return err
	}
	if !ok {
		e.log.Debug("Style container was already gone", zap.String("id", string(c)))
	}
	return nil
}

func (e *Env) SheetFor(c sheet.Container) (sheet.NativeSheet, error) {
	var ok bool
	if err := e.eval(&ok, "id", `const s = el(id);
return !!(s && s.sheet);`, string(c)); err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &nativeSheet{env: e, owner: c, index: -1}, nil
}

func (e *Env) StyleSheets() ([]sheet.NativeSheet, error) {
	var owners []string
	if err := e.eval(&owners, "", `return Array.from(document.styleSheets).map((s) =>
	(s.ownerNode && s.ownerNode.getAttribute && s.ownerNode.getAttribute('`+Attr+`')) || '');`); err != nil {
		return nil, err
	}
	sheets := make([]sheet.NativeSheet, 0, len(owners))
	for i, o := range owners {
		sheets = append(sheets, &nativeSheet{env: e, owner: sheet.Container(o), index: i})
	}
	return sheets, nil
}

func (e *Env) InsertText(c sheet.Container, pos int, text string) error {
	var ok bool
	return e.eval(&ok, "id, pos, text", `const s = el(id);
if (!s) { throw new Error('no container ' + id); }
s.insertBefore(document.createTextNode(text), s.childNodes[pos] || null);
return true;`, string(c), pos, text)
}

func (e *Env) ReplaceText(c sheet.Container, pos int, text string) error {
	var ok bool
	return e.eval(&ok, "id, pos, text", `const s = el(id);
if (!s || !s.childNodes[pos]) { throw new Error('no text node ' + pos + ' in ' + id); }
s.childNodes[pos].nodeValue = text;
return true;`, string(c), pos, text)
}

func (e *Env) Texts(c sheet.Container) ([]string, error) {
	var texts []string
	if err := e.eval(&texts, "id", `const s = el(id);
if (!s) { throw new Error('no container ' + id); }
return Array.from(s.childNodes).map((n) => n.nodeValue || '');`, string(c)); err != nil {
		return nil, err
	}
	return texts, nil
}

// nativeSheet addresses CSSStyleSheet either through its owner element or,
// for sheets not created by us, through position in document registry.
type nativeSheet struct {
	env   *Env
	owner sheet.Container
	index int
}

func (s *nativeSheet) Owner() sheet.Container {
	return s.owner
}

// InsertRule tells exceptions thrown by insertRule itself, which mean the
// browser refused the rule, from failures to reach the sheet.
func (s *nativeSheet) InsertRule(rule string, index int) error {
	var res struct {
		At    int    `json:"at"`
		Error string `json:"error"`
	}
	if err := s.env.eval(&res, "id, idx, rule, at", `const s = find(id, idx);
try { return {at: s.insertRule(rule, at)}; } catch (e) { return {at: -1, error: String(e)}; }`,
		string(s.owner), s.index, rule, index); err != nil {
		return err
	}
	if res.Error != "" {
		return fmt.Errorf("%w: %s", sheet.ErrRejected, res.Error)
	}
	return nil
}

func (s *nativeSheet) DeleteRule(index int) error {
	var ok bool
	return s.env.eval(&ok, "id, idx, at", `find(id, idx).deleteRule(at);
return true;`, string(s.owner), s.index, index)
}

func (s *nativeSheet) Rules() ([]string, error) {
	var rules []string
	if err := s.env.eval(&rules, "id, idx", `return Array.from(find(id, idx).cssRules).map((r) => r.cssText);`,
		string(s.owner), s.index); err != nil {
		return nil, err
	}
	return rules, nil
}
