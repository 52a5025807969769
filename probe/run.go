// Package probe implements "probe" command: feeding stylesheet rule by rule
// into live browser to find out which rules the host refuses.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"pagesheet/browser"
	"pagesheet/css"
	"pagesheet/sheet"
	"pagesheet/state"
)

// Rejection is a rule host refused to take.
type Rejection struct {
	Handle sheet.Handle
	Rule   string
	Reason string
}

// Result summarizes probe run.
type Result struct {
	Stats    sheet.Stats
	Fast     bool
	Rejected []Rejection
	Layout   string
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("probe")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Mailformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	data, err := readSource(src)
	if err != nil {
		return err
	}

	// only native insertion lets host refuse individual rules, so profile
	// setting is ignored here
	fast := cmd.Bool("fast")
	env.Flags.Fast = &fast
	env.Flags.Capacity = int(cmd.Int("capacity"))
	opts := env.SheetOptions()

	host, stop, err := browser.Start(ctx, &env.Cfg.Browser, log)
	if err != nil {
		return err
	}
	defer stop()

	log.Info("Probing starting", zap.String("source", src), zap.Int("capacity", opts.Capacity))
	defer func(start time.Time) {
		log.Info("Probing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res, err := feedRules(ctx, host, data, filepath.Base(src), opts, log)
	if err != nil {
		return err
	}
	report(res, env, log)
	return nil
}

// readSource reads stylesheet converting it to UTF-8 when it starts with
// byte order mark.
func readSource(src string) ([]byte, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("unable to open stylesheet: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(transform.NewReader(f, unicode.BOMOverride(transform.Nop)))
	if err != nil {
		return nil, fmt.Errorf("unable to read stylesheet (%s): %w", src, err)
	}
	return data, nil
}

// feedRules inserts every rule of the stylesheet into the store backed by host.
func feedRules(ctx context.Context, host sheet.Environment, data []byte, name string, opts sheet.Options, log *zap.Logger) (*Result, error) {
	res := &Result{}

	opts.OnReject = func(h sheet.Handle, rule string, err error) {
		res.Rejected = append(res.Rejected, Rejection{Handle: h, Rule: rule, Reason: err.Error()})
	}
	store := sheet.New(opts, host, log)
	if !store.Fast() {
		log.Warn("Rules are inserted as text fragments, host will not reject any of them")
	}
	if err := store.Inject(); err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Flush(); err != nil {
			log.Warn("Unable to remove style containers", zap.Error(err))
		}
	}()

	parsed := css.NewSplitter(log).Split(data, name)
	for _, w := range parsed.Warnings {
		log.Warn("Stylesheet problem", zap.String("source", name), zap.String("details", w))
	}

	for _, rule := range parsed.Rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := store.Insert(rule); err != nil {
			return nil, err
		}
	}

	res.Stats = store.Stats()
	res.Fast = store.Fast()
	res.Layout = store.Layout()
	return res, nil
}

// Accepted returns number of rules host took.
func (r *Result) Accepted() int {
	return r.Stats.Inserted - r.Stats.Rejected
}

// RejectedSheet returns rejected rules as stylesheet text annotated with
// reasons.
func (r *Result) RejectedSheet() []byte {
	var buf bytes.Buffer
	for _, rj := range r.Rejected {
		fmt.Fprintf(&buf, "/* #%d: %s */\n%s\n", rj.Handle, sanitizeComment(rj.Reason), rj.Rule)
	}
	return buf.Bytes()
}

func sanitizeComment(s string) string {
	return strings.ReplaceAll(s, "*/", "* /")
}

func report(res *Result, env *state.LocalEnv, log *zap.Logger) {
	log.Info("Host accepted rules",
		zap.Bool("fast", res.Fast),
		zap.Int("accepted", res.Accepted()),
		zap.Int("rejected", res.Stats.Rejected),
		zap.Int("pages", res.Stats.Pages))

	if len(res.Rejected) > 0 {
		log.Warn("Some rules were rejected by host, see debug report for details", zap.Int("count", len(res.Rejected)))
	}
	env.Rpt.StoreData("rejected.css", res.RejectedSheet())
	env.Rpt.StoreData("layout.txt", []byte(res.Layout))
}
