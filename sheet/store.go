// Package sheet implements paged storage of style rules.
//
// Rules are opaque strings. Store spreads them across pages of limited
// capacity, every rule host answered for gets next integer handle which remains
// meaningful until Flush. Deleting a rule overwrites its slot with empty text
// so previously returned handles stay stable.
//
// Store is not safe for concurrent use.
package sheet

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pagesheet/css"
	"pagesheet/utils/debug"
)

// Handle identifies inserted rule until the next Flush.
type Handle int

// InvalidHandle is returned together with errors when no handle was issued.
const InvalidHandle Handle = -1

// Stats describes store activity since the last Flush.
type Stats struct {
	Inserted int // handles issued
	Rejected int // rules host refused to take
	Pages    int
}

type page struct {
	Page
	// handles of accepted rules in the order host holds them
	order []Handle
}

// Store accumulates rules into pages.
type Store struct {
	log      *zap.Logger
	env      Environment
	opts     Options
	capacity int

	fast     bool
	injected bool
	grow     bool // next page could not be allocated yet
	ctr      int
	rejected int
	pages    []*page
}

// New creates store. When env is nil store works in headless context keeping
// everything in memory.
func New(opts Options, env Environment, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		log:      log.Named("sheet"),
		env:      env,
		opts:     opts,
		capacity: opts.capacity(),
		fast:     opts.Fast,
	}
}

// Headless reports whether store works without live host.
func (s *Store) Headless() bool {
	return s.env == nil
}

// Fast reports current insertion mode.
func (s *Store) Fast() bool {
	return s.fast
}

// Injected reports whether Inject was called since creation or last Flush.
func (s *Store) Injected() bool {
	return s.injected
}

// Capacity returns maximum number of rules per page.
func (s *Store) Capacity() int {
	return s.capacity
}

// Len returns number of handles issued since the last Flush.
func (s *Store) Len() int {
	return s.ctr
}

// PageCount returns number of pages currently allocated.
func (s *Store) PageCount() int {
	return len(s.pages)
}

// Stats returns activity counters.
func (s *Store) Stats() Stats {
	return Stats{Inserted: s.ctr, Rejected: s.rejected, Pages: len(s.pages)}
}

func (s *Store) newPage() (*page, error) {
	if s.env == nil {
		return &page{Page: newHeadlessPage()}, nil
	}
	p, err := newLivePage(s.env)
	if err != nil {
		return nil, err
	}
	return &page{Page: p}, nil
}

func (s *Store) appendPage() error {
	p, err := s.newPage()
	if err != nil {
		return err
	}
	s.pages = append(s.pages, p)
	s.grow = false
	return nil
}

// Inject allocates the first page.
func (s *Store) Inject() error {
	if s.injected {
		return ErrAlreadyInjected
	}
	if err := s.appendPage(); err != nil {
		return fmt.Errorf("unable to inject stylesheet: %w", err)
	}
	s.injected = true
	s.log.Debug("Stylesheet injected", zap.Bool("headless", s.Headless()), zap.Bool("fast", s.fast), zap.Int("capacity", s.capacity))
	return nil
}

// SetMode selects insertion strategy. It could only be changed before the
// first insertion.
func (s *Store) SetMode(fast bool) error {
	if s.ctr != 0 {
		return fmt.Errorf("cannot change fast mode to %t after inserting any rule to sheet, either call SetMode(%t) earlier or Flush() before SetMode(%t): %w",
			fast, fast, fast, ErrModeLocked)
	}
	s.fast = fast
	return nil
}

// Insert adds rule to the last page and returns its handle. Rule rejected by
// the host still consumes a handle and never results in error - it is simply
// absent from Rules. Errors are returned when store is not injected or host
// failed (could not allocate a page, timed out, lost the document). Failed
// insertion does not consume a handle.
func (s *Store) Insert(rule string) (Handle, error) {
	if !s.injected {
		return InvalidHandle, ErrNotInjected
	}
	if s.grow {
		if err := s.appendPage(); err != nil {
			return InvalidHandle, fmt.Errorf("unable to allocate page: %w", err)
		}
	}

	h := Handle(s.ctr)
	if err := s.tryInsert(s.pages[len(s.pages)-1], h, rule); err != nil {
		return InvalidHandle, fmt.Errorf("unable to insert rule: %w", err)
	}

	s.ctr++
	if s.ctr%s.capacity == 0 {
		s.grow = true
		if err := s.appendPage(); err != nil {
			// will try again on next insert
			return h, fmt.Errorf("unable to allocate page: %w", err)
		}
	}
	return h, nil
}

// tryInsert is best-effort: one bad rule must never break the whole batch.
// Only host failures are returned.
func (s *Store) tryInsert(p *page, h Handle, rule string) error {
	pos := p.Len()
	if css.IsImport(rule) {
		pos = 0
	}

	var err error
	if s.fast || s.env == nil {
		err = p.Insert(pos, rule)
	} else {
		err = p.InsertText(pos, rule)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrRejected):
		s.rejected++
		if s.opts.ReportRejected {
			s.log.Warn("Illegal rule inserted", zap.Int("handle", int(h)), zap.String("rule", rule), zap.Error(err))
		} else {
			s.log.Debug("Rule rejected", zap.Int("handle", int(h)), zap.Error(err))
		}
		if s.opts.OnReject != nil {
			s.opts.OnReject(h, rule, err)
		}
		return nil
	default:
		return err
	}
	p.order = slices.Insert(p.order, pos, h)
	return nil
}

// locate returns page and in-page position for handle.
func (s *Store) locate(h Handle) (*page, int, bool) {
	if h < 0 || int(h) >= s.ctr {
		return nil, 0, false
	}
	n := int(h) / s.capacity
	if n >= len(s.pages) {
		return nil, 0, false
	}
	p := s.pages[n]
	pos := slices.Index(p.order, h)
	if pos < 0 {
		return nil, 0, false
	}
	return p, pos, true
}

// Replace overwrites content of the slot previously returned by Insert.
// Handles which were never issued since the last Flush, or whose rules were
// rejected, are ignored.
func (s *Store) Replace(h Handle, rule string) error {
	p, pos, ok := s.locate(h)
	if !ok {
		s.log.Debug("Ignoring replacement of unknown rule", zap.Int("handle", int(h)))
		return nil
	}
	if err := p.Replace(pos, rule); err != nil {
		return fmt.Errorf("unable to replace rule %d: %w", h, err)
	}
	return nil
}

// Delete blanks the slot of h, so all previously returned handles stay
// stable.
func (s *Store) Delete(h Handle) (Handle, error) {
	return h, s.Replace(h, "")
}

// Flush releases all pages and resets store to the initial state. Mode value
// is kept, but it could be changed again.
func (s *Store) Flush() (err error) {
	for _, p := range s.pages {
		if er := p.Release(); er != nil {
			err = multierr.Append(err, er)
		}
	}
	if len(s.pages) > 0 {
		s.log.Debug("Stylesheet flushed", zap.Int("pages", len(s.pages)), zap.Int("rules", s.ctr), zap.Int("rejected", s.rejected))
	}
	s.pages = nil
	s.ctr, s.rejected = 0, 0
	s.grow = false
	s.injected = false
	return err
}

// PageRules returns rules of a single page.
func (s *Store) PageRules(i int) ([]string, error) {
	if i < 0 || i >= len(s.pages) {
		return nil, fmt.Errorf("page %d does not exist", i)
	}
	return s.pages[i].Rules()
}

// Rules returns all live rules in page order. Deleted rules are present as
// empty strings.
func (s *Store) Rules() ([]string, error) {
	var all []string
	for i, p := range s.pages {
		rules, err := p.Rules()
		if err != nil {
			return nil, fmt.Errorf("unable to get rules of page %d: %w", i, err)
		}
		all = append(all, rules...)
	}
	return all, nil
}

// Layout returns human readable dump of pages and handles for debugging.
func (s *Store) Layout() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "sheet: headless=%t fast=%t capacity=%d handles=%d rejected=%d", s.Headless(), s.fast, s.capacity, s.ctr, s.rejected)
	for i, p := range s.pages {
		rules, err := p.Rules()
		if err != nil {
			tw.Line(1, "page %d: %v", i, err)
			continue
		}
		tw.Line(1, "page %d: %d rules", i, len(rules))
		for j, r := range rules {
			label := "?"
			if j < len(p.order) {
				label = fmt.Sprintf("#%d", p.order[j])
			}
			tw.TextBlock(2, label, r)
		}
	}
	return tw.String()
}
