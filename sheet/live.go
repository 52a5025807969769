package sheet

import (
	"errors"
	"fmt"

	"pagesheet/css"
)

// Container is an opaque identity of a display container created by the host
// environment.
type Container string

// NativeSheet is the host rule list bound to a container.
type NativeSheet interface {
	Owner() Container
	// InsertRule wraps ErrRejected when rule is refused.
	InsertRule(rule string, index int) error
	DeleteRule(index int) error
	Rules() ([]string, error)
}

// Environment is a live host able to display style containers. Store never
// creates or removes containers on its own, it always goes through this
// interface and only touches containers it created.
type Environment interface {
	CreateContainer() (Container, error)
	RemoveContainer(c Container) error
	// SheetFor returns native sheet associated with container or nil if host
	// does not expose direct association.
	SheetFor(c Container) (NativeSheet, error)
	// StyleSheets is the global registry of all native sheets in the host.
	StyleSheets() ([]NativeSheet, error)
	InsertText(c Container, pos int, text string) error
	ReplaceText(c Container, pos int, text string) error
	Texts(c Container) ([]string, error)
}

// Blank slots must stay valid in the position they occupy: imports may only
// be followed by imports, so there are two flavors.
const (
	blankRule       = "@media not all {}"
	blankImportRule = `@import url("data:text/css,") not all;`
)

var errNoSheet = errors.New("native sheet not found for container")

type slot struct {
	blank bool
	imp   bool
}

// livePage keeps rules in a host container. Page is the only mutator of its
// container so slot bookkeeping mirrors what host holds.
type livePage struct {
	env       Environment
	container Container
	slots     []slot
	text      bool
	decided   bool
}

func newLivePage(env Environment) (*livePage, error) {
	c, err := env.CreateContainer()
	if err != nil {
		return nil, fmt.Errorf("unable to create style container: %w", err)
	}
	return &livePage{env: env, container: c}, nil
}

// sheet resolves native sheet every time - host is free to replace sheet
// object when container content changes.
func (p *livePage) sheet() (NativeSheet, error) {
	s, err := p.env.SheetFor(p.container)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}
	// some hosts do not associate sheet with its container, look through
	// registry instead
	all, err := p.env.StyleSheets()
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.Owner() == p.container {
			return s, nil
		}
	}
	return nil, errNoSheet
}

func (p *livePage) Len() int {
	return len(p.slots)
}

func (p *livePage) add(pos int, rule string) {
	p.slots = append(p.slots, slot{})
	copy(p.slots[pos+1:], p.slots[pos:])
	p.slots[pos] = slot{imp: css.IsImport(rule)}
}

func (p *livePage) Insert(pos int, rule string) error {
	if p.decided && p.text {
		return p.InsertText(pos, rule)
	}
	s, err := p.sheet()
	if err != nil {
		if errors.Is(err, errNoSheet) && !p.decided {
			// host without native insertion, stay with text fragments
			return p.InsertText(pos, rule)
		}
		return err
	}
	if err := s.InsertRule(rule, pos); err != nil {
		return err
	}
	p.decided = true
	p.add(pos, rule)
	return nil
}

func (p *livePage) InsertText(pos int, rule string) error {
	if p.decided && !p.text {
		return errors.New("page already holds native rules")
	}
	if err := p.env.InsertText(p.container, pos, rule); err != nil {
		return err
	}
	p.decided, p.text = true, true
	p.add(pos, rule)
	return nil
}

func (p *livePage) Replace(pos int, rule string) error {
	if pos < 0 || pos >= len(p.slots) {
		return fmt.Errorf("position %d is out of range [0, %d)", pos, len(p.slots))
	}
	if p.text {
		if err := p.env.ReplaceText(p.container, pos, rule); err != nil {
			return err
		}
		p.slots[pos].blank = rule == ""
		return nil
	}

	s, err := p.sheet()
	if err != nil {
		return err
	}
	if err := s.DeleteRule(pos); err != nil {
		return err
	}
	var rerr error
	if rule != "" {
		if rerr = s.InsertRule(rule, pos); rerr == nil {
			p.slots[pos].blank = false
			return nil
		}
	}
	// keep slot occupied so positions of following rules do not move
	placeholder := blankRule
	if p.slots[pos].imp {
		placeholder = blankImportRule
	}
	if err := s.InsertRule(placeholder, pos); err != nil {
		return fmt.Errorf("unable to keep blank slot at %d: %w", pos, err)
	}
	p.slots[pos].blank = true
	return rerr
}

func (p *livePage) Rules() ([]string, error) {
	var (
		rules []string
		err   error
	)
	if p.text {
		rules, err = p.env.Texts(p.container)
	} else if len(p.slots) > 0 {
		var s NativeSheet
		if s, err = p.sheet(); err == nil {
			rules, err = s.Rules()
		}
	}
	if err != nil {
		return nil, err
	}
	if len(rules) != len(p.slots) {
		return nil, fmt.Errorf("host holds %d rules, expected %d", len(rules), len(p.slots))
	}
	for i, s := range p.slots {
		if s.blank {
			rules[i] = ""
		}
	}
	return rules, nil
}

func (p *livePage) Release() error {
	p.slots = nil
	return p.env.RemoveContainer(p.container)
}
