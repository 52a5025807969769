package sheet

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"pagesheet/css"
)

// fakeEnv imitates a browser document well enough to exercise livePage.
type fakeEnv struct {
	containers []*fakeContainer
	next       int
	// detached host does not associate sheet with its container
	detached bool
	// noNative host has no native sheets at all
	noNative bool
	// failCreate makes container creation fail while positive, counting down
	failCreate int
	// down makes every rule operation fail with this error
	down    error
	removed []Container
}

type fakeContainer struct {
	id    Container
	rules []string
	texts []string
	owned bool
}

type fakeSheet struct {
	c *fakeContainer
}

var errSyntax = fmt.Errorf("%w: SyntaxError: failed to parse the rule", ErrRejected)

func newFakeEnv() *fakeEnv {
	env := &fakeEnv{}
	// container which store did not create and must never touch
	env.containers = append(env.containers, &fakeContainer{id: "foreign", rules: []string{"html{}"}})
	return env
}

func (e *fakeEnv) find(c Container) (*fakeContainer, error) {
	for _, fc := range e.containers {
		if fc.id == c {
			return fc, nil
		}
	}
	return nil, fmt.Errorf("container %q not found", c)
}

func (e *fakeEnv) owned() []*fakeContainer {
	var out []*fakeContainer
	for _, fc := range e.containers {
		if fc.owned {
			out = append(out, fc)
		}
	}
	return out
}

func (e *fakeEnv) CreateContainer() (Container, error) {
	if e.failCreate > 0 {
		e.failCreate--
		return "", errors.New("document is gone")
	}
	e.next++
	fc := &fakeContainer{id: Container(fmt.Sprintf("c%d", e.next)), owned: true}
	e.containers = append(e.containers, fc)
	return fc.id, nil
}

func (e *fakeEnv) RemoveContainer(c Container) error {
	for i, fc := range e.containers {
		if fc.id == c {
			e.containers = slices.Delete(e.containers, i, i+1)
			e.removed = append(e.removed, c)
			return nil
		}
	}
	return fmt.Errorf("container %q not found", c)
}

func (e *fakeEnv) SheetFor(c Container) (NativeSheet, error) {
	if e.down != nil {
		return nil, e.down
	}
	fc, err := e.find(c)
	if err != nil {
		return nil, err
	}
	if e.detached || e.noNative {
		return nil, nil
	}
	return fakeSheet{c: fc}, nil
}

func (e *fakeEnv) StyleSheets() ([]NativeSheet, error) {
	if e.noNative {
		return nil, nil
	}
	var out []NativeSheet
	for _, fc := range e.containers {
		out = append(out, fakeSheet{c: fc})
	}
	return out, nil
}

func (e *fakeEnv) InsertText(c Container, pos int, text string) error {
	if e.down != nil {
		return e.down
	}
	fc, err := e.find(c)
	if err != nil {
		return err
	}
	fc.texts = slices.Insert(fc.texts, pos, text)
	return nil
}

func (e *fakeEnv) ReplaceText(c Container, pos int, text string) error {
	fc, err := e.find(c)
	if err != nil {
		return err
	}
	if pos < 0 || pos >= len(fc.texts) {
		return fmt.Errorf("no text node at %d", pos)
	}
	fc.texts[pos] = text
	return nil
}

func (e *fakeEnv) Texts(c Container) ([]string, error) {
	fc, err := e.find(c)
	if err != nil {
		return nil, err
	}
	return slices.Clone(fc.texts), nil
}

func (s fakeSheet) Owner() Container {
	return s.c.id
}

// InsertRule rejects rules without a block (other than imports) and enforces
// that imports precede everything else, the way browsers do.
func (s fakeSheet) InsertRule(rule string, index int) error {
	if index < 0 || index > len(s.c.rules) {
		return fmt.Errorf("IndexSizeError: %d", index)
	}
	imp := css.IsImport(rule)
	if !imp && !strings.Contains(rule, "{") {
		return errSyntax
	}
	if imp {
		for _, r := range s.c.rules[:index] {
			if !css.IsImport(r) {
				return fmt.Errorf("%w: HierarchyRequestError: import after rules", ErrRejected)
			}
		}
	} else {
		for _, r := range s.c.rules[index:] {
			if css.IsImport(r) {
				return fmt.Errorf("%w: HierarchyRequestError: rule before import", ErrRejected)
			}
		}
	}
	s.c.rules = slices.Insert(s.c.rules, index, rule)
	return nil
}

func (s fakeSheet) DeleteRule(index int) error {
	if index < 0 || index >= len(s.c.rules) {
		return fmt.Errorf("IndexSizeError: %d", index)
	}
	s.c.rules = slices.Delete(s.c.rules, index, index+1)
	return nil
}

func (s fakeSheet) Rules() ([]string, error) {
	return slices.Clone(s.c.rules), nil
}
