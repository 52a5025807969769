package sheet

import "fmt"

// Page is a single bounded container of rules as seen by the store. Store is
// the only mutator of its pages and always passes valid positions.
type Page interface {
	// Len returns number of slots currently held.
	Len() int
	// Insert adds rule at pos using native single-rule insertion. Nothing is
	// added on error, errors wrapping ErrRejected mean the host refused the
	// rule itself.
	Insert(pos int, rule string) error
	// InsertText adds rule at pos as a raw text fragment.
	InsertText(pos int, rule string) error
	// Replace overwrites slot at pos.
	Replace(pos int, rule string) error
	// Rules exports texts of all slots in page order.
	Rules() ([]string, error)
	// Release destroys the page and whatever the host allocated for it.
	Release() error
}

// headlessPage is a synthetic page used when there is no live host. Just
// enough behavior to be able to extract the rules later.
type headlessPage struct {
	rules []string
}

func newHeadlessPage() *headlessPage {
	return &headlessPage{}
}

func (p *headlessPage) Len() int {
	return len(p.rules)
}

func (p *headlessPage) Insert(pos int, rule string) error {
	if pos < 0 || pos > len(p.rules) {
		return fmt.Errorf("position %d is out of range [0, %d]", pos, len(p.rules))
	}
	p.rules = append(p.rules, "")
	copy(p.rules[pos+1:], p.rules[pos:])
	p.rules[pos] = rule
	return nil
}

func (p *headlessPage) InsertText(pos int, rule string) error {
	return p.Insert(pos, rule)
}

func (p *headlessPage) Replace(pos int, rule string) error {
	if pos < 0 || pos >= len(p.rules) {
		return fmt.Errorf("position %d is out of range [0, %d)", pos, len(p.rules))
	}
	p.rules[pos] = rule
	return nil
}

func (p *headlessPage) Rules() ([]string, error) {
	out := make([]string, len(p.rules))
	copy(out, p.rules)
	return out, nil
}

func (p *headlessPage) Release() error {
	p.rules = nil
	return nil
}
