package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Stylesheet is a stylesheet broken into top-level rules.
type Stylesheet struct {
	Rules    []string // Top-level rules (rulesets and at-rules) in source order
	Warnings []string // Problems found while splitting
}

// Imports returns all @import rules in source order.
func (s *Stylesheet) Imports() []string {
	var imports []string
	for _, r := range s.Rules {
		if IsImport(r) {
			imports = append(imports, r)
		}
	}
	return imports
}

// WriteTo writes rules to w one per line, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, r := range s.Rules {
		n, err := fmt.Fprintln(w, r)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// Splitter breaks CSS text into self-contained top-level rules suitable for
// one by one insertion.
type Splitter struct {
	log *zap.Logger
}

// NewSplitter creates a new CSS splitter.
func NewSplitter(log *zap.Logger) *Splitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Splitter{log: log.Named("css-splitter")}
}

// Split splits CSS text into rules. Rule text is normalized: comments are
// dropped and whitespace runs are collapsed. The optional source parameter
// identifies what's being split (for debug logging).
func (s *Splitter) Split(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]string, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		s.log.Debug("Splitting CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	var (
		cur          strings.Builder
		depth        int
		unterminated bool
		lastErr      = -1
	)
	emit := func() {
		if r := strings.TrimSpace(cur.String()); r != "" {
			sheet.Rules = append(sheet.Rules, r)
		}
		cur.Reset()
	}

	for {
		gt, tt, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if !parser.HasParseError() {
				// end of input
				if err := parser.Err(); err != nil && err != io.EOF {
					sheet.Warnings = append(sheet.Warnings, "read error: "+err.Error())
				}
				return sheet
			}
			if depth == 0 && parser.Offset() == lastErr {
				return sheet
			}
			lastErr = parser.Offset()
			closed := s.skipError(sheet, parser)
			if depth == 0 {
				// drop whatever was collected for the broken rule
				cur.Reset()
				unterminated = false
				continue
			}
			if closed {
				cur.WriteByte('}')
				if depth--; depth == 0 {
					emit()
				}
			}

		case css.CommentGrammar:
			// dropped

		case css.AtRuleGrammar:
			// block-less @-rule, e.g. @import or @charset
			cur.Write(data)
			writeValues(&cur, parser.Values(), true, true)
			cur.WriteByte(';')
			if depth == 0 {
				if strings.EqualFold(string(data), "@charset") {
					// charset is meaningless for individual rules
					s.log.Debug("Skipping @charset")
					cur.Reset()
					continue
				}
				emit()
			}

		case css.BeginAtRuleGrammar:
			cur.Write(data)
			writeValues(&cur, parser.Values(), true, true)
			cur.WriteByte('{')
			depth++

		case css.QualifiedRuleGrammar:
			// one of comma separated selectors
			cur.Write(data)
			writeValues(&cur, parser.Values(), len(data) > 0, false)
			cur.WriteByte(',')

		case css.BeginRulesetGrammar:
			cur.Write(data)
			writeValues(&cur, parser.Values(), len(data) > 0, false)
			cur.WriteByte('{')
			depth++

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			cur.Write(data)
			cur.WriteByte(':')
			writeValues(&cur, parser.Values(), false, false)
			cur.WriteByte(';')

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			// parser closes open blocks itself when input ends
			unterminated = unterminated || tt == css.ErrorToken
			cur.WriteByte('}')
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				if unterminated {
					sheet.Warnings = append(sheet.Warnings, "unterminated block: "+strings.TrimSpace(cur.String()))
					unterminated = false
				}
				emit()
			}

		default:
			// stray tokens
			if depth == 0 {
				sheet.Warnings = append(sheet.Warnings, "unexpected input: "+string(data))
				s.log.Debug("Skipping unexpected input", zap.ByteString("data", data))
				continue
			}
			cur.Write(data)
		}
	}
}

// skipError records parse error as a warning. Parser continues after errors on
// its own. It reports whether the offending token was a closing brace which
// made the parser leave the enclosing block without an end grammar.
func (s *Splitter) skipError(sheet *Stylesheet, parser *css.Parser) bool {
	msg := "parse error"
	if err := parser.Err(); err != nil {
		var perr *parse.Error
		if errors.As(err, &perr) {
			msg = fmt.Sprintf("%s: %s at line %d, column %d", msg, perr.Message, perr.Line, perr.Column)
		} else {
			msg += ": " + err.Error()
		}
		s.log.Debug("CSS parse error, skipping", zap.Error(err))
	}
	sheet.Warnings = append(sheet.Warnings, msg)

	values := parser.Values()
	if len(values) == 0 || values[len(values)-1].TokenType != css.RightBraceToken {
		return false
	}
	return strings.HasPrefix(msg, "parse error: unexpected ending in ")
}

// writeValues writes tokens collapsing whitespace runs into a single space.
// Leading whitespace is kept only when something was already written for the
// same construct, forceSpace always separates first token.
func writeValues(sb *strings.Builder, tokens []css.Token, afterData, forceSpace bool) {
	space := forceSpace
	wrote := afterData
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken || t.TokenType == css.CommentToken {
			space = space || wrote
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.Write(t.Data)
		wrote = true
	}
}
