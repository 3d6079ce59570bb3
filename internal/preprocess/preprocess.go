// Package preprocess implements the line-oriented conditional macro language
// used to stamp per-platform configuration into generated text files.
//
// Directives may appear at the end of any line; text before the directive is
// kept, the directive itself is stripped:
//
//	#ifdef EXPR / #ifndef EXPR   open a conditional
//	#elseif EXPR / #else         alternative branches
//	#endif                       close the innermost conditional
//	#define NAME VALUE           bind NAME unless already bound
//	#undef NAME                  remove NAME
//	#begindef NAME ... #enddef   bind NAME to the enclosed lines
//
// Expressions are symbol lookups evaluated in a sandboxed Lua VM, so
// "XP_OSX", "XP_OSX || XP_LINUX" and "MOZ_VERSION >= 22" all work. A bare
// symbol tests whether it is defined, so "#define X 0" satisfies "#ifdef X";
// only comparisons look at values. An expression that touches an undefined
// symbol is false, and Lua globals are not visible to expressions.
package preprocess

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/config"
)

// directivePattern matches the first directive on a line.
var directivePattern = regexp.MustCompile(`^(.*?)\s*#(ifdef|ifndef|elseif|else|endif|define|undef|begindef|enddef)\b\s*(.*)$`)

// internalLabel names content that did not come from a file.
const internalLabel = "<internal file>"

// Parser preprocesses text. The zero value is usable and silent.
type Parser struct {
	// Logger receives diagnostics when Verbose is set.
	Logger config.Logger
	// Verbose logs ignored code, definitions and divergent redefinitions.
	Verbose bool
}

// NewParser creates a Parser.
func NewParser(logger config.Logger, verbose bool) *Parser {
	return &Parser{Logger: logger, Verbose: verbose}
}

// parserState is created fresh for every parse and discarded afterwards.
type parserState struct {
	label string
	line  int

	depth         int
	suppressDepth int    // -1 when output is enabled
	taken         []bool // per depth: a branch of this chain already matched

	inBlock       bool
	blockName     string
	blockCaptures bool
	blockBuffer   []string

	output []string
	eval   *evaluator
}

func (s *parserState) pos() Position {
	return Position{File: s.label, Line: s.line}
}

func (s *parserState) active() bool {
	return s.suppressDepth == -1
}

// ParseFile reads path and preprocesses it.
func (p *Parser) ParseFile(path string, symbols *SymbolTable) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return p.Parse(string(data), symbols, path)
}

// Parse preprocesses content. symbols is mutated in place by #define, #undef
// and #begindef so later files in the same build see the bindings. label
// names the source in errors and diagnostics.
func (p *Parser) Parse(content string, symbols *SymbolTable, label string) (string, error) {
	if label == "" {
		label = internalLabel
	}
	if symbols == nil {
		symbols = NewSymbolTable(nil)
	}

	st := &parserState{label: label, suppressDepth: -1}
	defer func() {
		if st.eval != nil {
			st.eval.close()
		}
	}()

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		st.line = i + 1

		m := directivePattern.FindStringSubmatch(line)
		if m != nil {
			line = m[1]
		}

		// Text before a directive is written under the state that held
		// before the directive runs. A bare directive line produces nothing.
		if m == nil || strings.TrimSpace(line) != "" {
			if st.active() {
				if st.inBlock {
					st.blockBuffer = append(st.blockBuffer, line)
				} else {
					st.output = append(st.output, line)
				}
			}
		}

		if m == nil {
			continue
		}
		if err := p.directive(st, symbols, m[2], strings.TrimSpace(m[3])); err != nil {
			return "", err
		}
	}

	st.line = len(lines)
	if st.inBlock {
		return "", &UnterminatedBlockDefError{Position: st.pos(), Name: st.blockName}
	}
	if st.depth > 0 {
		return "", &UnbalancedDirectiveError{
			Position: st.pos(),
			Message:  fmt.Sprintf("#ifdef/#ifndef without #endif (%d open)", st.depth),
		}
	}

	return strings.Join(st.output, "\n"), nil
}

func (p *Parser) directive(st *parserState, symbols *SymbolTable, name, arg string) error {
	switch name {
	case "begindef":
		if st.inBlock {
			return &NestedBlockDefError{Position: st.pos(), Name: arg, Outer: st.blockName}
		}
		if arg == "" {
			return &DirectiveError{Position: st.pos(), Directive: name, Message: "requires a name"}
		}
		st.inBlock = true
		st.blockName = arg
		st.blockCaptures = st.active()
		st.blockBuffer = nil

	case "enddef":
		if !st.inBlock {
			return &UnbalancedDirectiveError{Position: st.pos(), Message: "#enddef without #begindef"}
		}
		if st.blockCaptures {
			value := strings.Join(st.blockBuffer, "\n")
			if p.Verbose {
				if prev, ok := symbols.Lookup(st.blockName); ok && prev != value {
					p.logger().Warn(fmt.Sprintf("%s - differently defining block %s", st.pos(), st.blockName))
				} else {
					p.logger().Debug(fmt.Sprintf("%s - defining block %s", st.pos(), st.blockName))
				}
			}
			symbols.Set(st.blockName, value)
		}
		st.inBlock = false
		st.blockName = ""
		st.blockBuffer = nil

	case "ifdef", "ifndef":
		st.depth++
		st.taken = append(st.taken, false)
		if !st.active() {
			// The whole chain sits inside suppressed code.
			st.taken[st.depth-1] = true
			return nil
		}
		ok, err := p.check(st, symbols, name, arg)
		if err != nil {
			return err
		}
		if name == "ifndef" {
			ok = !ok
		}
		p.branch(st, name, arg, ok)

	case "elseif", "else":
		if st.depth == 0 {
			return &UnbalancedDirectiveError{Position: st.pos(), Message: fmt.Sprintf("#%s missing #ifdef/#ifndef", name)}
		}
		if !st.active() && st.suppressDepth < st.depth {
			return nil
		}
		if st.taken[st.depth-1] {
			st.suppressDepth = st.depth
			return nil
		}
		ok := true
		if name == "elseif" {
			var err error
			if ok, err = p.check(st, symbols, name, arg); err != nil {
				return err
			}
		}
		p.branch(st, name, arg, ok)

	case "endif":
		if st.depth == 0 {
			return &UnbalancedDirectiveError{Position: st.pos(), Message: "#endif missing #ifdef/#ifndef"}
		}
		if st.suppressDepth == st.depth {
			st.suppressDepth = -1
		}
		st.depth--
		st.taken = st.taken[:st.depth]

	case "define":
		if !st.active() {
			return nil
		}
		defName, value, _ := strings.Cut(arg, " ")
		value = strings.TrimSpace(value)
		if defName == "" {
			return &DirectiveError{Position: st.pos(), Directive: name, Message: "requires a name"}
		}
		prev, stored := symbols.Define(defName, value)
		if p.Verbose {
			switch {
			case stored:
				p.logger().Debug(fmt.Sprintf("%s - defining %s as %q", st.pos(), defName, value))
			case prev != value:
				p.logger().Warn(fmt.Sprintf("%s - ignoring redefinition of %s as %q, keeping %q", st.pos(), defName, value, prev))
			}
		}

	case "undef":
		if !st.active() {
			return nil
		}
		if arg == "" {
			return &DirectiveError{Position: st.pos(), Directive: name, Message: "requires a name"}
		}
		if p.Verbose {
			p.logger().Debug(fmt.Sprintf("%s - undefining %s", st.pos(), arg))
		}
		symbols.Undef(arg)
	}

	return nil
}

// branch applies the outcome of a conditional at the current depth.
func (p *Parser) branch(st *parserState, directive, arg string, ok bool) {
	if ok {
		st.taken[st.depth-1] = true
		if st.suppressDepth == st.depth {
			st.suppressDepth = -1
		}
		return
	}
	st.suppressDepth = st.depth
	if p.Verbose {
		p.logger().Debug(fmt.Sprintf("%s - ignoring code by #%s %s", st.pos(), directive, arg))
	}
}

// check evaluates a conditional expression against the current bindings.
func (p *Parser) check(st *parserState, symbols *SymbolTable, directive, expr string) (bool, error) {
	if expr == "" {
		return false, &DirectiveError{Position: st.pos(), Directive: directive, Message: "requires an expression"}
	}
	if st.eval == nil {
		st.eval = newEvaluator()
	}

	ok, err := st.eval.eval(expr, symbols.snapshot())
	if errors.Is(err, errUndefined) {
		return false, nil
	}
	if err != nil {
		return false, &InvalidExpressionError{Position: st.pos(), Directive: "#" + directive, Expr: expr, Err: err}
	}
	return ok, nil
}

func (p *Parser) logger() config.Logger {
	return config.LoggerOrNop(p.Logger)
}
