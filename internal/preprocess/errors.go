package preprocess

import (
	"errors"
	"fmt"
)

// ErrSyntax matches every preprocessor syntax error via errors.Is.
var ErrSyntax = errors.New("preprocessor syntax error")

// Position locates an error in a source file. Line is 1-based.
type Position struct {
	File string
	Line int
}

func (p Position) String() string {
	return fmt.Sprintf("%s(%d)", p.File, p.Line)
}

// UnbalancedDirectiveError reports an #endif/#else/#elseif/#enddef without
// its opening directive, or an #ifdef left open at end of file.
type UnbalancedDirectiveError struct {
	Position
	Message string
}

func (e *UnbalancedDirectiveError) Error() string {
	return fmt.Sprintf("%s - Fatal: %s", e.Position, e.Message)
}

func (e *UnbalancedDirectiveError) Is(target error) bool { return target == ErrSyntax }

// NestedBlockDefError reports a #begindef inside another block definition.
type NestedBlockDefError struct {
	Position
	Name  string
	Outer string
}

func (e *NestedBlockDefError) Error() string {
	return fmt.Sprintf("%s - Fatal: Cannot nest #begindef %s inside #begindef %s", e.Position, e.Name, e.Outer)
}

func (e *NestedBlockDefError) Is(target error) bool { return target == ErrSyntax }

// UnterminatedBlockDefError reports a #begindef still open at end of file.
type UnterminatedBlockDefError struct {
	Position
	Name string
}

func (e *UnterminatedBlockDefError) Error() string {
	return fmt.Sprintf("%s - Fatal: #begindef %s without #enddef", e.Position, e.Name)
}

func (e *UnterminatedBlockDefError) Is(target error) bool { return target == ErrSyntax }

// InvalidExpressionError reports a conditional expression that failed to
// evaluate for a reason other than an undefined symbol.
type InvalidExpressionError struct {
	Position
	Directive string
	Expr      string
	Err       error
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("%s - Error parsing %s: %s - %v", e.Position, e.Directive, e.Expr, e.Err)
}

func (e *InvalidExpressionError) Unwrap() error { return e.Err }

func (e *InvalidExpressionError) Is(target error) bool { return target == ErrSyntax }

// DirectiveError reports a malformed directive, such as #define without a
// name.
type DirectiveError struct {
	Position
	Directive string
	Message   string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("%s - Fatal: #%s %s", e.Position, e.Directive, e.Message)
}

func (e *DirectiveError) Is(target error) bool { return target == ErrSyntax }
