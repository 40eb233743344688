package cpu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var (
	charRegexp = regexp.MustCompile(`'\\?[^']'`)
	exprRegexp = regexp.MustCompile(`\$\([^\$]*\)`)
)

// charEscape maps the character after a backslash to its value.
var charEscape = map[byte]byte{
	'n':  '\n',
	'r':  '\r',
	'0':  0,
	'\\': '\\',
}

// expandChars replaces 'c' character literals with their decimal value.
// Unknown escapes are left in place, and fail later as numbers.
func expandChars(line string) string {
	return charRegexp.ReplaceAllStringFunc(line, func(quoted string) string {
		body := quoted[1 : len(quoted)-1]
		if body[0] != '\\' {
			return strconv.Itoa(int(body[0]))
		}
		value, ok := charEscape[body[1]]
		if !ok {
			return quoted
		}
		return strconv.Itoa(int(value))
	})
}

// valueOf returns the byte value of an immediate word.
// Negative values down to -128 are stored as two's complement, and a
// leading '~' inverts the bits.
func valueOf(word string) (value byte, err error) {
	word, invert := strings.CutPrefix(word, "~")
	if strings.HasPrefix(word, "'") {
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}

	v64, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 > 0xff || v64 < -0x80 {
		err = fmt.Errorf("%w: %v", ErrValueRange, word)
		return
	}

	value = byte(v64)
	if invert {
		value = ^value
	}

	return
}

// exprGlobals binds the integer equates and the labels defined so far.
// Equates that are not integers, such as register aliases, are skipped.
func (asm *Assembler) exprGlobals() (globals starlark.StringDict) {
	globals = starlark.StringDict{}
	for label, addr := range asm.Label {
		globals[label] = starlark.MakeInt(addr)
	}
	for name, text := range asm.Equate {
		v64, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			continue
		}
		globals[name] = starlark.MakeInt64(v64)
	}

	return
}

// evalExpr evaluates a $(...) expression body to an integer.
func (asm *Assembler) evalExpr(expr string) (value int64, err error) {
	thread := &starlark.Thread{Name: "expr"}

	result, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "expr", expr, asm.exprGlobals())
	if err != nil {
		return
	}

	num, ok := result.(starlark.Int)
	if ok {
		value, ok = num.Int64()
	}
	if !ok {
		err = ErrParseExpression(expr)
	}

	return
}

// expandExprs replaces every $(...) in line with its decimal value.
func (asm *Assembler) expandExprs(line string) (expanded string, err error) {
	expanded = exprRegexp.ReplaceAllStringFunc(line, func(match string) string {
		value, eerr := asm.evalExpr(match[2 : len(match)-1])
		if eerr != nil {
			if err == nil {
				err = eerr
			}
			return match
		}
		return strconv.FormatInt(value, 10)
	})

	return
}
