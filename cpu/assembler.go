// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"

	ls8io "github.com/ezrec/ls8/io"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the first line of the body.
	Args   []string // Argument names, bound as equates during expansion.
	Lines  []string // Body text, comments removed.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":    "0",
	"STACK_TOP": fmt.Sprintf("%#x", STACK_TOP),
}

// regMap is a map of register names to register indices.
var regMap = map[string]byte{
	"R0": 0,
	"R1": 1,
	"R2": 2,
	"R3": 3,
	"R4": 4,
	"R5": 5,
	"R6": 6,
	"R7": 7,
	"SP": SP,
}

// Assembler is a single pass macro assembler for the LS-8 system.
//
// Each source line holds an optional label, then an instruction, a
// directive, or a macro invocation:
//
//	Loop:  CMP R0, R2   ; comment
//	       .equ NAME value
//	       .byte 1, 'A', $(NAME + 1)
//	       .macro NAME arg... / .endm
//
// Labels may be referenced before they are defined; they are linked once
// the whole input has been read.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Statement []Statement // List of generated statements.

	Label  map[string]int      // Map of jump labels to addresses.
	Equate map[string]string   // Map of equates.
	Macro  map[string](*Macro) // Map of macros.

	predefine  map[string]string // Equates added to every parse.
	defining   *Macro            // Macro whose body is being recorded.
	expansions int               // Count of macro expansions, for unique '@' labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{}
	}
	asm.predefine[equ] = value
}

// begin resets the assembler state for a new parse.
func (asm *Assembler) begin() {
	asm.Statement = asm.Statement[:0]
	asm.Label = map[string]int{}
	asm.Macro = map[string](*Macro){}
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)
	asm.defining = nil
	asm.expansions = 0
}

// stripComment removes a ';' or '#' comment from a line.
func stripComment(text string) string {
	if n := strings.IndexAny(text, ";#"); n >= 0 {
		text = text[:n]
	}
	return strings.TrimSpace(text)
}

// splitWords splits a line on whitespace and commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}

// isLabel returns true if the word could name a label.
func isLabel(word string) bool {
	for n, r := range word {
		if r == '_' || unicode.IsLetter(r) || (n > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return len(word) > 0
}

// Parse assembles an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	var line string
	var lineno int

	defer func() {
		if err != nil {
			var serr *ErrSyntax
			if !errors.As(err, &serr) {
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
			}
		}
	}()

	asm.begin()

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		lineno++
		line = stripComment(scanner.Text())

		if asm.Verbose {
			log.Printf("%v: %v", lineno, line)
		}

		err = asm.parseSource(line, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if asm.defining != nil {
		err = ErrMacroLonely
		return
	}

	if asm.currentAddr() > ls8io.RAM_SIZE {
		err = ErrProgramTooLarge
		return
	}

	lineno, line, err = asm.link()
	if err != nil {
		return
	}

	prog = &Program{
		Statements: slices.Clone(asm.Statement),
	}

	return
}

// parseSource records macro definitions, and assembles everything else.
func (asm *Assembler) parseSource(line string, lineno int) (err error) {
	words := splitWords(line)

	switch {
	case len(words) > 0 && words[0] == ".macro":
		if asm.defining != nil {
			return ErrMacroNesting
		}
		if len(words) < 2 {
			return ErrMacroSyntax
		}
		name := words[1]
		if _, ok := asm.Macro[name]; ok {
			return ErrMacroDuplicate
		}
		asm.defining = &Macro{LineNo: lineno + 1, Args: words[2:]}
		asm.Macro[name] = asm.defining
	case len(words) > 0 && words[0] == ".endm":
		if asm.defining == nil {
			return ErrMacroLonelyEndm
		}
		asm.defining = nil
	case asm.defining != nil:
		asm.defining.Lines = append(asm.defining.Lines, line)
	default:
		err = asm.assembleLine(line, lineno)
	}

	return
}

// assembleLine expands literals, expressions and equates, defines any
// labels, then emits the instruction or data, or expands the macro.
func (asm *Assembler) assembleLine(line string, lineno int) (err error) {
	asm.Equate["LINENO"] = strconv.Itoa(lineno)

	line, err = asm.expandExprs(expandChars(line))
	if err != nil {
		return
	}

	words := splitWords(line)
	if len(words) == 0 {
		return
	}

	if words[0] == ".equ" {
		return asm.defineEquate(words[1:])
	}

	for n, word := range words {
		if equate, ok := asm.Equate[word]; ok {
			words[n] = equate
		}
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		err = asm.defineLabel(strings.TrimSuffix(words[0], ":"))
		if err != nil {
			return
		}
		words = words[1:]
	}
	if len(words) == 0 {
		return
	}

	if macro, ok := asm.Macro[words[0]]; ok {
		return asm.expandMacro(words[0], macro, words[1:])
	}

	return asm.parseWords(words, lineno)
}

// defineEquate handles '.equ NAME VALUE'.
func (asm *Assembler) defineEquate(args []string) (err error) {
	if len(args) != 2 {
		return ErrEquateSyntax
	}
	if _, ok := asm.Equate[args[0]]; ok {
		return ErrEquateDuplicate
	}
	asm.Equate[args[0]] = args[1]

	return
}

// defineLabel binds a label to the next generated address.
func (asm *Assembler) defineLabel(label string) (err error) {
	if _, ok := asm.Label[label]; ok {
		return ErrLabelDuplicate
	}
	asm.Label[label] = asm.currentAddr()

	return
}

// expandMacro assembles the body of a macro, with its arguments bound as
// equates. Each '@' in the body becomes a prefix unique to this expansion.
func (asm *Assembler) expandMacro(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		return ErrMacroSyntax
	}

	saved := maps.Clone(asm.Equate)
	defer func() { asm.Equate = saved }()

	for n, arg := range macro.Args {
		asm.Equate[arg] = args[n]
	}

	asm.expansions++
	local := fmt.Sprintf("%v_%v_", name, asm.expansions)

	for n, body := range macro.Lines {
		lineno := macro.LineNo + n
		body = strings.ReplaceAll(body, "@", local)

		err = asm.assembleLine(body, lineno)
		if err != nil {
			err = &ErrMacro{Macro: name, Line: lineno, Err: err}
			return &ErrSyntax{LineNo: lineno, Line: body, Err: err}
		}
	}

	return
}

// currentAddr gets the address of the next generated byte.
func (asm *Assembler) currentAddr() int {
	if len(asm.Statement) == 0 {
		return 0
	}

	last := asm.Statement[len(asm.Statement)-1]

	return last.Addr + len(last.Bytes)
}

// link patches label references into the generated statements. On a
// missing label, or one past the last address, the line of the
// referencing statement is returned.
func (asm *Assembler) link() (lineno int, line string, err error) {
	for n := range asm.Statement {
		st := &asm.Statement[n]
		if len(st.LinkLabel) == 0 {
			continue
		}

		addr, ok := asm.Label[st.LinkLabel]
		if !ok {
			lineno = st.LineNo
			line = strings.Join(st.Words, " ")
			err = ErrLabelMissing(st.LinkLabel)
			return
		}
		if addr > 0xff {
			lineno = st.LineNo
			line = strings.Join(st.Words, " ")
			err = fmt.Errorf("%w: %v is %#x", ErrValueRange, st.LinkLabel, addr)
			return
		}

		st.Bytes[st.LinkIndex] = byte(addr)
	}

	return
}

// registerOf returns the register index of a register name.
func registerOf(word string) (reg byte, err error) {
	reg, ok := regMap[strings.ToUpper(word)]
	if !ok {
		err = ErrParseRegister(word)
	}
	return
}

// parseData encodes the values of a '.byte' or 'DB' directive.
func parseData(args []string) (data []byte, err error) {
	if len(args) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	data = make([]byte, 0, len(args))
	for _, word := range args {
		var value byte
		value, err = valueOf(word)
		if err != nil {
			data = nil
			return
		}
		data = append(data, value)
	}

	return
}

// parseWords encodes one instruction or data directive, and appends it
// as a Statement at the current address.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	st := Statement{
		LineNo: lineno,
		Addr:   asm.currentAddr(),
		Words:  words,
	}

	mnemonic := strings.ToUpper(words[0])
	args := words[1:]

	if words[0] == ".byte" || mnemonic == "DB" {
		st.Bytes, err = parseData(args)
		if err != nil {
			return
		}
		asm.Statement = append(asm.Statement, st)
		return
	}

	op, ok := mnemonicMap[mnemonic]
	if !ok {
		return ErrInstructionInvalid
	}

	switch need := op.Operands(); {
	case len(args) < need:
		return ErrOpcodeValueMissing
	case len(args) > need:
		return ErrOpcodeExtraArgs
	}

	kinds, _ := OperandsOf(op)
	st.Bytes = []byte{byte(op)}
	for n, arg := range args {
		var value byte
		switch kinds[n] {
		case OPERAND_REGISTER:
			value, err = registerOf(arg)
		case OPERAND_IMMEDIATE:
			value, err = valueOf(arg)
			if err != nil && isLabel(arg) {
				// Forward references are linked after the last line.
				err = nil
				st.LinkLabel = arg
				st.LinkIndex = 1 + n
			}
		}
		if err != nil {
			return
		}
		st.Bytes = append(st.Bytes, value)
	}

	asm.Statement = append(asm.Statement, st)

	return
}
