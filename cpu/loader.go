package cpu

import (
	"errors"
	"io"
	"log"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	ls8io "github.com/ezrec/ls8/io"
)

// binaryFile is the grammar of an LS-8 binary program: one byte per
// line written as eight binary digits, with '#' comments.
type binaryFile struct {
	Lines []*binaryLine `parser:"@@*"`
}

type binaryLine struct {
	Pos  lexer.Position
	Bits string `parser:"@Bits"`
}

var binaryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Bits", Pattern: `[01]{8}`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var binaryParser = participle.MustBuild[binaryFile](
	participle.Lexer(binaryLexer),
	participle.Elide("Whitespace", "Comment"),
)

// Loader reads LS-8 binary programs.
type Loader struct {
	Verbose bool // If set, logs each loaded byte.
}

// Parse reads a binary program. Each byte is a Statement at the next
// address, starting from 0. A line holds at most one byte.
func (ld *Loader) Parse(input io.Reader) (prog *Program, err error) {
	file, err := binaryParser.Parse("", input)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			err = &ErrSyntax{LineNo: perr.Position().Line, Line: perr.Message(), Err: ErrBinaryInvalid}
		}
		return
	}

	if len(file.Lines) > ls8io.RAM_SIZE {
		err = ErrProgramTooLarge
		return
	}

	prog = &Program{}
	for addr, line := range file.Lines {
		if addr > 0 && file.Lines[addr-1].Pos.Line == line.Pos.Line {
			prog = nil
			err = &ErrSyntax{LineNo: line.Pos.Line, Line: line.Bits, Err: ErrBinaryInvalid}
			return
		}
		var value uint64
		value, err = strconv.ParseUint(line.Bits, 2, 8)
		if err != nil {
			err = &ErrSyntax{LineNo: line.Pos.Line, Line: line.Bits, Err: ErrBinaryInvalid}
			return
		}
		if ld.Verbose {
			log.Printf("%v: %02x: %v", line.Pos.Line, addr, line.Bits)
		}
		prog.Statements = append(prog.Statements, Statement{
			LineNo: line.Pos.Line,
			Addr:   addr,
			Words:  []string{line.Bits},
			Bytes:  []byte{byte(value)},
		})
	}

	return
}
