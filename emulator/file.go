package emulator

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ezrec/ls8/cpu"
)

const (
	BINARY_EXT = ".ls8" // Extension of LS-8 binary programs.
)

// Format selects how a program file is read.
type Format int

const (
	FORMAT_AUTO     = Format(iota) // By file extension.
	FORMAT_BINARY                  // One binary byte per line.
	FORMAT_ASSEMBLY                // Assembly source.
)

// LoadFile loads the program at path, replacing the current program.
// Files ending in BINARY_EXT are read by the binary loader; all others
// are assembled.
func (emu *Emulator) LoadFile(path string) (err error) {
	return emu.LoadFormat(path, FORMAT_AUTO)
}

// LoadFormat loads the program at path in the given format, replacing the
// current program. The current program is kept on error.
func (emu *Emulator) LoadFormat(path string, format Format) (err error) {
	if format == FORMAT_AUTO {
		format = FORMAT_ASSEMBLY
		if filepath.Ext(path) == BINARY_EXT {
			format = FORMAT_BINARY
		}
	}

	inf, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open program")
	}
	defer inf.Close()

	var prog *cpu.Program
	switch format {
	case FORMAT_BINARY:
		ld := &cpu.Loader{Verbose: emu.Verbose}
		prog, err = ld.Parse(inf)
	case FORMAT_ASSEMBLY:
		prog, err = emu.Assembler().Parse(inf)
	default:
		err = errors.Errorf("unknown format %d", format)
	}
	if err != nil {
		return errors.Wrapf(err, "%v", path)
	}

	emu.Program = prog

	return
}
