package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgram(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Statements: []Statement{
			{LineNo: 1, Addr: 0, Bytes: []byte{0x99, 0x00, 0x2a}},
			{LineNo: 2, Addr: 3, Bytes: []byte{0x43, 0x00}},
			{LineNo: 4, Addr: 8, Bytes: []byte{0x01}},
		},
	}

	assert.Equal(9, prog.Len())
	assert.Equal([]byte{0x99, 0x00, 0x2a, 0x43, 0x00, 0, 0, 0, 0x01}, prog.Binary())

	dbg := prog.Debug(4)
	assert.Equal(2, dbg.LineNo)
	assert.Equal(1, dbg.Index)

	dbg = prog.Debug(6)
	assert.Nil(dbg.Statement)

	var addrs []byte
	for addr := range prog.Bytes() {
		addrs = append(addrs, addr)
		if addr == 3 {
			break
		}
	}
	assert.Equal([]byte{0, 1, 2, 3}, addrs)

	empty := &Program{}
	assert.Equal(0, empty.Len())
	assert.Empty(empty.Binary())
}
