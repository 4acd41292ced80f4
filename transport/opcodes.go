/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package transport implements the TCP wire protocol: the nine-opcode
// request/response table, the client's connection pool, the server's
// per-connection dispatch loop, and the optional snapshot/SQL-seed/
// dashboard extensions built on top of it.
package transport

import "fmt"

// Opcode is the one-byte request discriminator every request on the wire
// begins with.
type Opcode uint8

const (
	OpInit Opcode = iota + 1
	OpShutdown
	OpReadObject
	OpWriteObject
	OpRemoveObject
	OpConstruct
	OpDestruct
	OpCompute // reserved: the server accepts the opcode but has no handler wired yet
	OpCall
)

func (o Opcode) String() string {
	switch o {
	case OpInit:
		return "Init"
	case OpShutdown:
		return "Shutdown"
	case OpReadObject:
		return "ReadObject"
	case OpWriteObject:
		return "WriteObject"
	case OpRemoveObject:
		return "RemoveObject"
	case OpConstruct:
		return "Construct"
	case OpDestruct:
		return "Destruct"
	case OpCompute:
		return "Compute"
	case OpCall:
		return "Call"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// HugePageSize is the alignment Init rounds a far-memory reservation up
// to, mirroring a 2 MiB huge page.
const HugePageSize = 2 << 20

// AlignToHugePage rounds n up to the next multiple of HugePageSize.
func AlignToHugePage(n uint64) uint64 {
	if r := n % HugePageSize; r != 0 {
		n += HugePageSize - r
	}
	return n
}

const (
	ackOK   uint8 = 1
	ackFail uint8 = 0
)
