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

package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/launix-de/farmem/rpc"
	"github.com/launix-de/farmem/wire"
)

// DefaultPoolSize is the default number of pooled request connections, the
// midpoint of the 300-600 range.
const DefaultPoolSize = 450

// Device is the far-memory manager's view of the wire: everything it
// needs to drive the nine opcodes against a remote store, independent of
// whether the implementation underneath is a real TCP socket pool or a
// test double.
type Device interface {
	Init(farMemSize uint64) error
	Shutdown() error
	ReadObject(dsID uint8, objID []byte) ([]byte, error)
	WriteObject(dsID uint8, objID []byte, data []byte) error
	RemoveObject(dsID uint8, objID []byte) (exists bool, err error)
	Construct(dsType, dsID uint8, params []byte) error
	Destruct(dsID uint8) error
	Call(dsID uint8, body []byte) (rpc.ErrorCode, []byte, error)
}

var errObjIDTooLong = errors.New("transport: object id exceeds 255 bytes")
var errPayloadTooLarge = errors.New("transport: payload exceeds 65535 bytes")

// conn wraps one pooled connection with the mutex that serializes the
// single in-flight request its occupying caller holds it for.
type conn struct {
	mu sync.Mutex
	nc net.Conn
}

// TCPDevice is the client half of the wire protocol: one long-lived
// control connection plus a pool of request connections, each occupied
// for the duration of exactly one request/reply round trip.
type TCPDevice struct {
	addr string

	control net.Conn
	ctlMu   sync.Mutex

	pool    []*conn
	next    chan *conn // round-robin-ish free list
	dialTO  time.Duration
}

// Dial opens the control connection and a pool of poolSize request
// connections to addr (a non-positive poolSize selects DefaultPoolSize;
// more than 600 is capped at 600).
func Dial(addr string, poolSize int) (*TCPDevice, error) {
	if poolSize < 1 {
		poolSize = DefaultPoolSize
	}
	if poolSize > 600 {
		poolSize = 600
	}

	ctl, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: control dial: %w", err)
	}

	d := &TCPDevice{
		addr:    addr,
		control: ctl,
		pool:    make([]*conn, 0, poolSize),
		next:    make(chan *conn, poolSize),
		dialTO:  10 * time.Second,
	}
	for i := 0; i < poolSize; i++ {
		nc, err := net.Dial("tcp", addr)
		if err != nil {
			d.Shutdown()
			return nil, fmt.Errorf("transport: pool dial %d: %w", i, err)
		}
		c := &conn{nc: nc}
		d.pool = append(d.pool, c)
		d.next <- c
	}
	return d, nil
}

// acquire pulls an idle pooled connection, blocking until one frees up.
func (d *TCPDevice) acquire() *conn {
	c := <-d.next
	c.mu.Lock()
	return c
}

func (d *TCPDevice) release(c *conn) {
	c.mu.Unlock()
	d.next <- c
}

// Init sends far_mem_size and waits for the ack byte.
func (d *TCPDevice) Init(farMemSize uint64) error {
	d.ctlMu.Lock()
	defer d.ctlMu.Unlock()

	buf := wire.NewBuffer()
	buf.WriteU64(AlignToHugePage(farMemSize))
	if _, err := d.control.Write(append([]byte{byte(OpInit)}, buf.Bytes()...)); err != nil {
		return err
	}
	ack, err := readExact(d.control, 1)
	if err != nil {
		return err
	}
	if ack[0] != ackOK {
		return errors.New("transport: Init rejected by server")
	}
	return nil
}

// Shutdown sends the Shutdown opcode over the control connection and
// closes every pooled connection.
func (d *TCPDevice) Shutdown() error {
	d.ctlMu.Lock()
	if _, err := d.control.Write([]byte{byte(OpShutdown)}); err == nil {
		readExact(d.control, 1)
	}
	d.control.Close()
	d.ctlMu.Unlock()

	for _, c := range d.pool {
		c.nc.Close()
	}
	return nil
}

// ReadObject issues opcode 3 and returns the returned data.
func (d *TCPDevice) ReadObject(dsID uint8, objID []byte) ([]byte, error) {
	if len(objID) > 255 {
		return nil, errObjIDTooLong
	}
	req := wire.NewBuffer()
	req.WriteU8(dsID)
	req.WriteU8(uint8(len(objID)))
	req.WriteBytes(objID)

	c := d.acquire()
	defer d.release(c)

	if err := writeFull(c.nc, append([]byte{byte(OpReadObject)}, req.Bytes()...)); err != nil {
		return nil, err
	}
	lenBytes, err := readExact(c.nc, 2)
	if err != nil {
		return nil, err
	}
	n := int(lenBytes[0])<<8 | int(lenBytes[1])
	return readExact(c.nc, n)
}

// WriteObject issues opcode 4 and waits for the ack byte.
func (d *TCPDevice) WriteObject(dsID uint8, objID []byte, data []byte) error {
	if len(objID) > 255 {
		return errObjIDTooLong
	}
	if len(data) > 65535 {
		return errPayloadTooLarge
	}
	req := wire.NewBuffer()
	req.WriteU8(dsID)
	req.WriteU8(uint8(len(objID)))
	req.WriteU16(uint16(len(data)))
	req.WriteBytes(objID)
	req.WriteBytes(data)

	c := d.acquire()
	defer d.release(c)

	if err := writeFull(c.nc, append([]byte{byte(OpWriteObject)}, req.Bytes()...)); err != nil {
		return err
	}
	ack, err := readExact(c.nc, 1)
	if err != nil {
		return err
	}
	if ack[0] != ackOK {
		return errors.New("transport: WriteObject failed on server")
	}
	return nil
}

// RemoveObject issues opcode 5.
func (d *TCPDevice) RemoveObject(dsID uint8, objID []byte) (bool, error) {
	if len(objID) > 255 {
		return false, errObjIDTooLong
	}
	req := wire.NewBuffer()
	req.WriteU8(dsID)
	req.WriteU8(uint8(len(objID)))
	req.WriteBytes(objID)

	c := d.acquire()
	defer d.release(c)

	if err := writeFull(c.nc, append([]byte{byte(OpRemoveObject)}, req.Bytes()...)); err != nil {
		return false, err
	}
	exists, err := readExact(c.nc, 1)
	if err != nil {
		return false, err
	}
	return exists[0] == ackOK, nil
}

// Construct issues opcode 6.
func (d *TCPDevice) Construct(dsType, dsID uint8, params []byte) error {
	if len(params) > 255 {
		return errors.New("transport: construct params exceed 255 bytes")
	}
	req := wire.NewBuffer()
	req.WriteU8(dsType)
	req.WriteU8(dsID)
	req.WriteU8(uint8(len(params)))
	req.WriteBytes(params)

	c := d.acquire()
	defer d.release(c)

	if err := writeFull(c.nc, append([]byte{byte(OpConstruct)}, req.Bytes()...)); err != nil {
		return err
	}
	ack, err := readExact(c.nc, 1)
	if err != nil {
		return err
	}
	if ack[0] != ackOK {
		return errors.New("transport: Construct rejected by server")
	}
	return nil
}

// Destruct issues opcode 7.
func (d *TCPDevice) Destruct(dsID uint8) error {
	c := d.acquire()
	defer d.release(c)

	if err := writeFull(c.nc, []byte{byte(OpDestruct), dsID}); err != nil {
		return err
	}
	ack, err := readExact(c.nc, 1)
	if err != nil {
		return err
	}
	if ack[0] != ackOK {
		return errors.New("transport: Destruct rejected by server")
	}
	return nil
}

// Call issues opcode 9, carrying a pre-serialized (method,args) body and
// returning the reply's error code and payload.
func (d *TCPDevice) Call(dsID uint8, body []byte) (rpc.ErrorCode, []byte, error) {
	if len(body) > 65535 {
		return 0, nil, errPayloadTooLarge
	}
	req := wire.NewBuffer()
	req.WriteU8(dsID)
	req.WriteU16(uint16(len(body)))
	req.WriteBytes(body)

	c := d.acquire()
	defer d.release(c)

	if err := writeFull(c.nc, append([]byte{byte(OpCall)}, req.Bytes()...)); err != nil {
		return 0, nil, err
	}
	codeByte, err := readExact(c.nc, 1)
	if err != nil {
		return 0, nil, err
	}
	lenBytes, err := readExact(c.nc, 2)
	if err != nil {
		return 0, nil, err
	}
	n := int(lenBytes[0])<<8 | int(lenBytes[1])
	payload, err := readExact(c.nc, n)
	if err != nil {
		return 0, nil, err
	}
	return rpc.ErrorCode(codeByte[0]), payload, nil
}

func writeFull(nc net.Conn, b []byte) error {
	for len(b) > 0 {
		n, err := nc.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func readExact(nc net.Conn, n int) ([]byte, error) {
	buf := make([]byte, n)
	total := 0
	for total < n {
		k, err := nc.Read(buf[total:])
		if err != nil {
			return nil, err
		}
		total += k
	}
	return buf, nil
}
