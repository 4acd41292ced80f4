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
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

/*

snapshot persistence

A checkpoint is a point-in-time dump of every live ds_id's state, taken
when the server process exits and restored when the next server process
starts, before it serves, into an empty store. It is a convenience, not
crash recovery: no
attempt is made to reconcile a checkpoint against a live, divergent store.

A storage backend must implement:
 - write the manifest (ds_id -> ds_type -> params) for one checkpoint
 - read that manifest back
 - write one instance's object dump (every object id/bytes pair)
 - read that dump back
 - remove a checkpoint entirely

*/

// SnapshotEngine is the storage-backend contract every checkpoint backend
// implements. Grounded on storage/persistence.go's PersistenceEngine
// interface, generalized from "column/shard/log" to "manifest/instance
// dump" since far-memory has no columnar shard structure.
type SnapshotEngine interface {
	WriteManifest(manifest []byte) error
	ReadManifest() ([]byte, error)
	WriteInstanceDump(dsID uint8, dump []byte) error
	ReadInstanceDump(dsID uint8) ([]byte, error)
	Remove() error
}

// SnapshotFactory builds a SnapshotEngine for one checkpoint name, the same
// role storage/persistence.go's PersistenceFactory plays for CREATE TABLE.
type SnapshotFactory interface {
	CreateSnapshot(name string) SnapshotEngine
}

// ManifestEntry records one live ds_id's construction parameters so restore
// can replay Construct before refilling its objects.
type ManifestEntry struct {
	DsID   uint8  `json:"ds_id"`
	DsType uint8  `json:"ds_type"`
	Params []byte `json:"params"`
}

// ObjectDump is the wire shape of one instance's full object set, written
// by DumpInstance and consumed by RestoreInstance.
type ObjectDump struct {
	Objects map[string][]byte `json:"objects"`
}

// compressWriter wraps w with an xz encoder favoring compression ratio
// over speed, the opposite trade-off from the wire codec's LZ4 (a
// checkpoint is written once and read rarely; the hot-path wire format is
// read/written constantly).
func compressWriter(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

func decompressReader(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

// SaveManifest serializes entries to JSON, compresses it, and hands it to
// the engine.
func SaveManifest(e SnapshotEngine, entries []ManifestEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("transport: marshaling manifest: %w", err)
	}
	var buf bytes.Buffer
	zw, err := compressWriter(&buf)
	if err != nil {
		return fmt.Errorf("transport: opening xz writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return fmt.Errorf("transport: compressing manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("transport: closing xz writer: %w", err)
	}
	return e.WriteManifest(buf.Bytes())
}

// LoadManifest reads and decompresses the manifest written by SaveManifest.
func LoadManifest(e SnapshotEngine) ([]ManifestEntry, error) {
	compressed, err := e.ReadManifest()
	if err != nil {
		return nil, err
	}
	zr, err := decompressReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("transport: opening xz reader: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("transport: decompressing manifest: %w", err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("transport: unmarshaling manifest: %w", err)
	}
	return entries, nil
}

// DumpInstance writes objects, the instance's full object set as the
// caller enumerated it (Instance has no generic "list ids" method), as a
// compressed ObjectDump.
func DumpInstance(e SnapshotEngine, dsID uint8, objects map[string][]byte) error {
	raw, err := json.Marshal(ObjectDump{Objects: objects})
	if err != nil {
		return fmt.Errorf("transport: marshaling instance dump: %w", err)
	}
	var buf bytes.Buffer
	zw, err := compressWriter(&buf)
	if err != nil {
		return fmt.Errorf("transport: opening xz writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return fmt.Errorf("transport: compressing instance dump: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("transport: closing xz writer: %w", err)
	}
	return e.WriteInstanceDump(dsID, buf.Bytes())
}

// RestoreInstance reads dsID's compressed dump back into a plain map of
// object id -> bytes; Server.Restore hands it to the freshly constructed
// instance's Dumper.Restore.
func RestoreInstance(e SnapshotEngine, dsID uint8) (map[string][]byte, error) {
	compressed, err := e.ReadInstanceDump(dsID)
	if err != nil {
		return nil, err
	}
	zr, err := decompressReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("transport: opening xz reader: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("transport: decompressing instance dump: %w", err)
	}
	var dump ObjectDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, fmt.Errorf("transport: unmarshaling instance dump: %w", err)
	}
	return dump.Objects, nil
}
