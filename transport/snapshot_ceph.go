//go:build ceph

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
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

// CephSnapshotFactory builds checkpoints against a RADOS pool, grounded
// verbatim on storage/persistence-ceph.go's CephFactory/CephStorage split
// and its cgo-gated build-tag pattern: Ceph's client library links against
// librados, so it is opt-in behind the "ceph" build tag rather than an
// always-on dependency.
type CephSnapshotFactory struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string
}

func (f *CephSnapshotFactory) CreateSnapshot(name string) SnapshotEngine {
	pfx := path.Join(strings.TrimSuffix(f.Prefix, "/"), name)
	return &CephSnapshot{factory: f, prefix: pfx}
}

type CephSnapshot struct {
	factory *CephSnapshotFactory
	prefix  string

	mu     sync.Mutex
	conn   *rados.Conn
	ioctx  *rados.IOContext
	opened bool
}

func (s *CephSnapshot) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}

	conn, err := rados.NewConnWithClusterAndUser(s.factory.ClusterName, s.factory.UserName)
	if err != nil {
		return err
	}
	if s.factory.ConfFile != "" {
		if err := conn.ReadConfigFile(s.factory.ConfFile); err != nil {
			return err
		}
	} else {
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		return err
	}
	ioctx, err := conn.OpenIOContext(s.factory.Pool)
	if err != nil {
		conn.Shutdown()
		return err
	}

	s.conn = conn
	s.ioctx = ioctx
	s.opened = true
	return nil
}

func (s *CephSnapshot) obj(name string) string {
	return path.Join(s.prefix, name)
}

func (s *CephSnapshot) readObj(name string) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	obj := s.obj(name)
	stat, err := s.ioctx.Stat(obj)
	if err != nil {
		return nil, err
	}
	data := make([]byte, stat.Size)
	n, err := s.ioctx.Read(obj, data, 0)
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}

func (s *CephSnapshot) writeObj(name string, data []byte) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.ioctx.WriteFull(s.obj(name), data)
}

func (s *CephSnapshot) WriteManifest(manifest []byte) error {
	return s.writeObj("manifest.bin", manifest)
}

func (s *CephSnapshot) ReadManifest() ([]byte, error) {
	return s.readObj("manifest.bin")
}

func (s *CephSnapshot) WriteInstanceDump(dsID uint8, dump []byte) error {
	return s.writeObj(fmt.Sprintf("%d.dump", dsID), dump)
}

func (s *CephSnapshot) ReadInstanceDump(dsID uint8) ([]byte, error) {
	return s.readObj(fmt.Sprintf("%d.dump", dsID))
}

func (s *CephSnapshot) Remove() error {
	// Plain librados cannot efficiently enumerate "all objects under
	// prefix" without a maintained manifest/index object, same limitation
	// storage/persistence-ceph.go's CephStorage.Remove documents.
	return fmt.Errorf("transport: CephSnapshot.Remove not implemented: needs a manifest/index to enumerate objects")
}
