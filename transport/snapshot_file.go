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
	"os"
)

// FileSnapshotFactory roots every checkpoint under Basepath/<name>/,
// mirroring storage/persistence-files.go's FileFactory.
type FileSnapshotFactory struct {
	Basepath string
}

func (f *FileSnapshotFactory) CreateSnapshot(name string) SnapshotEngine {
	return &FileSnapshot{path: f.Basepath + "/" + name + "/"}
}

// FileSnapshot persists manifest.bin and <ds_id>.dump files under path.
type FileSnapshot struct {
	path string
}

func (s *FileSnapshot) WriteManifest(manifest []byte) error {
	if err := os.MkdirAll(s.path, 0750); err != nil {
		return err
	}
	return os.WriteFile(s.path+"manifest.bin", manifest, 0640)
}

func (s *FileSnapshot) ReadManifest() ([]byte, error) {
	return os.ReadFile(s.path + "manifest.bin")
}

func (s *FileSnapshot) WriteInstanceDump(dsID uint8, dump []byte) error {
	if err := os.MkdirAll(s.path, 0750); err != nil {
		return err
	}
	return os.WriteFile(s.instancePath(dsID), dump, 0640)
}

func (s *FileSnapshot) ReadInstanceDump(dsID uint8) ([]byte, error) {
	return os.ReadFile(s.instancePath(dsID))
}

func (s *FileSnapshot) Remove() error {
	return os.RemoveAll(s.path)
}

func (s *FileSnapshot) instancePath(dsID uint8) string {
	return fmt.Sprintf("%s%d.dump", s.path, dsID)
}
