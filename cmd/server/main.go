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

// farmem-server hosts the authoritative far-memory store: farmem-server
// <cfg_path> <port>.
package main

import (
	"fmt"
	"os"

	"github.com/dc0d/onexit"

	"github.com/launix-de/farmem/farmem"
	"github.com/launix-de/farmem/transport"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: farmem-server <cfg_path> <port>\n")
		os.Exit(1)
	}
	cfgPath, port := os.Args[1], os.Args[2]

	fmt.Print(`farmem-server Copyright (C) 2026  MemCP Contributors
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	if err := farmem.LoadConfig(cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "farmem-server: %v\n", err)
		os.Exit(1)
	}

	srv := transport.NewServer()
	srv.RegisterConstructor(transport.DsTypeGeneric, transport.NewMemStore)
	srv.RegisterConstructor(transport.DsTypeSQLSeed, transport.NewSQLSeedStore)

	var snapshotEngine transport.SnapshotEngine
	if farmem.Config.SnapshotPath != "" {
		factory := &transport.FileSnapshotFactory{Basepath: farmem.Config.SnapshotPath}
		snapshotEngine = factory.CreateSnapshot("checkpoint")
		if _, err := os.Stat(farmem.Config.SnapshotPath + "/checkpoint/manifest.bin"); err == nil {
			if err := srv.Restore(snapshotEngine); err != nil {
				fmt.Fprintf(os.Stderr, "farmem-server: restoring checkpoint: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("farmem-server: restored checkpoint from", farmem.Config.SnapshotPath)
		}
		onexit.Register(func() {
			if err := srv.Snapshot(snapshotEngine); err != nil {
				fmt.Fprintf(os.Stderr, "farmem-server: checkpoint on shutdown failed: %v\n", err)
			}
		})
	}

	onexit.Register(func() { srv.Close() })

	addr := ":" + port
	fmt.Printf("farmem-server: listening on %s\n", addr)
	if err := srv.Serve(addr); err != nil {
		fmt.Fprintf(os.Stderr, "farmem-server: %v\n", err)
		os.Exit(1)
	}
}
