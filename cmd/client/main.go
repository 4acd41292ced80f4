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

// farmem-client dials a running farmem-server and either runs one driver
// command non-interactively or drops into an interactive prompt:
// farmem-client <cfg_path> <ip:port> [driver] [driver-args...].
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dc0d/onexit"

	"github.com/launix-de/farmem/farmem"
	"github.com/launix-de/farmem/prefetch"
	"github.com/launix-de/farmem/transport"
)

const newprompt = "\033[32m>\033[0m "
const resultprompt = "\033[31m=\033[0m "

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: farmem-client <cfg_path> <ip:port> [driver] [driver-args...]\n")
		os.Exit(1)
	}
	cfgPath, addr := os.Args[1], os.Args[2]

	if err := farmem.LoadConfig(cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "farmem-client: %v\n", err)
		os.Exit(1)
	}

	device, err := transport.Dial(addr, farmem.Config.PoolSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "farmem-client: dial %s: %v\n", addr, err)
		os.Exit(1)
	}

	cacheCap, err := farmem.CacheCapacityBytes()
	if err != nil {
		fmt.Fprintf(os.Stderr, "farmem-client: %v\n", err)
		os.Exit(1)
	}
	if err := device.Init(uint64(cacheCap)); err != nil {
		fmt.Fprintf(os.Stderr, "farmem-client: Init: %v\n", err)
		os.Exit(1)
	}

	mgr, err := farmem.Build(cacheCap, farmem.Config.GCThreads, device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "farmem-client: %v\n", err)
		os.Exit(1)
	}
	onexit.Register(func() { farmem.Drop() })

	closeWatch, err := farmem.WatchConfig(cfgPath, mgr)
	if err == nil {
		onexit.Register(func() { closeWatch() })
	}

	pool := prefetch.NewPool(runtime.NumCPU())
	mgr.SetPrefetchPool(pool)
	onexit.Register(func() { pool.Close() })

	if farmem.Config.DashboardAddr != "" {
		dash := transport.NewDashboard(mgr, 0)
		go func() {
			if err := http.ListenAndServe(farmem.Config.DashboardAddr, dash); err != nil {
				fmt.Fprintf(os.Stderr, "farmem-client: dashboard: %v\n", err)
			}
		}()
	}

	if len(os.Args) > 3 {
		driver, driverArgs := os.Args[3], os.Args[4:]
		runDriver(mgr, driver, driverArgs)
		return
	}
	repl(mgr)
}

// runDriver executes one non-interactive command, the CLI's "driver"
// mode, built from the same verbs the interactive prompt accepts.
func runDriver(mgr *farmem.Manager, driver string, args []string) {
	out, err := dispatchCommand(mgr, append([]string{driver}, args...))
	if err != nil {
		fmt.Fprintf(os.Stderr, "farmem-client: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

// repl is the interactive command prompt, grounded on scm/prompt.go's
// readline loop: a persistent history file, Ctrl-C clears the current
// line instead of killing the process, and every line is evaluated and
// its result printed with a distinct result-prompt color.
func repl(mgr *farmem.Manager) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".farmem-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	fmt.Println("farmem-client: connected. commands: read/write/construct/destruct/call/stat/quit")
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return
		} else if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}
		out, err := dispatchCommand(mgr, fields)
		if err != nil {
			fmt.Println(resultprompt, "error:", err)
			continue
		}
		fmt.Println(resultprompt, out)
	}
}

// dispatchCommand parses one command line shared by the REPL and the
// non-interactive driver mode.
func dispatchCommand(mgr *farmem.Manager, fields []string) (string, error) {
	if len(fields) == 0 {
		return "", fmt.Errorf("empty command")
	}
	switch fields[0] {
	case "read":
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: read <ds_id> <obj_id>")
		}
		dsID, err := parseDsID(fields[1])
		if err != nil {
			return "", err
		}
		data, err := mgr.GetDevice().ReadObject(dsID, []byte(fields[2]))
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "write":
		if len(fields) != 4 {
			return "", fmt.Errorf("usage: write <ds_id> <obj_id> <data>")
		}
		dsID, err := parseDsID(fields[1])
		if err != nil {
			return "", err
		}
		if err := mgr.GetDevice().WriteObject(dsID, []byte(fields[2]), []byte(fields[3])); err != nil {
			return "", err
		}
		return "ok", nil

	case "construct":
		if len(fields) < 3 {
			return "", fmt.Errorf("usage: construct <ds_type> <ds_id> [params]")
		}
		dsType, err := parseDsID(fields[1])
		if err != nil {
			return "", err
		}
		dsID, err := parseDsID(fields[2])
		if err != nil {
			return "", err
		}
		var params []byte
		if len(fields) > 3 {
			params = []byte(strings.Join(fields[3:], " "))
		}
		if err := mgr.Construct(dsType, dsID, params); err != nil {
			return "", err
		}
		return "ok", nil

	case "destruct":
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: destruct <ds_id>")
		}
		dsID, err := parseDsID(fields[1])
		if err != nil {
			return "", err
		}
		if err := mgr.Destruct(dsID); err != nil {
			return "", err
		}
		return "ok", nil

	case "call":
		if len(fields) < 3 {
			return "", fmt.Errorf("usage: call <ds_id> <body>")
		}
		dsID, err := parseDsID(fields[1])
		if err != nil {
			return "", err
		}
		body := strings.Join(fields[2:], " ")
		code, ret, err := mgr.Call(dsID, []byte(body))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v %s", code, string(ret)), nil

	case "stat":
		return mgr.String(), nil

	default:
		return "", fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseDsID(s string) (uint8, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("invalid ds_id %q", s)
	}
	return uint8(n), nil
}
