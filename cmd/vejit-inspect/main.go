// Copyright 2025 Bohrium VE-core Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command vejit-inspect is a standalone operator diagnostic over the
// on-disk kernel store: list cached fingerprints, report victim-cache
// occupancy, or force a preload. It never sits on the engine's execute()
// hot path — the upstream runtime's component loader owns that.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Thunderl3ear/bohrium/engine"
)

// flags holds the persistent flag values shared by every subcommand. A
// struct rather than closed-over locals so each subcommand reads the value
// pflag wrote at parse time, not a snapshot taken before parsing.
type flags struct {
	objectDir   string
	vcacheSize  int64
	compilerCmd string
}

func (f *flags) newEngine() (*engine.Engine, error) {
	cfg := engine.Config{
		ObjectDir:   f.objectDir,
		VCacheSize:  f.vcacheSize,
		JITEnabled:  true,
		JITFusion:   true,
		Preload:     true,
		CompilerCmd: f.compilerCmd,
	}
	return engine.New(cfg, slog.Default())
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "vejit-inspect",
		Short: "Inspect a bohrium vector-engine kernel store and victim cache",
	}
	root.PersistentFlags().StringVar(&f.objectDir, "object-dir", "", "kernel store object directory")
	root.PersistentFlags().Int64Var(&f.vcacheSize, "vcache-size", 64<<20, "victim cache capacity in bytes")
	root.PersistentFlags().StringVar(&f.compilerCmd, "compiler-cmd", "cc -x c -fPIC -shared -O3 -o {OUT} -", "compiler command template")
	_ = root.MarkPersistentFlagRequired("object-dir")

	root.AddCommand(newPreloadCmd(f))
	root.AddCommand(newDescribeCmd(f))
	root.AddCommand(newListCmd(f))

	return root
}

func newPreloadCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "preload",
		Short: "Scan the object directory and load every present kernel",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.newEngine()
			if err != nil {
				return err
			}
			defer e.Shutdown()
			if err := e.Init(); err != nil {
				return err
			}
			fmt.Println(e.Describe())
			return nil
		},
	}
}

func newDescribeCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the engine's configuration and vcache occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.newEngine()
			if err != nil {
				return err
			}
			defer e.Shutdown()
			fmt.Println(e.Describe())
			return nil
		},
	}
}

func newListCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List compiled kernel object files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(f.objectDir)
			if err != nil {
				return fmt.Errorf("vejit-inspect: list: %w", err)
			}
			count := 0
			for _, e := range entries {
				if e.IsDir() || filepath.Ext(e.Name()) != ".so" {
					continue
				}
				fmt.Println(e.Name())
				count++
			}
			fmt.Fprintf(os.Stderr, "%d object(s)\n", count)
			return nil
		},
	}
}
