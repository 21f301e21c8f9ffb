package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cyraxred/redblack"
	"github.com/cyraxred/redblack/internal/core"
	"github.com/cyraxred/redblack/internal/stress"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"
	progress "gopkg.in/cheggaaa/pb.v1"
)

const stressTemplate = `redblack:
  version: {{.Version}}
  hash: {{.Hash}}
stress:
  trees: {{.Trees}}
  operations: {{.Ops}}
  keys: {{.Keys}}
  seed: {{.Seed}}
  workers: {{.Workers}}
  hibernate: {{.Hibernate}}
  total_operations: {{mul .Trees .Ops}}
  inserts: {{.Inserts}}
  erases: {{.Erases}}
  hits: {{.Hits}}
  misses: {{.Misses}}
  extrema: {{.Extrema}}
  flattens: {{.Flattens}}
  checks: {{.Checks}}
  max_len: {{.MaxLen}}
  max_height: {{.MaxHeight}}
  height_limit: {{.HeightLimit}}
  run_time: {{.RunTime}}
  status: {{if .Failures}}{{"failed" | upper}}{{else}}ok{{end}}
{{- range .Failures}}
  - {{.Error | quote}}
{{- end}}
`

type stressResult struct {
	*stress.Report
	Version     int
	Hash        string
	HeightLimit int
	// RunTime is in milliseconds.
	RunTime int64
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run random insertions, erasures and queries on many trees and check them.",
	Long: `stress drives several independent trees through random operations in parallel. Every tree
is compared with a sorted array after each operation and the complete set of red-black
invariants is verified periodically. The command fails if any tree breaks.`,
	Args: cobra.MaximumNArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		getBool := func(name string) bool {
			value, err := flags.GetBool(name)
			if err != nil {
				panic(err)
			}
			return value
		}
		getInt := func(name string) int {
			value, err := flags.GetInt(name)
			if err != nil {
				panic(err)
			}
			return value
		}
		seed, err := flags.GetInt64("seed")
		if err != nil {
			panic(err)
		}
		cfg := stress.Config{
			Trees:       getInt("trees"),
			Ops:         getInt("ops"),
			Keys:        getInt("keys"),
			Seed:        seed,
			VerifyEvery: getInt("verify-every"),
			Workers:     getInt("workers"),
			Hibernate:   getBool("hibernate"),
		}
		return runStress(cmd.OutOrStdout(), core.NewLogger(), cfg, !getBool("quiet"))
	},
}

func init() {
	flags := stressCmd.Flags()
	flags.Int("trees", stress.DefaultTrees, "Number of independent trees.")
	flags.Int("ops", stress.DefaultOps, "Number of random operations per tree.")
	flags.Int("keys", stress.DefaultKeys, "Keys are drawn from [0, keys).")
	flags.Int64("seed", 0, "Random seed of the first tree; tree #i uses seed+i.")
	flags.Int("verify-every", stress.DefaultVerifyEvery, "Verify all the invariants every this number of operations.")
	flags.Int("workers", 0, "Number of parallel workers; 0 means the number of CPUs.")
	flags.Bool("hibernate", false, "Compress and restore the node memory at every verification.")
	flags.Bool("quiet", !terminal.IsTerminal(int(os.Stderr.Fd())),
		"Do not print status updates to stderr.")
}

func runStress(out io.Writer, logger core.Logger, cfg stress.Config, showProgress bool) error {
	var bar *progress.ProgressBar
	var onProgress func(done, total int)
	if showProgress {
		onProgress = func(done, total int) {
			if bar == nil {
				bar = progress.New(total)
				bar.Callback = func(msg string) {
					os.Stderr.WriteString("\033[2K\r" + msg)
				}
				bar.NotPrint = true
				bar.ShowPercent = false
				bar.ShowSpeed = false
				bar.SetMaxWidth(80).Start()
			}
			bar.Set(done).Postfix(fmt.Sprintf(" [%d/%d trees] ", done, total))
		}
	}
	report, err := stress.Run(cfg, logger, onProgress)
	if bar != nil {
		bar.Finish()
		fmt.Fprint(os.Stderr, "\033[2K\r")
	}
	if err != nil {
		return err
	}
	result := stressResult{
		Report:      report,
		Version:     redblack.BinaryVersion,
		Hash:        redblack.BinaryGitHash,
		HeightLimit: redblack.HeightLimit(report.MaxLen),
		RunTime:     report.Elapsed.Nanoseconds() / 1e6,
	}
	if err = tmpl(out, stressTemplate, result); err != nil {
		return err
	}
	if report.Failed() {
		return errors.Errorf("%d trees out of %d failed", len(report.Failures), report.Trees)
	}
	return nil
}
