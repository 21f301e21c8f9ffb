/*
Package main provides the command line tool to play with red-black trees. Usage:

	redblack flatten 10 20 5 1 --erase 10
	redblack stress --trees 16 --ops 1000000
	redblack version
*/
package main

import (
	"fmt"
	"os"

	"github.com/cyraxred/redblack"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "redblack",
	Short: "Exercise the red-black tree of integer keys.",
	Long: `redblack builds red-black trees of integer keys, prints their sorted contents and
runs long randomized workloads which check every tree invariant along the way.`,
}

// versionCmd prints the API version and the Git commit hash
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information and exit.",
	Long:  ``,
	Args:  cobra.MaximumNArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %d\nGit:     %s\n",
			redblack.BinaryVersion, redblack.BinaryGitHash)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(stressCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
