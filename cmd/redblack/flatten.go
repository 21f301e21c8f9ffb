package main

import (
	"io"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/cyraxred/redblack"
	"github.com/cyraxred/redblack/internal/core"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type flattenOptions struct {
	Keys  []redblack.Key
	Erase []redblack.Key
	// Capacity limits the number of flattened keys, negative means all of them.
	Capacity int
}

type flattenResult struct {
	Keys        []string
	Missing     []string
	Written     int
	Len         int
	Min         string
	Max         string
	Height      int
	HeightLimit int
	BlackHeight int
}

const flattenTemplate = `flatten:
  keys: [{{join ", " .Keys}}]
  written: {{.Written}}
  len: {{.Len}}
  min: {{.Min | default "null"}}
  max: {{.Max | default "null"}}
  height: {{.Height}}
  height_limit: {{.HeightLimit}}
  black_height: {{.BlackHeight}}
{{- if .Missing}}
  missing: [{{join ", " .Missing}}]
{{- end}}
`

var flattenCmd = &cobra.Command{
	Use:   "flatten [keys...]",
	Short: "Insert the keys into a tree, optionally erase some and print the sorted result.",
	Long: `flatten inserts the given keys into an empty tree in the order they appear on the command
line followed by the keys read from --keys-file, erases the keys listed in --erase one occurrence
at a time and prints the contents of the tree in ascending order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		getString := func(name string) string {
			value, err := flags.GetString(name)
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
		getStringSlice := func(name string) []string {
			value, err := flags.GetStringSlice(name)
			if err != nil {
				panic(err)
			}
			return value
		}
		keys, err := parseKeys(args)
		if err != nil {
			return err
		}
		if keysFile := getString("keys-file"); keysFile != "" {
			fileKeys, err := loadKeysFile(keysFile)
			if err != nil {
				return err
			}
			keys = append(keys, fileKeys...)
		}
		erase, err := parseKeys(getStringSlice("erase"))
		if err != nil {
			return err
		}
		opts := flattenOptions{Keys: keys, Erase: erase, Capacity: getInt("capacity")}
		return runFlatten(cmd.OutOrStdout(), core.NewLogger(), opts)
	},
}

func init() {
	flags := flattenCmd.Flags()
	flags.StringSlice("erase", []string{}, "Keys to erase after all the insertions, comma separated.")
	flags.Int("capacity", -1, "Size of the output buffer; negative means as many as the tree holds.")
	flags.String("keys-file", "", "Path to the text file with whitespace separated keys to insert.")
	err := flattenCmd.MarkFlagFilename("keys-file")
	if err != nil {
		panic(err)
	}
}

// parseKeys converts the textual keys to Key-s.
func parseKeys(fields []string) ([]redblack.Key, error) {
	keys := make([]redblack.Key, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseInt(strings.TrimSpace(field), 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid key %q", field)
		}
		keys = append(keys, redblack.Key(value))
	}
	return keys, nil
}

// loadKeysFile reads the whitespace separated keys from the file; "~" expands to the home directory.
func loadKeysFile(path string) ([]redblack.Key, error) {
	actual, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(actual)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read the keys from %s", path)
	}
	keys, err := parseKeys(strings.Fields(string(data)))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return keys, nil
}

func runFlatten(out io.Writer, logger core.Logger, opts flattenOptions) error {
	tree := redblack.New()
	defer tree.Destroy()
	for _, key := range opts.Keys {
		tree.Insert(key)
	}
	result := flattenResult{}
	for _, key := range opts.Erase {
		node, found := tree.Find(key)
		if !found {
			logger.Warnf("key %d is not in the tree", key)
			result.Missing = append(result.Missing, strconv.Itoa(int(key)))
			continue
		}
		tree.Erase(node)
	}
	if err := tree.Verify(); err != nil {
		logger.Critical(err)
		return err
	}
	capacity := opts.Capacity
	if capacity < 0 {
		capacity = tree.Len()
	}
	buf := make([]redblack.Key, capacity)
	result.Written = tree.Flatten(buf)
	result.Keys = make([]string, result.Written)
	for i, key := range buf[:result.Written] {
		result.Keys[i] = strconv.Itoa(int(key))
	}
	result.Len = tree.Len()
	if node, found := tree.Min(); found {
		result.Min = strconv.Itoa(int(node.Key()))
	}
	if node, found := tree.Max(); found {
		result.Max = strconv.Itoa(int(node.Key()))
	}
	result.Height = tree.Height()
	result.HeightLimit = redblack.HeightLimit(tree.Len())
	result.BlackHeight = tree.BlackHeight()
	return tmpl(out, flattenTemplate, result)
}
