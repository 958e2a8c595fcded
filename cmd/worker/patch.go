package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/engine"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/patch"
)

var (
	patchScheme string
	patchDryRun bool
	patchJSON   bool
)

func init() {
	patchCmd.Flags().StringVar(&patchScheme, "scheme", "", "Named color scheme ("+strings.Join(patch.SchemeNames(), ", ")+")")
	patchCmd.Flags().BoolVar(&patchDryRun, "dry-run", false, "Print the instructions without touching the tree")
	patchCmd.Flags().BoolVar(&patchJSON, "json", false, "Print the result as JSON")
}

var patchCmd = &cobra.Command{
	Use:   "patch <resource-root> <description>",
	Short: "Apply a free-text change request to a decompiled tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, description := args[0], args[1]
		set := patch.Compile(description, patchScheme, nil)
		out := cmd.OutOrStdout()

		if patchDryRun {
			printInstructions(out, set)
			return nil
		}

		res, err := engine.Apply(root, set)
		if err != nil {
			return err
		}
		if patchJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(out, res)
		return nil
	},
}

func printInstructions(w io.Writer, set *patch.Set) {
	if set.Empty() {
		fmt.Fprintln(w, color.YellowString("no instructions matched"))
		return
	}
	for _, in := range set.Instructions() {
		value := in.Value
		if in.Kind == patch.KindRasterAsset {
			value = fmt.Sprintf("%d bytes", len(in.Payload))
		}
		fmt.Fprintf(w, "%s %s = %s\n", color.CyanString("%-16s", in.Kind), in.Key, value)
	}
}

func printResult(w io.Writer, res *engine.Result) {
	fmt.Fprintf(w, "%s %d instruction(s)\n", color.GreenString("applied"), res.Applied)
	for _, path := range res.Changed {
		fmt.Fprintf(w, "  %s %s\n", color.GreenString("M"), path)
	}
	for _, key := range res.Skipped {
		fmt.Fprintf(w, "  %s %s not found\n", color.YellowString("skipped"), key)
	}
}
