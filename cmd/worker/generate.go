package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/codegen"
)

var generateModel string

func init() {
	generateCmd.Flags().StringVar(&generateModel, "model", "gemini-pro", "Model used when GEMINI_API_KEY is set")
}

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate Android code for a described function",
	Long: `Generate Android code for a described function. With GEMINI_API_KEY set
the live model is used; otherwise the built-in templates answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		var backend codegen.Backend
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			client, err := codegen.NewGemini(ctx, codegen.GeminiOptions{
				APIKey:  key,
				Model:   generateModel,
				Timeout: 30 * time.Second,
			})
			if err != nil {
				return err
			}
			backend = client
		}

		gen, err := codegen.NewGenerator(backend).Generate(ctx, strings.Join(args, " "), nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), color.CyanString("source: %s, category: %s", gen.Source, gen.Category))
		fmt.Fprint(cmd.OutOrStdout(), gen.Code)
		return nil
	},
}
