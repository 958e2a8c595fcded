package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/build"
)

var (
	buildBackend     string
	buildTimeout     time.Duration
	keystorePath     string
	keystorePassword string
)

func init() {
	for _, c := range []*cobra.Command{decompileCmd, compileCmd, signCmd} {
		c.Flags().StringVar(&buildBackend, "backend", "archive", "Build backend (archive or apktool)")
		c.Flags().DurationVar(&buildTimeout, "timeout", 5*time.Minute, "Abort after this long")
	}
	signCmd.Flags().StringVar(&keystorePath, "keystore", "", "PKCS#12 keystore (an ephemeral key is used when empty)")
	signCmd.Flags().StringVar(&keystorePassword, "password", "", "Keystore password")
}

func collaborator(signer *build.Signer) (build.Collaborator, error) {
	return build.New(buildBackend, signer, build.ApktoolOptions{
		KeystorePath:     keystorePath,
		KeystorePassword: keystorePassword,
	})
}

func buildContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, buildTimeout)
	return ctx, func() { cancel(); stop() }
}

var decompileCmd = &cobra.Command{
	Use:   "decompile <archive.apk> <work-dir>",
	Short: "Extract an archive into an editable resource tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collab, err := collaborator(nil)
		if err != nil {
			return err
		}
		ctx, cancel := buildContext()
		defer cancel()

		root, err := collab.Decompile(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("decompiled to"), root)

		if d, ok := collab.(build.Describer); ok {
			facts, err := d.Describe(root)
			if err == nil {
				for k, v := range facts {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", k, v)
				}
			}
		}
		return nil
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile <resource-root>",
	Short: "Package a resource tree into an unsigned archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collab, err := collaborator(nil)
		if err != nil {
			return err
		}
		ctx, cancel := buildContext()
		defer cancel()

		artifact, err := collab.Compile(ctx, args[0])
		if err != nil {
			return err
		}
		info, err := os.Stat(artifact)
		if err != nil {
			return fmt.Errorf("compilation produced no output file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d bytes)\n", color.GreenString("compiled"), artifact, info.Size())
		return nil
	},
}

var signCmd = &cobra.Command{
	Use:   "sign <compiled.apk> <signed.apk>",
	Short: "Sign a compiled archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			signer *build.Signer
			err    error
		)
		if keystorePath != "" {
			signer, err = build.LoadKeystoreFile(keystorePath, keystorePassword)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("no keystore given; using an ephemeral debug key"))
			signer, err = build.NewEphemeralSigner("apkstudio-debug")
		}
		if err != nil {
			return err
		}

		collab, err := collaborator(signer)
		if err != nil {
			return err
		}
		ctx, cancel := buildContext()
		defer cancel()

		if err := collab.Sign(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("signed"), args[1])
		return nil
	},
}
