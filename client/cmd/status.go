package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/asarsync/asarsync/client/internal/updatemanager"
	"github.com/asarsync/asarsync/util"
)

var followFlag bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "shows the result of the last update",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadFlags(cmd); err != nil {
			return err
		}

		if err := util.InitLog(logLevel, util.ConsoleLog); err != nil {
			return fmt.Errorf("failed initializing log %v", err)
		}

		rh := resultHandler()
		result, err := rh.Read()
		switch {
		case errors.Is(err, os.ErrNotExist):
			cmd.Println("No update has been applied yet")
		case err != nil:
			return fmt.Errorf("read update result: %w", err)
		default:
			printResult(cmd.OutOrStdout(), result)
		}

		if !followFlag {
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(rh.Path()), 0o750); err != nil {
			return fmt.Errorf("create result directory: %w", err)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		SetupCloseHandler(ctx, cancel)

		err = rh.Watch(ctx, func(r updatemanager.Result) {
			printResult(cmd.OutOrStdout(), r)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	statusCmd.Flags().BoolVarP(&followFlag, "follow", "f", false, "keep printing results as updates are applied")
}

func printResult(w io.Writer, r updatemanager.Result) {
	outcome := "succeeded"
	if !r.Success {
		outcome = "failed"
	}

	from := r.FromTag
	if from == "" {
		from = "unknown version"
	}

	_, _ = fmt.Fprintf(w, "Update %s -> %s %s at %s\n", from, r.ToTag, outcome, r.ExecutedAt.Local().Format(time.RFC1123))
	if r.BackupPath != "" {
		_, _ = fmt.Fprintf(w, "  Backup: %s\n", r.BackupPath)
	}
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "  Error: %s\n", r.Error)
	}
}
