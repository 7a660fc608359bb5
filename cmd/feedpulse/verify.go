package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/feedpulse/pulse"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [code]",
		Short: "Check a verification code, or hash one for the config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runVerify,
	}
	cmd.Flags().String("hash", "", "print the bcrypt hash of this code and exit")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	if code, _ := cmd.Flags().GetString("hash"); code != "" {
		h, err := pulse.HashCode(code)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	}
	if len(args) == 0 {
		return errors.New("verify: a code or --hash is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Verification only needs the gate; no page is opened.
	eng, err := pulse.New(cfg, pulse.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer eng.Stop()

	if !eng.Verify(args[0]) {
		return errors.New("verification failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "verified")
	return nil
}

