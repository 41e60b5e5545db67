package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"breachwatch/internal/service"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single check and print the verdict as JSON",
}

var checkPasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Check a password read from stdin against breach databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := readSecret(cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
			return svc.CheckPassword(ctx, secret)
		})
	},
}

var checkIPCmd = &cobra.Command{
	Use:   "ip <address>",
	Short: "Score the reputation of an IP address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
			return svc.CheckIP(ctx, args[0])
		})
	},
}

var (
	darkWebType    string
	darkWebMonitor bool
)

var checkDarkWebCmd = &cobra.Command{
	Use:   "darkweb <email|domain>",
	Short: "Search leak indexes for an email address or domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
			if !darkWebMonitor {
				return svc.SearchDarkWeb(ctx, args[0], darkWebType)
			}
			if strings.EqualFold(darkWebType, "domain") {
				return svc.MonitorDomain(ctx, args[0])
			}
			return svc.MonitorEmail(ctx, args[0])
		})
	},
}

func init() {
	checkDarkWebCmd.Flags().StringVarP(&darkWebType, "type", "t", "email", "target type: email or domain")
	checkDarkWebCmd.Flags().BoolVar(&darkWebMonitor, "monitor", false, "include a recommendation and action items")

	checkCmd.AddCommand(checkPasswordCmd, checkIPCmd, checkDarkWebCmd)
	rootCmd.AddCommand(checkCmd)
}

// withService builds a runtime, runs fn and prints its result. Closing the
// runtime waits for any alert raised by the check.
func withService(cmd *cobra.Command, fn func(context.Context, *service.Service) (any, error)) error {
	cfg, log, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := service.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	v, err := fn(ctx, rt.Service)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), v)
}

// readSecret takes the first line of r so the password never appears in
// argv or shell history.
func readSecret(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			fmt.Fprint(os.Stderr, "Password: ")
		}
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
