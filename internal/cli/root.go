// Package cli provides the fmcos command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gregLibert/fmcos/internal/config"
	"github.com/gregLibert/fmcos/internal/logging"
)

var cfgFile string

// NewRootCommand creates and returns the root command with all subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fmcos",
		Short: "FMCOS stored-value card tool",
		Long: `Drive FMCOS cards through a PC/SC reader: personalise the wallet application,
load and spend the purses, and manage the PIN and the application lock.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Initialize configuration before running any command.
			if err := config.Initialize(cfgFile, cmd.Flags()); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg := config.Get()
			if err := logging.InitLogger(cfg.Log.Level, cfg.Log.Format == "human"); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
	}

	// Add persistent flags that affect all commands.
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fmcos/config.yaml)")

	// Add global flags that can override config file settings.
	rootCmd.PersistentFlags().String("reader", "", "PC/SC reader name, or part of it")
	rootCmd.PersistentFlags().String("profile", "fmcos.yaml", "card profile with keys and layout")
	rootCmd.PersistentFlags().Bool("debug", false, "log every APDU exchanged")
	rootCmd.PersistentFlags().Bool("simulate", false, "answer every command with 90 00 without a card")
	rootCmd.PersistentFlags().
		String("log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "human", "logging format (human, json)")

	registerCommands(rootCmd)
	return rootCmd
}

func registerCommands(root *cobra.Command) {
	root.AddCommand(newReadersCommand())
	root.AddCommand(newSelectCommand())
	root.AddCommand(newResetCommand())
	root.AddCommand(newSetupCommand())
	root.AddCommand(newVerifyPINCommand())
	root.AddCommand(newBalanceCommand())
	root.AddCommand(newCreditCommand())
	root.AddCommand(newDebitCommand())
	root.AddCommand(newPurchaseCommand())
	root.AddCommand(newWithdrawCommand())
	root.AddCommand(newOverdraftCommand())
	root.AddCommand(newPINCommand())
	root.AddCommand(newBlockCommand())
	root.AddCommand(newUnblockCommand())
	root.AddCommand(newReadBinaryCommand())
	root.AddCommand(newReadRecordCommand())
}

// Execute runs the root command and exits non-zero on failure. SIGINT and SIGTERM
// cancel a pending card wait.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
