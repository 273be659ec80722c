// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/pollchain/client"
	"github.com/danielhkuo/pollchain/cliparse"
	"github.com/danielhkuo/pollchain/wallet"
)

var (
	// nodeURL overrides NODE_URL.
	nodeURL string

	// keystoreDir overrides KEYSTORE_DIR.
	keystoreDir string

	// txTimeout overrides TX_TIMEOUT.
	txTimeout time.Duration

	// assumeYes approves every wallet prompt.
	assumeYes bool

	verbose bool
	noColor bool

	cfg cliparse.ClientConfig
)

const rootCmdLongDesc = `pollctl is a command line wallet for pollchain.

It keeps ed25519 keys in a local keystore, signs poll and vote transactions,
follows them until the node confirms or rejects them, and shows tallies and
winners once a poll has ended.

Configuration comes from flags, then the environment (NODE_URL, KEYSTORE_DIR,
TX_TIMEOUT, TX_POLL_INTERVAL, RECONCILE_INTERVAL, POLL_CACHE_SIZE), then a
.env file in the working directory.`

var rootCmd = &cobra.Command{
	Use:               "pollctl",
	Short:             "Create polls and vote on a pollchain node",
	Long:              rootCmdLongDesc,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&nodeURL, "node", "", "chain node URL (default "+cliparse.DefaultNodeURL+")")
	rootCmd.PersistentFlags().StringVar(&keystoreDir, "keystore", "", "directory holding *.key files (default ~/.pollchain/keys)")
	rootCmd.PersistentFlags().DurationVar(&txTimeout, "timeout", 0, "how long to follow a transaction before reporting it dropped")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve wallet prompts without asking")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colors and styling")

	rootCmd.AddCommand(
		keygenCmd,
		accountsCmd,
		pollsCmd,
		pollCmd,
		createCmd,
		voteCmd,
		winnerCmd,
		reconcileCmd,
	)
}

func setup(cmd *cobra.Command, args []string) error {
	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		pterm.DisableStyling()
	}

	level := pterm.LogLevelWarn
	if verbose {
		level = pterm.LogLevelDebug
	}
	slog.SetDefault(slog.New(pterm.NewSlogHandler(pterm.DefaultLogger.WithLevel(level))))

	if err := cliparse.LoadDotEnv(); err != nil {
		return err
	}
	var err error
	if cfg, err = cliparse.ParseClientEnv(); err != nil {
		return err
	}
	if nodeURL != "" {
		cfg.NodeURL = nodeURL
	}
	if keystoreDir != "" {
		cfg.KeystoreDir = keystoreDir
	}
	if txTimeout > 0 {
		cfg.TxTimeout = txTimeout
	}
	return nil
}

// commandContext is cancelled on Ctrl-C.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func prompter() wallet.Prompter {
	if assumeYes {
		return wallet.AutoApprove{}
	}
	return ptermPrompter{}
}

func openClient() (*client.Client, error) {
	return client.Open(cfg, prompter())
}

// connectedClient opens a client and connects the first keystore account.
func connectedClient(ctx context.Context) (*client.Client, wallet.Identity, error) {
	c, err := openClient()
	if err != nil {
		return nil, wallet.Identity{}, err
	}
	id, err := c.Connect(ctx)
	if err != nil {
		return nil, wallet.Identity{}, err
	}
	pterm.Info.Printfln("Connected as %s", accountLabel(id))
	return c, id, nil
}
