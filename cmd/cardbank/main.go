package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MarkoPoloResearchLab/cardbank/internal/remote"
	"github.com/MarkoPoloResearchLab/cardbank/pkg/cardstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagDataDir   = "data-dir"
	flagServerURL = "server-url"
	flagClientKey = "client-key"
	flagPassword  = "password"
	flagAmount    = "amount"

	configKeyDataDir   = "data_dir"
	configKeyServerURL = "server_url"
	configKeyClientKey = "client_key"

	defaultDataDir = "."
)

type runtimeConfig struct {
	DataDir   string
	ServerURL string
	ClientKey string
}

// application bundles the wired dependencies behind every subcommand. The
// remote pieces stay nil when no server URL is configured; the CLI then runs
// local-only.
type application struct {
	logger     *zap.Logger
	store      *cardstore.Store
	service    *cardstore.Service
	client     *remote.Client
	reconciler *cardstore.Reconciler
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cardbank: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "cardbank",
		Short:         "Card account store with optional server sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}

	cmd.PersistentFlags().String(flagDataDir, defaultDataDir, "directory holding the Card/ records and system.key")
	cmd.PersistentFlags().String(flagServerURL, "", "counterpart server base URL (empty runs local-only)")
	cmd.PersistentFlags().String(flagClientKey, "", "shared key for signing server request tokens")

	cmd.AddCommand(
		newCreateCommand(cfg),
		newListCommand(cfg),
		newBalanceCommand(cfg),
		newDepositCommand(cfg),
		newWithdrawCommand(cfg),
		newTransferCommand(cfg),
		newCloseCommand(cfg),
		newPushCommand(cfg),
		newPullCommand(cfg),
	)

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv(configKeyDataDir, "CARDBANK_DATA_DIR"); err != nil {
		return err
	}
	if err := viper.BindEnv(configKeyServerURL, "CARDBANK_SERVER_URL"); err != nil {
		return err
	}
	if err := viper.BindEnv(configKeyClientKey, "CARDBANK_CLIENT_KEY"); err != nil {
		return err
	}

	for configKey, flagName := range map[string]string{
		configKeyDataDir:   flagDataDir,
		configKeyServerURL: flagServerURL,
		configKeyClientKey: flagClientKey,
	} {
		if err := viper.BindPFlag(configKey, cmd.Root().PersistentFlags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DataDir = viper.GetString(configKeyDataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	cfg.ServerURL = viper.GetString(configKeyServerURL)
	cfg.ClientKey = viper.GetString(configKeyClientKey)

	if cfg.ServerURL != "" && cfg.ClientKey == "" {
		return fmt.Errorf("client key is required when a server url is set")
	}
	return nil
}

func newApplication(cfg *runtimeConfig) (*application, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}

	store, err := cardstore.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("store init: %w", err)
	}

	app := &application{logger: logger, store: store}
	options := []cardstore.ServiceOption{
		cardstore.WithOperationLogger(&zapOperationLogger{logger: logger}),
	}

	if cfg.ServerURL != "" {
		client, err := remote.NewClient(cfg.ServerURL, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("remote client init: %w", err)
		}
		reconciler, err := cardstore.NewReconciler(store, client)
		if err != nil {
			return nil, fmt.Errorf("reconciler init: %w", err)
		}
		app.client = client
		app.reconciler = reconciler
		options = append(options, cardstore.WithRemoteLedger(client))
	}

	service, err := cardstore.NewService(store, options...)
	if err != nil {
		return nil, fmt.Errorf("service init: %w", err)
	}
	app.service = service
	return app, nil
}

func (app *application) close() {
	_ = app.logger.Sync()
}

// zapOperationLogger forwards domain operation callbacks to zap.
type zapOperationLogger struct {
	logger *zap.Logger
}

func (adapter *zapOperationLogger) LogOperation(_ context.Context, entry cardstore.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("account_id", entry.AccountID.String()),
		zap.Uint64("amount_cents", entry.Amount.Uint64()),
		zap.String("status", entry.Status),
	}
	if entry.Error != nil {
		adapter.logger.Warn("account operation failed", append(fields, zap.Error(entry.Error))...)
		return
	}
	adapter.logger.Info("account operation", fields...)
}

func newCreateCommand(cfg *runtimeConfig) *cobra.Command {
	var rawPassword uint64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new account with a zero balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cfg)
			if err != nil {
				return err
			}
			defer app.close()
			password, err := cardstore.NewPassword(rawPassword)
			if err != nil {
				return err
			}
			account, err := app.service.CreateAccount(cmd.Context(), password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), account.ID.String())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&rawPassword, flagPassword, 0, "seven-digit account password")
	_ = cmd.MarkFlagRequired(flagPassword)
	return cmd
}

func newListCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List local accounts and balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cfg)
			if err != nil {
				return err
			}
			defer app.close()
			accounts, err := app.service.ListAccounts()
			if err != nil {
				return err
			}
			for _, account := range accounts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", account.ID.String(), account.Balance.Uint64())
			}
			return nil
		},
	}
}

func newBalanceCommand(cfg *runtimeConfig) *cobra.Command {
	var rawPassword uint64
	cmd := &cobra.Command{
		Use:   "balance <uuid>",
		Short: "Show an account balance in cents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cfg)
			if err != nil {
				return err
			}
			defer app.close()
			id, password, err := parseCredentials(args[0], rawPassword)
			if err != nil {
				return err
			}
			balance, err := app.service.Balance(cmd.Context(), id, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), balance.Uint64())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&rawPassword, flagPassword, 0, "seven-digit account password")
	_ = cmd.MarkFlagRequired(flagPassword)
	return cmd
}

func newDepositCommand(cfg *runtimeConfig) *cobra.Command {
	var rawPassword, rawAmount uint64
	cmd := &cobra.Command{
		Use:   "deposit <uuid>",
		Short: "Deposit an amount in cents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cfg)
			if err != nil {
				return err
			}
			defer app.close()
			id, password, err := parseCredentials(args[0], rawPassword)
			if err != nil {
				return err
			}
			amount, err := cardstore.NewAmountCents(rawAmount)
			if err != nil {
				return err
			}
			balance, err := app.service.Deposit(cmd.Context(), id, password, amount)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), balance.Uint64())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&rawPassword, flagPassword, 0, "seven-digit account password")
	cmd.Flags().Uint64Var(&rawAmount, flagAmount, 0, "amount in cents")
	_ = cmd.MarkFlagRequired(flagPassword)
	_ = cmd.MarkFlagRequired(flagAmount)
	return cmd
}

func newWithdrawCommand(cfg *runtimeConfig) *cobra.Command {
	var rawPassword, rawAmount uint64
	cmd := &cobra.Command{
		Use:   "withdraw <uuid>",
		Short: "Withdraw an amount in cents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cfg)
			if err != nil {
				return err
			}
			defer app.close()
			id, password, err := parseCredentials(args[0], rawPassword)
			if err != nil {
				return err
			}
			amount, err := cardstore.NewAmountCents(rawAmount)
			if err != nil {
				return err
			}
			balance, err := app.service.Withdraw(cmd.Context(), id, password, amount)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), balance.Uint64())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&rawPassword, flagPassword, 0, "seven-digit account password")
	cmd.Flags().Uint64Var(&rawAmount, flagAmount, 0, "amount in cents")
	_ = cmd.MarkFlagRequired(flagPassword)
	_ = cmd.MarkFlagRequired(flagAmount)
	return cmd
}

func newTransferCommand(cfg *runtimeConfig) *cobra.Command {
	var rawPassword, rawAmount uint64
	cmd := &cobra.Command{
		Use:   "transfer <from-uuid> <to-uuid>",
		Short: "Move an amount between two accounts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cfg)
			if err != nil {
				return err
			}
			defer app.close()
			from, password, err := parseCredentials(args[0], rawPassword)
			if err != nil {
				return err
			}
			to, err := cardstore.NewAccountID(args[1])
			if err != nil {
				return err
			}
			amount, err := cardstore.NewAmountCents(rawAmount)
			if err != nil {
				return err
			}
			return app.service.Transfer(cmd.Context(), from, password, to, amount)
		},
	}
	cmd.Flags().Uint64Var(&rawPassword, flagPassword, 0, "seven-digit source account password")
	cmd.Flags().Uint64Var(&rawAmount, flagAmount, 0, "amount in cents")
	_ = cmd.MarkFlagRequired(flagPassword)
	_ = cmd.MarkFlagRequired(flagAmount)
	return cmd
}

func newCloseCommand(cfg *runtimeConfig) *cobra.Command {
	var rawPassword uint64
	cmd := &cobra.Command{
		Use:   "close <uuid>",
		Short: "Close a zero-balance account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cfg)
			if err != nil {
				return err
			}
			defer app.close()
			id, password, err := parseCredentials(args[0], rawPassword)
			if err != nil {
				return err
			}
			if err := app.service.Close(cmd.Context(), id, password); err != nil {
				return err
			}
			// The remote copy goes best-effort; a failure leaves an orphan on
			// the server that the operator can delete later.
			if app.client != nil {
				if err := app.client.DeleteRemote(cmd.Context(), id); err != nil {
					app.logger.Warn("remote delete failed", zap.String("account_id", id.String()), zap.Error(err))
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&rawPassword, flagPassword, 0, "seven-digit account password")
	_ = cmd.MarkFlagRequired(flagPassword)
	return cmd
}

func newPushCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload every local balance to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cfg)
			if err != nil {
				return err
			}
			defer app.close()
			if app.reconciler == nil {
				return fmt.Errorf("push requires a server url")
			}
			summary, err := app.reconciler.PushAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed=%d failed=%d\n", summary.Pushed, summary.Failed)
			return nil
		},
	}
}

func newPullCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Merge the server snapshot into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cfg)
			if err != nil {
				return err
			}
			defer app.close()
			if app.reconciler == nil {
				return fmt.Errorf("pull requires a server url")
			}
			summary, err := app.reconciler.Pull(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created=%d updated=%d unchanged=%d failed=%d\n",
				summary.Created, summary.Updated, summary.Unchanged, summary.Failed)
			return nil
		},
	}
}

func parseCredentials(rawID string, rawPassword uint64) (cardstore.AccountID, cardstore.Password, error) {
	id, err := cardstore.NewAccountID(rawID)
	if err != nil {
		return cardstore.AccountID{}, 0, err
	}
	password, err := cardstore.NewPassword(rawPassword)
	if err != nil {
		return cardstore.AccountID{}, 0, err
	}
	return id, password, nil
}
