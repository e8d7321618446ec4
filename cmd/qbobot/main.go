package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/config"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/control"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/qbo"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/runner"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/server"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/sheets"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "qbobot",
	Short: "Sheets-to-QuickBooks accounting pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

func newLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "qbobot",
		Level:           log.DebugLevel,
	})
}

// stack builds the shared online clients from config.
type stack struct {
	cfg    *config.Config
	sheets *sheets.Client
	master *control.Master
	qbo    *qbo.Client
	runner *runner.Runner
}

func buildStack(ctx context.Context, cmd *cobra.Command, logger *log.Logger) (*stack, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sc, err := sheets.New(ctx, logger, cfg.GoogleCredentials)
	if err != nil {
		return nil, err
	}
	master := control.NewMaster(logger, sc, cfg.MasterSheetID, cfg.MasterTab)

	qc := qbo.New(logger, qbo.Config{
		ClientID:     cfg.QBO.ClientID,
		ClientSecret: cfg.QBO.ClientSecret,
		RedirectURI:  cfg.QBO.RedirectURI,
		BaseURL:      cfg.QBO.BaseURL,
		TokenURL:     cfg.QBO.TokenURL,
		MinorVersion: cfg.QBO.MinorVersion,
	}, master.SaveRefreshToken)

	rules, err := resolver.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	return &stack{
		cfg:    cfg,
		sheets: sc,
		master: master,
		qbo:    qc,
		runner: runner.New(logger, cfg, sc, qc, master, rules),
	}, nil
}

func stageCmd(use, short string, run func(*runner.Runner, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			s, err := buildStack(ctx, cmd, logger)
			if err != nil {
				return err
			}
			return run(s.runner, ctx)
		},
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		s, err := buildStack(cmd.Context(), cmd, logger)
		if err != nil {
			return err
		}
		return server.New(s.cfg, logger, s.runner).Start(s.cfg.Server.Addr)
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Onboard a QBO company: exchange an OAuth code and register the client",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		ctx := cmd.Context()
		s, err := buildStack(ctx, cmd, logger)
		if err != nil {
			return err
		}

		realm, _ := cmd.Flags().GetString("realm")
		code, _ := cmd.Flags().GetString("code")
		name, _ := cmd.Flags().GetString("name")
		sheetID, _ := cmd.Flags().GetString("sheet")
		if code == "" {
			fmt.Println("Open this URL, authorize the company, then re-run with --realm and --code from the redirect:")
			fmt.Println(s.qbo.AuthCodeURL(uuid.NewString()))
			return nil
		}
		if realm == "" {
			return fmt.Errorf("--realm is required")
		}

		controlID, err := sheets.ExtractID(sheetID)
		if err != nil {
			return err
		}

		refreshToken, err := s.qbo.ExchangeCode(ctx, realm, code)
		if err != nil {
			return err
		}
		if err := s.master.UpsertClient(ctx, models.ClientRow{
			Name:           name,
			ControlSheetID: controlID,
			RealmID:        realm,
			Status:         "active",
			RefreshToken:   refreshToken,
		}); err != nil {
			return err
		}
		logger.Info("client registered", "realm", realm, "client", name)
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Batch-delete documents for a realm by doc number prefix",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		ctx := cmd.Context()
		s, err := buildStack(ctx, cmd, logger)
		if err != nil {
			return err
		}

		realm, _ := cmd.Flags().GetString("realm")
		entity, _ := cmd.Flags().GetString("entity")
		prefix, _ := cmd.Flags().GetString("prefix")
		if realm == "" || prefix == "" {
			return fmt.Errorf("--realm and --prefix are required")
		}

		clients, err := s.master.Clients(ctx)
		if err != nil {
			return err
		}
		for _, c := range clients {
			if c.RealmID == realm {
				s.qbo.Register(realm, c.RefreshToken)
			}
		}

		docs, err := s.qbo.Query(ctx, realm, entity, fmt.Sprintf("DocNumber LIKE '%s%%'", prefix))
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		if len(ids) == 0 {
			logger.Info("nothing to delete", "entity", entity, "prefix", prefix)
			return nil
		}

		deleted, err := s.qbo.BatchDelete(ctx, realm, entity, ids)
		if err != nil {
			return err
		}
		logger.Info("purge complete", "entity", entity, "deleted", deleted)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")

	setupCmd.Flags().String("realm", "", "QBO realm (company) id")
	setupCmd.Flags().String("code", "", "OAuth authorization code")
	setupCmd.Flags().String("name", "", "Client name for the master sheet")
	setupCmd.Flags().String("sheet", "", "Control spreadsheet id or URL")

	purgeCmd.Flags().String("realm", "", "QBO realm (company) id")
	purgeCmd.Flags().String("entity", "JournalEntry", "Entity type to delete")
	purgeCmd.Flags().String("prefix", "", "Doc number prefix")

	rootCmd.AddCommand(stageCmd("ingest", "Process READY jobs into output documents", (*runner.Runner).RunIngestion))
	rootCmd.AddCommand(stageCmd("sync", "Post ready output rows to QBO", (*runner.Runner).RunSync))
	rootCmd.AddCommand(stageCmd("reconcile", "Verify output rows against QBO and the raw tabs", (*runner.Runner).RunReconcile))
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(purgeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
