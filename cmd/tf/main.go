package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"taskflow/internal/app"
	"taskflow/internal/db"
	"taskflow/internal/engine"
)

var rootCmd = &cobra.Command{
	Use:   "tf",
	Short: "Taskflow CLI",
	Long: `Taskflow tracks tasks through quality control and acceptance.
- Tasks move TODO -> IN_PROGRESS -> IN_QC -> IN_ACCEPTANCE -> COMPLETED; QC and acceptance drive the last steps.
- A failed QC check opens a blocking issue and sends the task back to work.
- Every change is a causal event; 'tf events trace' shows why something happened.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.String("workspace-id", "", "workspace id (overrides taskflow.yml)")
	flags.Bool("json", false, "output JSON")
	flags.String("actor-id", "local-user", "actor identifier")
	flags.BoolP("verbose", "v", false, "debug logging")
	for _, name := range []string{"workspace", "workspace-id", "json", "actor-id", "verbose"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(workspaceCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(qcCmd())
	rootCmd.AddCommand(acceptanceCmd())
	rootCmd.AddCommand(issueCmd())
	rootCmd.AddCommand(memberCmd())
	rootCmd.AddCommand(roleCmd())
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(worklogCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- helpers ---

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if viper.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func openSession(ctx context.Context) (*app.Session, *zap.Logger, error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	s, err := app.Open(ctx, app.Options{
		Workspace:   viper.GetString("workspace"),
		WorkspaceID: viper.GetString("workspace-id"),
		Log:         log,
	})
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return s, log, nil
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	s, log, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer s.Close()
	return fn(ctx, s.Engine)
}

func actorID() string {
	return viper.GetString("actor-id")
}

// show prints a use-case result, or returns its error.
func show[T any](r engine.Result[T]) error {
	data, err := r.Unwrap()
	if err != nil {
		return err
	}
	return printJSONOrTable(data)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRows renders a table unless --json is set, in which case v is printed instead.
func printRows(v any, header table.Row, rows []table.Row) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// changedString is nil unless the flag was set on the command line.
func changedString(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
