package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/engine"
	"taskflow/internal/repo"
	"taskflow/internal/server"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Event log",
		Long:  "Every change is recorded as an event carrying its correlation and causation.",
	}

	var f repo.EventFilters
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the newest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				views, err := e.ListEvents(ctx, engine.ListEventsRequest{EventFilters: f, ActorID: actorID()}).Unwrap()
				if err != nil {
					return err
				}
				return printEvents(views)
			})
		},
	}
	tail.Flags().IntVarP(&f.Limit, "n", "n", 20, "number of events")
	tail.Flags().StringVar(&f.Type, "type", "", "event type filter")
	tail.Flags().StringVar(&f.Domain, "domain", "", "domain filter (task, qc, issue, ...)")
	tail.Flags().StringVar(&f.AggregateID, "aggregate", "", "aggregate id")
	cmd.AddCommand(tail)

	var eventID string
	trace := &cobra.Command{
		Use:   "trace <correlation-id>",
		Short: "Show one workflow as a causation tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				trail, err := e.AuditTrail(ctx, engine.AuditTrailRequest{CorrelationID: args[0], EventID: eventID, ActorID: actorID()}).Unwrap()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(trail))
				for _, entry := range trail {
					indent := ""
					for i := 0; i < entry.Depth; i++ {
						indent += "  "
					}
					rows = append(rows, table.Row{entry.Seq, indent + entry.Type, entry.AggregateID, entry.Actor, entry.Timestamp.Format(time.RFC3339)})
				}
				return printRows(trail, table.Row{"Seq", "Event", "Aggregate", "Actor", "At"}, rows)
			})
		},
	}
	trace.Flags().StringVar(&eventID, "event", "", "only the chain leading to this event")
	cmd.AddCommand(trace)
	return cmd
}

func printEvents(views []engine.EventView) error {
	rows := make([]table.Row, 0, len(views))
	for _, v := range views {
		rows = append(rows, table.Row{v.Seq, v.Type, v.AggregateID, v.CorrelationID, v.Actor, v.Timestamp.Format(time.RFC3339)})
	}
	return printRows(views, table.Row{"Seq", "Type", "Aggregate", "Correlation", "Actor", "At"}, rows)
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token for --actor-id with TASKFLOW_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			var env config.ServerEnv
			if err := config.ParseEnv(&env); err != nil {
				return err
			}
			token, err := server.SignToken(env.JWTSecret, actorID(), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowActorHeader, devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server and webhook relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			var env config.ServerEnv
			if err := config.ParseEnv(&env); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				env.Addr = addr
			}
			if cmd.Flags().Changed("base-path") {
				env.BasePath = basePath
			}
			if env.JWTSecret == "" {
				return errors.New("TASKFLOW_JWT_SECRET is required for bearer auth")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			s, log, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer s.Close()

			handler, err := server.New(server.Config{
				Engine:   s.Engine,
				BasePath: env.BasePath,
				Auth:     server.AuthConfig{JWTSecret: env.JWTSecret, AllowActorHeader: allowActorHeader, DevLogin: devLogin},
				Log:      log.Named("http"),
			})
			if err != nil {
				return err
			}
			relay := server.NewRelay(s.Engine.Repo, s.Config.Webhooks, s.Config.Workspace.ID, log.Named("webhooks"))
			relayDone := make(chan error, 1)
			go func() { relayDone <- relay.Run(ctx) }()

			srv := &http.Server{Addr: env.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			log.Info("serving taskflow API",
				zap.String("addr", env.Addr),
				zap.String("base_path", env.BasePath),
				zap.Int("webhooks", len(s.Config.Webhooks)))
			fmt.Printf("Serving taskflow API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", env.Addr, env.BasePath, env.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				stop()
				<-relayDone
				return err
			}
			stop()
			return <-relayDone
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (TASKFLOW_ADDR)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path (TASKFLOW_BASE_PATH)")
	cmd.Flags().BoolVar(&allowActorHeader, "allow-actor-header", false, "trust X-Actor-Id without a token (local use only)")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "mount POST /auth/dev/login to mint tokens without credentials (local use only)")
	return cmd
}
