package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"taskflow/internal/domain"
	"taskflow/internal/engine"
)

func qcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qc",
		Short: "Decide QC checks",
		Long:  "Decisions apply to the given --check, or to the latest check of the task.",
	}
	decide := func(use, short string, needReason bool, fn func(engine.Engine, context.Context, engine.QCDecisionRequest) engine.Result[domain.QCCheckState]) *cobra.Command {
		var checkID, reason, notes string
		c := &cobra.Command{
			Use:   use + " <task-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
					return show(fn(e, ctx, engine.QCDecisionRequest{
						CheckID: checkID,
						TaskID:  args[0],
						Reason:  reason,
						Notes:   optionalString(notes),
						ActorID: actorID(),
					}))
				})
			},
		}
		c.Flags().StringVar(&checkID, "check", "", "QC check id")
		c.Flags().StringVar(&notes, "notes", "", "inspector notes")
		if needReason {
			c.Flags().StringVar(&reason, "reason", "", "failure reason")
			_ = c.MarkFlagRequired("reason")
		}
		return c
	}
	cmd.AddCommand(decide("pass", "Pass the QC check", false, engine.Engine.PassQC))
	cmd.AddCommand(decide("fail", "Fail the QC check; opens a blocking issue", true, engine.Engine.FailQC))
	cmd.AddCommand(decide("recheck", "Re-arm a failed QC check", false, engine.Engine.RequestRecheck))
	cmd.AddCommand(&cobra.Command{
		Use:   "list <task-id>",
		Short: "List QC checks of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				checks, err := e.ListQCChecks(ctx, args[0]).Unwrap()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(checks))
				for _, c := range checks {
					reason := ""
					if c.LastReason != nil {
						reason = *c.LastReason
					}
					rows = append(rows, table.Row{c.ID, c.Status, c.Attempt, reason})
				}
				return printRows(checks, table.Row{"ID", "Status", "Attempt", "Last reason"}, rows)
			})
		},
	})
	return cmd
}

func acceptanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acceptance",
		Short: "Decide acceptance reviews",
		Long:  "Decisions apply to the given --acceptance, or to the latest review of the task.",
	}
	decide := func(use, short string, fn func(engine.Engine, context.Context, engine.AcceptanceDecisionRequest) engine.Result[domain.AcceptanceState]) *cobra.Command {
		var accID, notes string
		c := &cobra.Command{
			Use:   use + " <task-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
					return show(fn(e, ctx, engine.AcceptanceDecisionRequest{
						AcceptanceID: accID,
						TaskID:       args[0],
						Notes:        optionalString(notes),
						ActorID:      actorID(),
					}))
				})
			},
		}
		c.Flags().StringVar(&accID, "acceptance", "", "acceptance id")
		c.Flags().StringVar(&notes, "notes", "", "review notes")
		return c
	}
	cmd.AddCommand(decide("approve", "Approve; completes the task", engine.Engine.ApproveAcceptance))
	cmd.AddCommand(decide("reject", "Reject; returns the task to work", engine.Engine.RejectAcceptance))
	cmd.AddCommand(decide("resubmit", "Reopen a rejected review", engine.Engine.ResubmitAcceptance))
	cmd.AddCommand(&cobra.Command{
		Use:   "list <task-id>",
		Short: "List acceptance reviews of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.ListAcceptances(ctx, args[0]))
			})
		},
	})
	return cmd
}

func issueCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "issue", Short: "Manage issues"}

	var title string
	var blocking bool
	open := &cobra.Command{
		Use:   "open <task-id>",
		Short: "Open an issue on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.OpenIssue(ctx, engine.OpenIssueRequest{TaskID: args[0], Title: title, Blocking: blocking, ActorID: actorID()}))
			})
		},
	}
	open.Flags().StringVar(&title, "title", "", "issue title")
	open.Flags().BoolVar(&blocking, "blocking", false, "keep the task out of QC until resolved")
	_ = open.MarkFlagRequired("title")
	cmd.AddCommand(open)

	action := func(use, short string, fn func(engine.Engine, context.Context, engine.IssueRequest) engine.Result[domain.IssueState]) *cobra.Command {
		var note string
		c := &cobra.Command{
			Use:   use + " <issue-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
					return show(fn(e, ctx, engine.IssueRequest{IssueID: args[0], Note: optionalString(note), ActorID: actorID()}))
				})
			},
		}
		c.Flags().StringVar(&note, "note", "", "resolution or reason")
		return c
	}
	cmd.AddCommand(action("resolve", "Resolve an issue", engine.Engine.ResolveIssue))
	cmd.AddCommand(action("reopen", "Reopen an issue", engine.Engine.ReopenIssue))
	cmd.AddCommand(action("close", "Close an issue", engine.Engine.CloseIssue))

	var taskID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				issues, err := e.ListIssues(ctx, taskID).Unwrap()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(issues))
				for _, is := range issues {
					rows = append(rows, table.Row{is.ID, is.TaskID, is.Title, is.Status, is.Blocking})
				}
				return printRows(issues, table.Row{"ID", "Task", "Title", "Status", "Blocking"}, rows)
			})
		},
	}
	list.Flags().StringVar(&taskID, "task", "", "task id")
	cmd.AddCommand(list)
	return cmd
}
