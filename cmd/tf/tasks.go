package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskflow/internal/domain"
	"taskflow/internal/engine"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskGetCmd())
	cmd.AddCommand(taskProgressCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskSubmitCmd())
	cmd.AddCommand(taskTreeCmd())
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var req engine.CreateTaskRequest
	var amount int64
	var currency string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task or, with --parent, a subtask",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("budget") {
				req.Budget = &engine.MoneyInput{Amount: amount, Currency: currency}
			}
			req.ActorID = actorID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if req.ParentID != "" {
					return show(e.AddSubtask(ctx, req))
				}
				return show(e.CreateTask(ctx, req))
			})
		},
	}
	cmd.Flags().StringVar(&req.ID, "id", "", "task id (generated when empty)")
	cmd.Flags().StringVar(&req.Title, "title", "", "task title")
	cmd.Flags().StringVar(&req.ParentID, "parent", "", "parent task id")
	cmd.Flags().StringVar(&req.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&amount, "budget", 0, "budget in minor units")
	cmd.Flags().StringVar(&currency, "currency", "EUR", "budget currency")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var req engine.ListTasksRequest
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, req).Unwrap()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(tasks))
				for _, t := range tasks {
					parent := ""
					if t.ParentID != nil {
						parent = t.ParentID.String()
					}
					rows = append(rows, table.Row{t.ID, t.Title, t.Status, fmt.Sprintf("%d%%", t.Progress), parent})
				}
				return printRows(tasks, table.Row{"ID", "Title", "Status", "Progress", "Parent"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&req.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&req.ParentID, "parent", "", "parent task id")
	return cmd
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.GetTask(ctx, args[0]))
			})
		},
	}
}

func taskProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id> <percent>",
		Short: "Set task progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pct int
			if _, err := fmt.Sscanf(args[1], "%d", &pct); err != nil {
				return fmt.Errorf("percent must be an integer: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.UpdateProgress(ctx, engine.UpdateProgressRequest{TaskID: args[0], Progress: pct, ActorID: actorID()}))
			})
		},
	}
}

func taskStatusCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change task status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.ChangeTaskStatus(ctx, engine.ChangeTaskStatusRequest{
					TaskID:  args[0],
					Status:  args[1],
					Reason:  optionalString(reason),
					ActorID: actorID(),
				}))
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason for the change")
	return cmd
}

func taskSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <id>",
		Short: "Submit a finished task for QC",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.SubmitForQC(ctx, engine.SubmitForQCRequest{TaskID: args[0], ActorID: actorID()}))
			})
		},
	}
}

func taskTreeCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show task tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, engine.ListTasksRequest{Status: status}).Unwrap()
				if err != nil {
					return err
				}
				known := map[string]bool{}
				for _, t := range tasks {
					known[t.ID.String()] = true
				}
				nodes := map[string][]domain.TaskState{}
				var roots []domain.TaskState
				for _, t := range tasks {
					if t.ParentID != nil && known[t.ParentID.String()] {
						nodes[t.ParentID.String()] = append(nodes[t.ParentID.String()], t)
					} else {
						roots = append(roots, t)
					}
				}
				if viper.GetBool("json") {
					type Node struct {
						Task     domain.TaskState `json:"task"`
						Children []Node           `json:"children,omitempty"`
					}
					var build func(t domain.TaskState) Node
					build = func(t domain.TaskState) Node {
						var children []Node
						for _, c := range nodes[t.ID.String()] {
							children = append(children, build(c))
						}
						return Node{Task: t, Children: children}
					}
					var tree []Node
					for _, r := range roots {
						tree = append(tree, build(r))
					}
					return printJSON(tree)
				}
				for i, r := range roots {
					printTaskTree(r, nodes, "", i == len(roots)-1)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func printTaskTree(t domain.TaskState, children map[string][]domain.TaskState, prefix string, last bool) {
	connector := "├── "
	newPrefix := prefix + "│   "
	if last {
		connector = "└── "
		newPrefix = prefix + "    "
	}
	fmt.Printf("%s%s%s [%s %d%%]\n", prefix, connector, t.Title, t.Status, t.Progress)
	kids := children[t.ID.String()]
	for i, c := range kids {
		printTaskTree(c, children, newPrefix, i == len(kids)-1)
	}
}
