package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskflow/internal/app"
	"taskflow/internal/config"
	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/migrate"
)

func initCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create taskflow.yml if missing and seed roles and the first member",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				cfg, err := app.ResolveConfig(workspace, viper.GetString("workspace-id"))
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, []byte(config.GenerateDefault(cfg.Workspace.ID)), 0o644); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
				fmt.Fprintf(os.Stderr, "wrote %s\n", path)
			} else if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.InitWorkspace(ctx, engine.InitWorkspaceRequest{ActorID: actorID(), Email: email}))
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the initializing actor")
	return cmd
}

func workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "workspace", Short: "Inspect the workspace"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show roles and members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.Workspace(ctx))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("workspace-id"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Show the database schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer s.Close()
			current, latest, err := migrate.Status(cmd.Context(), s.DB)
			if err != nil {
				return err
			}
			view := struct {
				Current int `json:"current"`
				Latest  int `json:"latest"`
			}{current, latest}
			return printRows(view, table.Row{"Current", "Latest"}, []table.Row{{current, latest}})
		},
	})
	return cmd
}

func memberCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Manage members"}

	var email, roleID string
	invite := &cobra.Command{
		Use:   "invite",
		Short: "Invite a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.InviteMember(ctx, engine.InviteMemberRequest{Email: email, RoleID: roleID, ActorID: actorID()}))
			})
		},
	}
	invite.Flags().StringVar(&email, "email", "", "member email")
	invite.Flags().StringVar(&roleID, "role", "", "role id")
	_ = invite.MarkFlagRequired("email")
	_ = invite.MarkFlagRequired("role")
	cmd.AddCommand(invite)

	cmd.AddCommand(&cobra.Command{
		Use:   "join <member-id>",
		Short: "Accept an invitation as --actor-id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.JoinMember(ctx, engine.JoinMemberRequest{MemberID: args[0], UserID: actorID()}))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status <member-id> <ACTIVE|SUSPENDED|REMOVED|REVOKED>",
		Short: "Change member status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.ChangeMemberStatus(ctx, engine.ChangeMemberStatusRequest{MemberID: args[0], Status: args[1], ActorID: actorID()}))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "role <member-id> <role-id>",
		Short: "Change member role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.ChangeMemberRole(ctx, engine.ChangeMemberRoleRequest{MemberID: args[0], RoleID: args[1], ActorID: actorID()}))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				members, err := e.ListMembers(ctx).Unwrap()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(members))
				for _, m := range members {
					user := ""
					if m.UserID != nil {
						user = m.UserID.String()
					}
					rows = append(rows, table.Row{m.ID, m.Email, user, m.RoleID, m.Status})
				}
				return printRows(members, table.Row{"ID", "Email", "User", "Role", "Status"}, rows)
			})
		},
	})
	return cmd
}

func roleCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "role", Short: "Manage roles and permissions"}

	var id, name string
	var perms []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.CreateRole(ctx, engine.CreateRoleRequest{ID: id, Name: name, Permissions: perms, ActorID: actorID()}))
			})
		},
	}
	create.Flags().StringVar(&id, "id", "", "role id (generated when empty)")
	create.Flags().StringVar(&name, "name", "", "role name")
	create.Flags().StringSliceVar(&perms, "permission", nil, "permission to grant (repeatable)")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)

	roleAction := func(use, short string, fn func(engine.Engine, context.Context, engine.RoleRequest) engine.Result[domain.RoleState]) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
					return show(fn(e, ctx, engine.RoleRequest{RoleID: args[0], Value: args[1], ActorID: actorID()}))
				})
			},
		}
	}
	cmd.AddCommand(roleAction("rename <role-id> <name>", "Rename a role", engine.Engine.RenameRole))
	cmd.AddCommand(roleAction("grant <role-id> <permission>", "Grant a permission", engine.Engine.GrantPermission))
	cmd.AddCommand(roleAction("revoke <role-id> <permission>", "Revoke a permission", engine.Engine.RevokePermission))

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				roles, err := e.ListRoles(ctx).Unwrap()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(roles))
				for _, r := range roles {
					var granted []string
					for perm, status := range r.Permissions {
						granted = append(granted, fmt.Sprintf("%s:%s", perm, status))
					}
					sort.Strings(granted)
					rows = append(rows, table.Row{r.ID, r.Name, strings.Join(granted, ", ")})
				}
				return printRows(roles, table.Row{"ID", "Name", "Permissions"}, rows)
			})
		},
	})
	return cmd
}

func templateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "template", Short: "Manage templates"}

	var name, body string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.CreateTemplate(ctx, engine.CreateTemplateRequest{Name: name, Body: body, ActorID: actorID()}))
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "template name")
	create.Flags().StringVar(&body, "body", "", "template body")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <template-id> <name>",
		Short: "Rename a template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.RenameTemplate(ctx, engine.RenameTemplateRequest{TemplateID: args[0], Name: args[1], ActorID: actorID()}))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.ListTemplates(ctx))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "history <template-id>",
		Short: "Show template events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				views, err := e.GetTemplateHistory(ctx, args[0]).Unwrap()
				if err != nil {
					return err
				}
				return printEvents(views)
			})
		},
	})
	return cmd
}

func worklogCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "worklog", Short: "Daily work log"}

	var req engine.LogWorkRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Log a share of a day on a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ActorID = actorID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.LogWork(ctx, req))
			})
		},
	}
	add.Flags().StringVar(&req.TaskID, "task", "", "task id")
	add.Flags().StringVar(&req.Date, "date", "", "work date (YYYY-MM-DD)")
	add.Flags().Float64Var(&req.Headcount, "headcount", 1, "man-days, at most 1 per user and day")
	add.Flags().StringVar(&req.UserID, "user", "", "user to log for (defaults to --actor-id)")
	add.Flags().StringVar(&req.Note, "note", "", "note")
	_ = add.MarkFlagRequired("task")
	_ = add.MarkFlagRequired("date")
	cmd.AddCommand(add)

	var headcount float64
	adjust := &cobra.Command{
		Use:   "adjust <entry-id>",
		Short: "Change the headcount of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.AdjustEntry(ctx, engine.AdjustEntryRequest{EntryID: args[0], Headcount: headcount, ActorID: actorID()}))
			})
		},
	}
	adjust.Flags().Float64Var(&headcount, "headcount", 0, "man-days")
	_ = adjust.MarkFlagRequired("headcount")
	cmd.AddCommand(adjust)

	var filter engine.ListEntriesRequest
	list := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entries, err := e.ListEntries(ctx, filter).Unwrap()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(entries))
				for _, d := range entries {
					rows = append(rows, table.Row{d.ID, d.Date, d.UserID, d.TaskID, d.Headcount})
				}
				return printRows(entries, table.Row{"ID", "Date", "User", "Task", "Headcount"}, rows)
			})
		},
	}
	list.Flags().StringVar(&filter.UserID, "user", "", "user id")
	list.Flags().StringVar(&filter.Date, "date", "", "date (YYYY-MM-DD)")
	cmd.AddCommand(list)
	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "Workspace settings"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.GetSettings(ctx))
			})
		},
	})
	var theme, language string
	set := &cobra.Command{
		Use:   "set",
		Short: "Update theme or language",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := engine.UpdateSettingsRequest{
				Theme:    changedString(cmd, "theme", theme),
				Language: changedString(cmd, "language", language),
				ActorID:  actorID(),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return show(e.UpdateSettings(ctx, req))
			})
		},
	}
	set.Flags().StringVar(&theme, "theme", "", "light, dark or system")
	set.Flags().StringVar(&language, "language", "", "en, zh-TW, zh-CN, ja or es")
	cmd.AddCommand(set)
	return cmd
}
