package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"timekeep/internal/app"
	"timekeep/internal/config"
	"timekeep/internal/db"
	"timekeep/internal/domain"
	"timekeep/internal/engine"
	"timekeep/internal/lifecycle"
	"timekeep/internal/search"
	"timekeep/internal/server"
	"timekeep/internal/timespan"
)

var rootCmd = &cobra.Command{
	Use:   "tk",
	Short: "TimeKeep CLI",
	Long: `TimeKeep tracks tasks and the time spent on them.
A task moves To Do -> Doing -> Paused/Done, with Cancelled as an exit
that can be restored. Starting a task opens a work interval; pausing or
finishing closes it. The elapsed total is always the sum of the closed
intervals, and manual corrections go through the work history.
The workspace is a .timekeep directory holding the database and an
optional settings.yml.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TIMEKEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(workCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(commentCmd())
	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks are the units of trackable work. 'tk task start' begins tracking, 'pause' and 'finish' stop it, and 'list' shows the current page of unfinished work.",
	}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskEditCmd())
	task.AddCommand(taskDeleteCmd())
	for _, ev := range lifecycle.Events() {
		task.AddCommand(taskTransitionCmd(ev))
	}
	return task
}

func taskAddCmd() *cobra.Command {
	var title, description, scheduledStart, scheduledComplete, estimate string
	var tagIDs []int64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TaskCreateOptions{
				Title:       title,
				Description: description,
				TagIDs:      tagIDs,
			}
			var err error
			if opts.ScheduledStart, err = parseTimeFlag("scheduled-start", scheduledStart); err != nil {
				return err
			}
			if opts.ScheduledComplete, err = parseTimeFlag("scheduled-complete", scheduledComplete); err != nil {
				return err
			}
			if estimate != "" {
				d, err := time.ParseDuration(estimate)
				if err != nil {
					return fmt.Errorf("invalid --estimate: %w", err)
				}
				span := timespan.FromSeconds(int64(d.Seconds()))
				opts.EstimatedDuration = &span
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&scheduledStart, "scheduled-start", "", "scheduled start (RFC 3339)")
	cmd.Flags().StringVar(&scheduledComplete, "scheduled-complete", "", "scheduled completion (RFC 3339)")
	cmd.Flags().StringVar(&estimate, "estimate", "", "estimated duration (e.g. 2h30m)")
	cmd.Flags().Int64SliceVar(&tagIDs, "tag", nil, "tag id (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var page, pageSize int64
	var statuses, tags []string
	var query, sortField, sortOrder string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long:  "Lists one page of tasks. Without filters, finished and cancelled tasks are hidden per the workspace settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if pageSize == 0 {
					pageSize = e.Settings.Tasks.PageSize
				}
				parsed := make([]domain.Status, 0, len(statuses))
				for _, s := range statuses {
					st, err := domain.ParseStatus(s)
					if err != nil {
						return err
					}
					parsed = append(parsed, st)
				}
				if len(parsed) == 0 && query == "" && len(tags) == 0 {
					parsed = e.Settings.DefaultStatuses()
				}
				criteria, err := search.Normalize(page, pageSize, parsed, query, tags, nil, nil, sortField, sortOrder)
				if err != nil {
					return err
				}
				result, err := e.SearchTasks(ctx, criteria)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(result)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Elapsed", "Due"})
				for _, t := range result.Data {
					due := ""
					if t.ScheduledComplete != nil {
						due = *t.ScheduledComplete
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status.Display(), timespan.FromSeconds(t.ElapsedDuration), due})
				}
				tw.Render()
				last := search.ComputeLastPage(result.TotalItemCount, result.PageSize)
				fmt.Printf("Page %d/%d (%d tasks)\n", result.Page, last, result.TotalItemCount)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&page, "page", 1, "page number")
	cmd.Flags().Int64Var(&pageSize, "page-size", 0, "page size (0 uses the workspace default)")
	cmd.Flags().StringArrayVar(&statuses, "status", nil, "status filter (repeatable)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag filter (repeatable)")
	cmd.Flags().StringVar(&query, "query", "", "free-text filter on title and description")
	cmd.Flags().StringVar(&sortField, "sort", "scheduledCompleteDate", "sort property")
	cmd.Flags().StringVar(&sortOrder, "order", "asc", "sort direction (asc or desc)")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTask(t)
			})
		},
	}
	return cmd
}

func taskEditCmd() *cobra.Command {
	var title, description, scheduledStart, scheduledComplete, estimate, elapsed string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task",
		Long:  "Rewrites a task's descriptive fields. --elapsed overrides the computed elapsed total; leave it unset to keep the work-history value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts := engine.TaskEditOptions{ID: id, Title: title, Description: description}
			if opts.ScheduledStart, err = parseTimeFlag("scheduled-start", scheduledStart); err != nil {
				return err
			}
			if opts.ScheduledComplete, err = parseTimeFlag("scheduled-complete", scheduledComplete); err != nil {
				return err
			}
			if estimate != "" {
				d, err := time.ParseDuration(estimate)
				if err != nil {
					return fmt.Errorf("invalid --estimate: %w", err)
				}
				span := timespan.FromSeconds(int64(d.Seconds()))
				opts.EstimatedDuration = &span
			}
			if cmd.Flags().Changed("elapsed") {
				d, err := time.ParseDuration(elapsed)
				if err != nil {
					return fmt.Errorf("invalid --elapsed: %w", err)
				}
				span := timespan.FromSeconds(int64(d.Seconds()))
				opts.Elapsed = &span
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.EditTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&scheduledStart, "scheduled-start", "", "scheduled start (RFC 3339)")
	cmd.Flags().StringVar(&scheduledComplete, "scheduled-complete", "", "scheduled completion (RFC 3339)")
	cmd.Flags().StringVar(&estimate, "estimate", "", "estimated duration (e.g. 2h30m)")
	cmd.Flags().StringVar(&elapsed, "elapsed", "", "override the elapsed total (e.g. 1h15m)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, id)
			})
		},
	}
	return cmd
}

func taskTransitionCmd(ev lifecycle.Event) *cobra.Command {
	short := map[lifecycle.Event]string{
		lifecycle.EventStart:   "Start tracking a task",
		lifecycle.EventPause:   "Pause a running task",
		lifecycle.EventResume:  "Resume a paused task",
		lifecycle.EventFinish:  "Finish a task",
		lifecycle.EventCancel:  "Cancel a task",
		lifecycle.EventRestore: "Restore a cancelled task",
		lifecycle.EventReopen:  "Reopen a finished task",
	}
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <id>", ev),
		Short: short[ev],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Transition(ctx, id, ev)
				if err != nil {
					return err
				}
				return printJSONOrTask(t)
			})
		},
	}
}

func workCmd() *cobra.Command {
	work := &cobra.Command{
		Use:   "work",
		Short: "Manage work history",
		Long:  "The work history is the ledger behind a task's elapsed total. Add closed intervals to correct forgotten time, or delete mistaken ones; editing waits until the task is not actively tracking.",
	}
	work.AddCommand(workAddCmd())
	work.AddCommand(workEditCmd())
	work.AddCommand(workDeleteCmd())
	work.AddCommand(workListCmd())
	return work
}

func workAddCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "add <task-id>",
		Short: "Add a work interval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			startT, endT, err := parseBounds(start, end)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.AddWorkHistory(ctx, id, startT, endT)
				if err != nil {
					return err
				}
				return printJSONOrTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "interval start (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "interval end (RFC 3339)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func workEditCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "edit <task-id> <interval-id>",
		Short: "Edit a work interval",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			intervalID, err := parseID(args[1])
			if err != nil {
				return err
			}
			startT, endT, err := parseBounds(start, end)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.EditWorkHistory(ctx, taskID, intervalID, startT, endT)
				if err != nil {
					return err
				}
				return printJSONOrTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "interval start (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "interval end (RFC 3339)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func workDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <task-id> <interval-id>",
		Short: "Delete a work interval",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			intervalID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.DeleteWorkHistory(ctx, taskID, intervalID)
				if err != nil {
					return err
				}
				return printJSONOrTask(t)
			})
		},
	}
	return cmd
}

func workListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's work intervals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(t.WorkHistory)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Start", "End", "Elapsed"})
				for _, iv := range t.WorkHistory {
					end := "(open)"
					if iv.End != nil {
						end = *iv.End
					}
					tw.AppendRow(table.Row{iv.ID, iv.Start, end, timespan.FromSeconds(iv.ElapsedDuration)})
				}
				tw.Render()
				fmt.Printf("Total: %s\n", timespan.FromSeconds(t.ElapsedDuration))
				return nil
			})
		},
	}
	return cmd
}

func tagCmd() *cobra.Command {
	tag := &cobra.Command{Use: "tag", Short: "Manage tags"}
	tag.AddCommand(&cobra.Command{
		Use:   "add <value>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTag(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrValue(t)
			})
		},
	})
	tag.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tags, err := e.ListTags(ctx)
				if err != nil {
					return err
				}
				return printJSONOrValue(tags)
			})
		},
	})
	tag.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTag(ctx, id)
			})
		},
	})
	tag.AddCommand(&cobra.Command{
		Use:   "attach <task-id> <tag-id>",
		Short: "Attach a tag to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			tagID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.TagTask(ctx, taskID, tagID)
				if err != nil {
					return err
				}
				return printJSONOrTask(t)
			})
		},
	})
	tag.AddCommand(&cobra.Command{
		Use:   "detach <task-id> <tag-id>",
		Short: "Detach a tag from a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			tagID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UntagTask(ctx, taskID, tagID)
				if err != nil {
					return err
				}
				return printJSONOrTask(t)
			})
		},
	})
	return tag
}

func commentCmd() *cobra.Command {
	comment := &cobra.Command{Use: "comment", Short: "Manage task comments"}
	comment.AddCommand(&cobra.Command{
		Use:   "add <task-id> <message>",
		Short: "Add a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.AddComment(ctx, id, args[1])
				if err != nil {
					return err
				}
				return printJSONOrValue(c)
			})
		},
	})
	comment.AddCommand(&cobra.Command{
		Use:   "edit <id> <message>",
		Short: "Edit a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.EditComment(ctx, id, args[1])
				if err != nil {
					return err
				}
				return printJSONOrValue(c)
			})
		},
	})
	comment.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteComment(ctx, id)
			})
		},
	})
	return comment
}

func metricsCmd() *cobra.Command {
	var start, end string
	var tags []string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Worked-time summary",
		Long:  "Sums closed work intervals over a date range, clipped to the range bounds, with a per-day breakdown. Defaults to the last seven days.",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			startT := now.AddDate(0, 0, -7)
			endT := now
			var err error
			if start != "" {
				if startT, err = time.Parse(time.RFC3339, start); err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
			}
			if end != "" {
				if endT, err = time.Parse(time.RFC3339, end); err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.Metrics(ctx, startT, endT, tags)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				fmt.Printf("Range: %s .. %s\n", report.Start, report.End)
				fmt.Printf("Tasks started: %d, completed: %d, worked: %d\n",
					report.Summary.TasksStarted, report.Summary.TasksCompleted, report.Summary.TasksWorked)
				fmt.Printf("Hours worked: %.2f\n", report.Summary.HoursWorked)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Day", "Hours"})
				for _, b := range report.Buckets {
					tw.AppendRow(table.Row{b.Start.Format("2006-01-02"), fmt.Sprintf("%.2f", b.Hours)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "range start (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "range end (RFC 3339)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "restrict to tasks carrying this tag (repeatable)")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the change log"}
	var n int64
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.RecentEvents(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrValue(events)
			})
		},
	}
	tail.Flags().Int64Var(&n, "n", 20, "number of events")
	log.AddCommand(tail)
	return log
}

func settingsCmd() *cobra.Command {
	settings := &cobra.Command{Use: "settings", Short: "Manage workspace settings"}
	settings.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrValue(s)
		},
	})
	settings.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			s := config.Default()
			if err := s.Save(workspace); err != nil {
				return err
			}
			fmt.Println("wrote", config.Path(workspace))
			return nil
		},
	})
	return settings
}

func apikeyCmd() *cobra.Command {
	apikey := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		Long:  "Prints the key secret exactly once; only its hash is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, secret, err := e.CreateAPIKey(ctx, name)
				if err != nil {
					return err
				}
				return printJSONOrValue(map[string]string{
					"id":   key.ID,
					"name": key.Name,
					"key":  secret,
				})
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "key name")
	apikey.AddCommand(create)
	apikey.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.ListAPIKeys(ctx)
				if err != nil {
					return err
				}
				return printJSONOrValue(keys)
			})
		},
	})
	apikey.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteAPIKey(ctx, args[0])
			})
		},
	})
	return apikey
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			actx, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer actx.Close()
			if addr == "" {
				addr = actx.Settings.Server.Addr
			}
			authCfg := server.AuthConfig{
				JWTSecret:  actx.Settings.Server.JWTSecret,
				AllowLocal: actx.Settings.Server.AllowLocal,
			}
			if secret := os.Getenv("TIMEKEEP_JWT_SECRET"); secret != "" {
				authCfg.JWTSecret = secret
			}
			handler, err := server.New(server.Config{Engine: actx.Engine, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving TimeKeep API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to settings)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	actx, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer actx.Close()
	return fn(ctx, actx.Engine)
}

func parseID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &t, nil
}

func parseBounds(start, end string) (time.Time, time.Time, error) {
	startT, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
	}
	endT, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
	}
	return startT, endT, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSONOrValue(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSONOrTask(t domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(t)
	}
	fmt.Printf("#%d %s [%s]\n", t.ID, t.Title, t.Status.Display())
	if t.Description != "" {
		fmt.Println(t.Description)
	}
	fmt.Printf("Elapsed: %s\n", timespan.FromSeconds(t.ElapsedDuration))
	if t.EstimatedDuration != nil {
		fmt.Printf("Estimated: %s\n", timespan.FromSeconds(*t.EstimatedDuration))
	}
	if t.ScheduledStart != nil {
		fmt.Printf("Scheduled start: %s\n", *t.ScheduledStart)
	}
	if t.ScheduledComplete != nil {
		fmt.Printf("Scheduled completion: %s\n", *t.ScheduledComplete)
	}
	if t.ActualStart != nil {
		fmt.Printf("Actual start: %s\n", *t.ActualStart)
	}
	if t.ActualComplete != nil {
		fmt.Printf("Actual completion: %s\n", *t.ActualComplete)
	}
	if len(t.Tags) > 0 {
		values := make([]string, 0, len(t.Tags))
		for _, tag := range t.Tags {
			values = append(values, tag.Value)
		}
		fmt.Printf("Tags: %s\n", strings.Join(values, ", "))
	}
	for _, c := range t.Comments {
		fmt.Printf("  [%s] %s\n", c.Created, c.Message)
	}
	return nil
}
