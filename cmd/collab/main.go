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
	"go.uber.org/zap"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/aggregate"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/api"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/config"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/dashboard"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/server"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/store"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/timer"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "collab",
	Short: "Auravisual collaboration dashboard client",
	Long: `collab is a terminal client for the Auravisual collaboration backend.
It renders role dashboards (admin, staff, client), tracks the work
timer on your tasks, and aggregates task statistics per project.
The backend is the source of truth; local state is limited to the
currently running timer session, reconciled on every refresh.`,
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
	viper.SetEnvPrefix("COLLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("base-url", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().String("token", "", "bearer token (overrides config)")
	rootCmd.PersistentFlags().String("actor-id", "", "actor identifier (overrides config)")
	rootCmd.PersistentFlags().String("role", "", "dashboard role: admin, staff or client")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("base-url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("role", rootCmd.PersistentFlags().Lookup("role"))
}

func registerCommands() {
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(timerCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

// app wires the services for one command invocation.
type app struct {
	Config     *config.Config
	Client     *api.Client
	Sessions   store.Sessions
	Controller *timer.Controller
	Resolver   *timer.Resolver
	Dashboards *dashboard.Service
	Log        *zap.Logger
}

func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = config.Default("")
	}
	if v := viper.GetString("base-url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := viper.GetString("token"); v != "" {
		cfg.Auth.Token = v
	}
	if v := viper.GetString("actor-id"); v != "" {
		cfg.Actor.ID = v
	}
	if v := viper.GetString("role"); v != "" {
		cfg.Actor.Role = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return err
	}
	conn, err := store.Open(store.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := store.Migrate(conn); err != nil {
		return err
	}
	client := api.New(cfg.API.BaseURL, api.StaticToken(cfg.Auth.Token))
	if cfg.API.TimeoutSeconds > 0 {
		client.Timeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second
	}
	sessions := store.Sessions{DB: conn}
	a := &app{
		Config:     cfg,
		Client:     client,
		Sessions:   sessions,
		Controller: timer.NewController(client, sessions, cfg.Actor.ID, log),
		Resolver:   timer.NewResolver(client, sessions, cfg.Actor.ID, log),
		Dashboards: dashboard.NewService(client, log),
		Log:        log,
	}
	return fn(ctx, a)
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Inspect your tasks",
	}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskStatsCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				var (
					tasks []domain.Task
					err   error
				)
				if activeOnly {
					tasks, err = a.Client.MyActiveTasks(ctx)
				} else {
					tasks, err = a.Client.MyTasks(ctx)
				}
				if err != nil {
					return err
				}
				if a.Config.Actor.Role == "client" {
					tasks = timer.MarkWorkedOn(tasks, a.Resolver.ProjectTimers(ctx))
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Action", "Status", "Priority", "Project", "Working"})
				for _, t := range tasks {
					working := ""
					if t.IsBeingWorkedOn {
						working = "yes"
					}
					tw.AppendRow(table.Row{t.ID, t.Action, t.Status, t.Priority, t.ProjectName, working})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active tasks")
	return cmd
}

func taskStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Per-project task statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				tasks, err := a.Client.MyTasks(ctx)
				if err != nil {
					return err
				}
				stats, unassigned := aggregate.ProjectStats(tasks, aggregate.Context{})
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"projects":         stats,
						"unassigned_tasks": unassigned,
					})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Project", "Active", "Completed", "Total", "Done %"})
				for _, s := range stats {
					name := s.ProjectName
					if name == "" {
						name = s.ProjectID
					}
					tw.AppendRow(table.Row{name, s.ActiveTasks, s.CompletedTasks, s.TotalTasks, fmt.Sprintf("%.1f", s.CompletionPercentage)})
				}
				tw.Render()
				if unassigned > 0 {
					fmt.Printf("%d task(s) without a resolvable project were not counted\n", unassigned)
				}
				return nil
			})
		},
	}
	return cmd
}

func timerCmd() *cobra.Command {
	t := &cobra.Command{
		Use:   "timer",
		Short: "Work timer",
		Long: `Start, pause, resume and stop the work timer on a task. The server
allows one active timer per user; starting a timer on another task
surfaces the conflict so you can stop the current one first.`,
	}
	t.AddCommand(timerStartCmd())
	t.AddCommand(timerStopCmd())
	t.AddCommand(timerPauseCmd())
	t.AddCommand(timerResumeCmd())
	t.AddCommand(timerStatusCmd())
	t.AddCommand(timerLogsCmd())
	return t
}

func timerStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <task-id>",
		Short: "Start timing a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				s, err := a.Controller.Start(ctx, args[0])
				if errors.Is(err, api.ErrAlreadyRunning) {
					return fmt.Errorf("%w; stop the current task first (collab timer stop)", err)
				}
				if err != nil {
					return err
				}
				return printSession(&s)
			})
		},
	}
	return cmd
}

func timerStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <task-id>",
		Short: "Stop timing a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if err := a.Controller.Stop(ctx, args[0]); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"stopped": args[0]})
				}
				fmt.Println("timer stopped")
				return nil
			})
		},
	}
	return cmd
}

func timerPauseCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "pause <task-id>",
		Short: "Pause the running timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				s, err := a.Controller.Pause(ctx, args[0], note)
				if err != nil {
					return err
				}
				return printSession(&s)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "annotation for the pause")
	return cmd
}

func timerResumeCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "resume <task-id>",
		Short: "Resume a paused timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				s, err := a.Controller.Resume(ctx, args[0], note)
				if err != nil {
					return err
				}
				return printSession(&s)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "annotation for the resume")
	return cmd
}

func timerStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current timer, reconciled against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				s := a.Resolver.Resolve(ctx)
				if viper.GetBool("json") {
					return printJSON(map[string]any{"session": s})
				}
				if s == nil {
					fmt.Println("no active timer")
					return nil
				}
				return printSession(s)
			})
		},
	}
	return cmd
}

func timerLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <task-id>",
		Short: "Historical time logs for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				logs, err := a.Client.TimeLogs(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(logs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Started", "Ended", "Minutes", "Note"})
				for _, l := range logs {
					tw.AppendRow(table.Row{l.StartedAt, l.EndedAt, l.Minutes, l.Note})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func dashboardCmd() *cobra.Command {
	d := &cobra.Command{
		Use:   "dashboard",
		Short: "Role dashboards",
	}
	d.AddCommand(dashboardAdminCmd())
	d.AddCommand(dashboardStaffCmd())
	d.AddCommand(dashboardClientCmd())
	return d
}

func dashboardAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Admin totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				summary, err := a.Dashboards.RefreshAdmin(ctx)
				if err != nil {
					return describeAccess(err)
				}
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				fmt.Printf("Projects: %d total, %d active, %d completed\n",
					summary.TotalProjects, summary.ActiveProjects, summary.CompletedProjects)
				fmt.Printf("Clients: %d  Staff: %d\n", summary.TotalClients, summary.TotalStaff)
				fmt.Printf("Open tickets: %d  Active tasks: %d\n", summary.OpenTickets, summary.ActiveTasks)
				return nil
			})
		},
	}
}

func dashboardStaffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "staff",
		Short: "Your workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				summary, err := a.Dashboards.RefreshStaff(ctx)
				if err != nil {
					return describeAccess(err)
				}
				session := a.Resolver.Resolve(ctx)
				if viper.GetBool("json") {
					return printJSON(map[string]any{"summary": summary, "session": session})
				}
				fmt.Printf("Active tasks: %d  Completed: %d  Projects: %d\n",
					summary.ActiveTasks, summary.CompletedTasks, summary.DistinctProjects)
				if session != nil {
					label := string(session.State)
					if session.Inferred {
						label += " (inferred)"
					}
					fmt.Printf("Timer: %s on %s since %s\n", label, session.TaskID, session.StartedAt)
				} else {
					fmt.Println("Timer: none")
				}
				return nil
			})
		},
	}
}

func dashboardClientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "client",
		Short: "Your projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				summary, err := a.Dashboards.RefreshClient(ctx)
				if err != nil {
					return describeAccess(err)
				}
				timers := a.Resolver.ProjectTimers(ctx)
				if viper.GetBool("json") {
					return printJSON(map[string]any{"summary": summary, "active_timers": timers})
				}
				fmt.Printf("Projects: %d  Open tickets: %d  Plan: %s\n",
					summary.TotalProjects, summary.OpenTickets, summary.PrimaryPlan)
				for _, name := range summary.ProjectNames {
					fmt.Printf("  - %s\n", name)
				}
				if len(timers) > 0 {
					fmt.Println("Being worked on right now:")
					for _, t := range timers {
						fmt.Printf("  %s (%s)\n", t.TaskAction, t.StaffName)
					}
				}
				return nil
			})
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Workspace configuration",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				shown := *a.Config
				if shown.Auth.Token != "" {
					shown.Auth.Token = "<redacted>"
				}
				return printJSON(shown)
			})
		},
	}
}

func configInitCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default collab.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(baseURL)), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "backend base URL")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve composed dashboards over a local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				handler, err := server.New(server.Config{
					Dashboards: a.Dashboards,
					Resolver:   a.Resolver,
					Controller: a.Controller,
					Tasks:      a.Client,
					BasePath:   basePath,
					Logger:     a.Log,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Log.Info("serving local dashboard API", zap.String("addr", addr), zap.String("base_path", basePath))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func describeAccess(err error) error {
	if errors.Is(err, api.ErrAccessDenied) {
		return fmt.Errorf("%w: this dashboard is not available for your role", err)
	}
	return err
}

func printSession(s *domain.TimerSession) error {
	if viper.GetBool("json") {
		return printJSON(s)
	}
	label := string(s.State)
	if s.Inferred {
		label += " (inferred)"
	}
	fmt.Printf("Task %s: %s since %s\n", s.TaskID, label, s.StartedAt)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
