package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hangarline/internal/app"
	"hangarline/internal/config"
	"hangarline/internal/db"
	"hangarline/internal/domain"
	"hangarline/internal/engine"
	"hangarline/internal/ledger"
	"hangarline/internal/migrate"
	"hangarline/internal/projector"
	"hangarline/internal/repo"
	"hangarline/internal/server"
	"hangarline/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "hl",
	Short: "Hangarline CLI",
	Long: `Hangarline tracks labor on MRO work-order findings.
Technicians start and stop timed sessions against a finding; several can work
the same finding at once after an explicit join. Stopping the last session
forces a disposition (ON_HOLD or CLOSED), and closing requires evidence unless
the workspace policy says otherwise. Every session lives in an append-only
ledger; status and timers are replayed from it, never stored.`,
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
	viper.SetEnvPrefix("HANGARLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("workorder", "", "work order uid or number (defaults to the only one on file)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("workorder", rootCmd.PersistentFlags().Lookup("workorder"))
}

func registerCommands() {
	rootCmd.AddCommand(woCmd())
	rootCmd.AddCommand(findingCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
}

func woCmd() *cobra.Command {
	wo := &cobra.Command{Use: "wo", Short: "Manage work orders"}
	wo.AddCommand(woCreateCmd())
	wo.AddCommand(woListCmd())
	wo.AddCommand(woShowCmd())
	return wo
}

func woCreateCmd() *cobra.Command {
	var number, registration, customer, partDesc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a work order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wo, err := e.CreateWorkOrder(ctx, engine.WorkOrderCreateOptions{
					Number:       number,
					Registration: registration,
					Customer:     customer,
					PartDesc:     partDesc,
					ActorID:      "local-user",
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(wo)
			})
		},
	}
	cmd.Flags().StringVar(&number, "number", "", "work order number (required)")
	cmd.Flags().StringVar(&registration, "registration", "", "aircraft registration")
	cmd.Flags().StringVar(&customer, "customer", "", "customer name")
	cmd.Flags().StringVar(&partDesc, "part-desc", "", "part description")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func woListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List work orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListWorkOrders(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.AppendHeader(table.Row{"UID", "NUMBER", "A/C", "CUSTOMER", "CREATED"})
				for _, wo := range items {
					tw.AppendRow(table.Row{wo.UID, wo.Header.Number, wo.Header.Registration, wo.Header.Customer, wo.CreatedAt})
				}
				fmt.Println(tw.Render())
				return nil
			})
		},
	}
}

func woShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [workorder]",
		Short: "Show a work order with live finding status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override := viper.GetString("workorder")
			if len(args) > 0 {
				override = args[0]
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wo, err := app.ResolveWorkOrder(ctx, override, e.Repo)
				if err != nil {
					return err
				}
				findings, err := e.Repo.ListFindings(ctx, wo.UID)
				if err != nil {
					return err
				}
				events := map[string][]domain.SessionEvent{}
				for _, f := range findings {
					evs, err := e.Repo.ListSessionEvents(ctx, f.ID)
					if err != nil {
						return err
					}
					events[f.ID] = evs
				}
				snaps := projector.Snapshot(findings, events, e.Now())
				if viper.GetBool("json") {
					return printJSON(map[string]any{"workorder": wo, "findings": snaps})
				}
				printHeader(wo)
				tw := table.NewWriter()
				tw.AppendHeader(table.Row{"#", "STATUS", "FINDING", "EVIDENCE", "ACTIVE"})
				for _, s := range snaps {
					parts := make([]string, 0, len(s.Timers))
					for _, tr := range s.Timers {
						parts = append(parts, fmt.Sprintf("%s %s %s", tr.Employee, tr.TaskCode, tr.Elapsed))
					}
					evidence := ""
					if s.HasEvidence {
						evidence = "yes"
					}
					tw.AppendRow(table.Row{s.Num, s.DisplayStatus, s.Description, evidence, strings.Join(parts, "  ")})
				}
				fmt.Println(tw.Render())
				return nil
			})
		},
	}
}

func printHeader(wo domain.WorkOrder) {
	h := wo.Header
	fmt.Printf("%s  A/C %s  %s\n", h.Number, h.Registration, h.Customer)
	if h.PartDesc != "" {
		fmt.Println(h.PartDesc)
	}
}

func findingCmd() *cobra.Command {
	f := &cobra.Command{Use: "finding", Short: "Manage findings"}
	f.AddCommand(findingAddCmd())
	f.AddCommand(findingShowCmd())
	f.AddCommand(findingCloseCmd())
	return f
}

func findingAddCmd() *cobra.Command {
	var desc, action string
	var materials []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a finding to the work order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wo, err := app.ResolveWorkOrder(ctx, viper.GetString("workorder"), e.Repo)
				if err != nil {
					return err
				}
				mats, err := parseMaterials(materials)
				if err != nil {
					return err
				}
				f, err := e.AddFinding(ctx, engine.FindingCreateOptions{
					WorkOrderUID: wo.UID,
					Description:  desc,
					Action:       action,
					Materials:    mats,
					ActorID:      "local-user",
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(f)
			})
		},
	}
	cmd.Flags().StringVar(&desc, "desc", "", "finding description (required)")
	cmd.Flags().StringVar(&action, "action", "", "corrective action")
	cmd.Flags().StringArrayVar(&materials, "material", nil, "material as name:qty (repeatable)")
	_ = cmd.MarkFlagRequired("desc")
	return cmd
}

func parseMaterials(specs []string) ([]domain.Material, error) {
	mats := make([]domain.Material, 0, len(specs))
	for _, s := range specs {
		name := s
		qty := 1
		if i := strings.LastIndex(s, ":"); i >= 0 {
			name = s[:i]
			if _, err := fmt.Sscanf(s[i+1:], "%d", &qty); err != nil {
				return nil, fmt.Errorf("invalid material %q, want name:qty", s)
			}
		}
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid material %q, want name:qty", s)
		}
		mats = append(mats, domain.Material{Name: name, Qty: qty})
	}
	return mats, nil
}

func findingShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <finding>",
		Short: "Show a finding with sessions and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f, err := resolveFinding(ctx, e.Repo, args[0])
				if err != nil {
					return err
				}
				evs, err := e.Repo.ListSessionEvents(ctx, f.ID)
				if err != nil {
					return err
				}
				active := projector.Timers(evs, e.Now())
				history := ledger.History(evs)
				if viper.GetBool("json") {
					return printJSON(map[string]any{"finding": f, "active": active, "history": history})
				}
				fmt.Printf("#%d [%s] %s\n", f.Num, ledger.DisplayStatus(f.Status, evs), f.Description)
				if f.Action != "" {
					fmt.Println("action:", f.Action)
				}
				for _, m := range f.Materials {
					fmt.Printf("material: %s x%d\n", m.Name, m.Qty)
				}
				for _, tr := range active {
					fmt.Printf("active: %s %s %s\n", tr.Employee, tr.TaskCode, tr.Elapsed)
				}
				return nil
			})
		},
	}
}

func findingCloseCmd() *cobra.Command {
	var evidencePath string
	var skip bool
	cmd := &cobra.Command{
		Use:   "close <finding>",
		Short: "Close a finding, attaching evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f, err := resolveFinding(ctx, e.Repo, args[0])
				if err != nil {
					return err
				}
				evidence, err := readEvidence(evidencePath)
				if err != nil {
					return err
				}
				closed, err := e.CloseFinding(ctx, f.ID, evidence, skip, "local-user")
				if err != nil {
					return err
				}
				return printJSONOrTable(closed)
			})
		},
	}
	cmd.Flags().StringVar(&evidencePath, "evidence", "", "path to an evidence image")
	cmd.Flags().BoolVar(&skip, "skip-evidence", false, "close without evidence (policy permitting)")
	return cmd
}

func startCmd() *cobra.Command {
	var emp, task string
	var join bool
	cmd := &cobra.Command{
		Use:   "start <finding>",
		Short: "Start a labor session on a finding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f, err := resolveFinding(ctx, e.Repo, args[0])
				if err != nil {
					return err
				}
				intent := engine.StartCommand{FindingID: f.ID, Employee: emp, TaskCode: task}
				prop, err := e.ProposeStart(ctx, intent)
				if err != nil {
					return err
				}
				confirmed := join
				if prop.RequiresJoinConfirm && !confirmed {
					fmt.Printf("active on this finding: %s\n", strings.Join(prop.ActiveEmployees, ", "))
					confirmed = promptYesNo("join and work in parallel?")
					if !confirmed {
						fmt.Println("start cancelled")
						return nil
					}
				}
				updated, err := e.CommitStart(ctx, intent, confirmed)
				if err != nil {
					return err
				}
				fmt.Printf("session started: %s on #%d (%s)\n", emp, updated.Num, task)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&emp, "emp", "", "employee id (required)")
	cmd.Flags().StringVar(&task, "task", "", "task code (required)")
	cmd.Flags().BoolVar(&join, "join", false, "confirm joining when others are active")
	_ = cmd.MarkFlagRequired("emp")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func stopCmd() *cobra.Command {
	var emp, finalStatus, evidencePath string
	var skip bool
	cmd := &cobra.Command{
		Use:   "stop <finding>",
		Short: "Stop a labor session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f, err := resolveFinding(ctx, e.Repo, args[0])
				if err != nil {
					return err
				}
				prop, err := e.ProposeStop(ctx, engine.StopCommand{FindingID: f.ID, Employee: emp})
				if err != nil {
					return err
				}
				target := emp
				if prop.RequiresTargetSelect && target == "" {
					fmt.Println("several sessions active:")
					for _, c := range prop.Candidates {
						fmt.Printf("  %s (%s)\n", c.Employee, c.TaskCode)
					}
					target = promptLine("employee to stop: ")
					if target == "" {
						fmt.Println("stop cancelled")
						return nil
					}
					prop, err = e.ProposeStop(ctx, engine.StopCommand{FindingID: f.ID, Employee: target})
					if err != nil {
						return err
					}
				}
				status := finalStatus
				if prop.LastStop && status == "" {
					status = promptFinalStatus()
				}
				evidence, err := readEvidence(evidencePath)
				if err != nil {
					return err
				}
				skipEvidence := skip
				if status == domain.StatusClosed && len(evidence) == 0 && !skipEvidence {
					if path := promptLine("evidence image path (empty to skip): "); path != "" {
						if evidence, err = readEvidence(path); err != nil {
							return err
						}
					}
				}
				updated, ev, err := e.CommitStop(ctx, engine.StopOptions{
					FindingID:    f.ID,
					Employee:     target,
					FinalStatus:  status,
					Evidence:     evidence,
					SkipEvidence: skipEvidence,
				})
				if errors.Is(err, engine.ErrEvidenceRequired) && status == domain.StatusClosed {
					// Evidence flow abandoned: the finding goes on hold and can
					// be closed later with 'hl finding close'.
					updated, ev, err = e.CommitStop(ctx, engine.StopOptions{
						FindingID:   f.ID,
						Employee:    target,
						FinalStatus: domain.StatusOnHold,
					})
					if err == nil {
						fmt.Println("no evidence attached; finding placed ON_HOLD (close it later with 'hl finding close')")
					}
				}
				if err != nil {
					return err
				}
				fmt.Printf("session stopped: %s, %s worked, finding %s\n",
					ev.Employee, projector.FormatElapsed(derefSecs(ev.DurationSecs)), updated.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&emp, "emp", "", "employee id (required when several are active)")
	cmd.Flags().StringVar(&finalStatus, "final-status", "", "ON_HOLD or CLOSED, required on the last stop")
	cmd.Flags().StringVar(&evidencePath, "evidence", "", "path to an evidence image for closure")
	cmd.Flags().BoolVar(&skip, "skip-evidence", false, "close without evidence (policy permitting)")
	return cmd
}

func derefSecs(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <finding>",
		Short: "Completed work records for a finding, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f, err := resolveFinding(ctx, e.Repo, args[0])
				if err != nil {
					return err
				}
				recs, err := e.FindingHistory(ctx, f.ID)
				if err != nil {
					return err
				}
				for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
					recs[i], recs[j] = recs[j], recs[i]
				}
				if viper.GetBool("json") {
					return printJSON(recs)
				}
				var total int64
				tw := table.NewWriter()
				tw.AppendHeader(table.Row{"EMPLOYEE", "TASK", "START", "STOP", "WORKED", "STATUS"})
				for _, r := range recs {
					total += r.DurationSecs
					tw.AppendRow(table.Row{r.Employee, r.TaskCode, r.StartedAt, r.StoppedAt, projector.FormatElapsed(r.DurationSecs), r.ResultingStatus})
				}
				tw.AppendFooter(table.Row{"", "", "", "", projector.FormatElapsed(total), ""})
				fmt.Println(tw.Render())
				return nil
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [workorder]",
		Short: "Summary of finding statuses",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override := viper.GetString("workorder")
			if len(args) > 0 {
				override = args[0]
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				wo, err := app.ResolveWorkOrder(ctx, override, r)
				if err != nil {
					return err
				}
				counts, err := r.CountFindingsByStatus(ctx, wo.UID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"workorder": wo.Header.Number, "counts": counts})
				}
				printHeader(wo)
				for _, status := range []string{domain.StatusOpen, domain.StatusInProgress, domain.StatusOnHold, domain.StatusClosed} {
					fmt.Printf("%-12s %d\n", status, counts[status])
				}
				return nil
			})
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [workorder]",
		Short: "Live view with running session timers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override := viper.GetString("workorder")
			if len(args) > 0 {
				override = args[0]
			}
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			wo, err := app.ResolveWorkOrder(cmd.Context(), override, r)
			if err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			return tui.Run(r, cfg, wo.UID)
		},
	}
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Audit log"}
	var limit int
	var evtType string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Latest audit events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var woUID string
				if override := viper.GetString("workorder"); override != "" {
					wo, err := app.ResolveWorkOrder(ctx, override, r)
					if err != nil {
						return err
					}
					woUID = wo.UID
				}
				evs, err := r.LatestEvents(ctx, limit, woUID, evtType, "", "")
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evs)
				}
				tw := table.NewWriter()
				tw.AppendHeader(table.Row{"TS", "TYPE", "ENTITY", "ACTOR", "PAYLOAD"})
				for _, ev := range evs {
					tw.AppendRow(table.Row{ev.TS, ev.Type, ev.EntityID, ev.ActorID, ev.Payload})
				}
				fmt.Println(tw.Render())
				return nil
			})
		},
	}
	tail.Flags().IntVar(&limit, "limit", 20, "number of events")
	tail.Flags().StringVar(&evtType, "type", "", "filter by event type")
	log.AddCommand(tail)
	return log
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				handler, err := server.New(server.Config{Engine: e})
				if err != nil {
					return err
				}
				fmt.Println("listening on", addr)
				return http.ListenAndServe(addr, handler)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	})
	return cfg
}

func resolveFinding(ctx context.Context, r repo.Repo, ref string) (domain.Finding, error) {
	wo, err := app.ResolveWorkOrder(ctx, viper.GetString("workorder"), r)
	if err != nil {
		return domain.Finding{}, err
	}
	return app.ResolveFinding(ctx, wo.UID, ref, r)
}

func readEvidence(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evidence: %w", err)
	}
	return data, nil
}

func promptYesNo(question string) bool {
	ans := strings.ToLower(promptLine(question + " [y/N]: "))
	return ans == "y" || ans == "yes"
}

func promptLine(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func promptFinalStatus() string {
	for {
		ans := strings.ToUpper(promptLine("last session on this finding; final status [1] ON_HOLD [2] CLOSED: "))
		switch ans {
		case "1", domain.StatusOnHold:
			return domain.StatusOnHold
		case "2", domain.StatusClosed:
			return domain.StatusClosed
		case "":
			return ""
		}
	}
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
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
