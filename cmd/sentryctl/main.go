// Command sentryctl is the operational front-end for the agent
// orchestration core: it runs tasks, lists and decides pending
// approvals, and toggles the emergency stop.
//
// Usage:
//
//	sentryctl execute "list all containers" --env production
//	sentryctl approve list --status pending
//	sentryctl approve approve <id> --note "looks safe"
//	sentryctl stop activate "ops drill"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/sentry/internal/agentrt"
	"github.com/haasonsaas/sentry/internal/agents"
	"github.com/haasonsaas/sentry/internal/authbroker"
	"github.com/haasonsaas/sentry/internal/config"
	"github.com/haasonsaas/sentry/internal/costtrack"
	"github.com/haasonsaas/sentry/internal/estop"
	"github.com/haasonsaas/sentry/internal/factledger"
	"github.com/haasonsaas/sentry/internal/governance"
	"github.com/haasonsaas/sentry/internal/llm"
	"github.com/haasonsaas/sentry/internal/observability"
	"github.com/haasonsaas/sentry/internal/orchestrator"
	"github.com/haasonsaas/sentry/internal/router"
	"github.com/haasonsaas/sentry/internal/sanitize"
	"github.com/haasonsaas/sentry/internal/tools"
	"github.com/haasonsaas/sentry/internal/toolregistry"
	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

var (
	version = "dev"
	commit  = "none"
)

// app bundles every component main wires once, shared by every
// subcommand that needs to drive the orchestrator or inspect its state.
type app struct {
	cfg     *config.Config
	log     *observability.Logger
	stop    *estop.Switch
	gov     *governance.Engine
	store   governance.ApprovalStore
	ledger  *factledger.Ledger
	orch    *orchestrator.Orchestrator
	closers []func() error
}

// Close releases every resource buildApp opened: the emergency-stop
// file watcher and any bridged MCP server subprocesses. Closers run in
// reverse registration order; each error is logged and the remaining
// closers still run so one stuck subprocess doesn't leak the others.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("sentryctl: error closing resource", "error", err)
		}
	}
	_ = a.stop.Close()
}

func buildApp(cfgPath string) (*app, error) {
	_ = config.LoadEnvFile(".env")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("sentryctl: loading config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{Level: cfg.LogLevel, Format: "json"})
	san := sanitize.New(sanitize.Config{RedactIPs: cfg.Sanitizer.RedactIPs, MaxBytes: cfg.Sanitizer.MaxBytes})
	stop := estop.New(cfg.EmergencyStop.SentinelPath, logger.Slog())
	var store governance.ApprovalStore
	switch cfg.Governance.Backend {
	case "sqlite":
		var err error
		store, err = governance.NewSQLiteStore(cfg.Governance.ApprovalStorePath)
		if err != nil {
			return nil, fmt.Errorf("sentryctl: opening sqlite approval store: %w", err)
		}
	default:
		store = governance.NewFileStore(cfg.Governance.ApprovalStorePath)
	}
	gov := governance.New(store, nil, cfg.Governance.ApprovalTTL, logger.Slog())
	ledger := factledger.New(factledger.Config{Path: cfg.FactLedger.Path, MaxFileSize: cfg.FactLedger.MaxFileSize}, san)
	cost := costtrack.New(costtrack.Config{
		PerTaskCeiling: cfg.Budgets.MaxCostUSD,
		HourlyCeiling:  cfg.Budgets.HourlyCeiling,
		HistoryPath:    cfg.Budgets.CostHistoryPath,
	})

	llmReg := llm.NewRegistry()
	prices := map[string]costtrack.Price{}
	for name, p := range cfg.Providers {
		switch p.Kind {
		case "anthropic":
			prov, err := llm.NewAnthropicProvider(llm.AnthropicConfig{APIKey: p.APIKey, BaseURL: p.BaseURL, DefaultModel: p.Model})
			if err != nil {
				return nil, fmt.Errorf("sentryctl: provider %s: %w", name, err)
			}
			llmReg.Register(name, prov)
		case "openai":
			prov, err := llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: p.APIKey, BaseURL: p.BaseURL, DefaultModel: p.Model})
			if err != nil {
				return nil, fmt.Errorf("sentryctl: provider %s: %w", name, err)
			}
			llmReg.Register(name, prov)
		default:
			return nil, fmt.Errorf("sentryctl: provider %s: unknown kind %q", name, p.Kind)
		}
		prices[name+":"+p.Model] = costtrack.Price{Input: p.Input, Output: p.Output}
	}

	toolReg := toolregistry.New(cfg.Budgets.ToolTimeout)
	if err := tools.RegisterBuiltins(toolReg, tools.Config{Workspace: ".", Shell: ""}); err != nil {
		return nil, fmt.Errorf("sentryctl: registering builtin tools: %w", err)
	}

	broker := buildAuthBroker(cfg.Identities)
	if err := toolReg.Register(orchtypes.ToolSpec{
		Name: "check_auth", Description: "Check whether a named identity's credentials are already available.",
		InputSchema: tools.CheckAuthSchema, Risk: orchtypes.RiskGreen, Source: "builtin",
	}, tools.NewCheckAuthTool(broker), false); err != nil {
		return nil, fmt.Errorf("sentryctl: registering check_auth: %w", err)
	}

	var closers []func() error
	for _, mcpCfg := range cfg.MCP {
		closer, err := toolregistry.BridgeMCPServer(context.Background(), toolReg, toolregistry.MCPServerConfig{
			Name: mcpCfg.Name, Command: mcpCfg.Command, Args: mcpCfg.Args,
		})
		if err != nil {
			return nil, fmt.Errorf("sentryctl: bridging mcp server %s: %w", mcpCfg.Name, err)
		}
		closers = append(closers, closer)
	}

	priceLookup := func(provider, model string) costtrack.Price { return prices[provider+":"+model] }

	agentSpecs, descs := agents.Defaults("")
	rt := agentrt.New(llmReg, toolReg, gov, cost, stop, san, priceLookup, agentrt.Config{
		MaxIterations: cfg.Budgets.MaxIterations,
		MaxWallClock:  cfg.Budgets.MaxWallClock,
		LLMTimeout:    cfg.Budgets.LLMTimeout,
	}, logger.Slog())

	routingProvider, _ := llmReg.Get("")
	rtr := router.New(router.Config{
		DesignAgentID:  agents.Design,
		GeneralAgentID: agents.General,
		Provider:       routingProvider,
		SuccessRate:    func(agentID, _ string) float64 { return ledger.AgentSuccessRate(agentID) },
	}, logger.Slog())

	orch := orchestrator.New(orchestrator.Config{
		GeneralAgentID: agents.General,
		MaxIterations:  cfg.Budgets.MaxIterations,
		MaxWallClock:   cfg.Budgets.MaxWallClock,
		MaxCostUSD:     cfg.Budgets.MaxCostUSD,
	}, rtr, rt, agentSpecs, descs, ledger, stop, logger.Slog())

	return &app{cfg: cfg, log: logger, stop: stop, gov: gov, store: store, ledger: ledger, orch: orch, closers: closers}, nil
}

// buildAuthBroker wires each configured identity to its credential
// detection pattern. Unknown kinds are skipped rather than failing
// startup; check_auth then reports that identity as unknown (an error
// result), never as ready.
func buildAuthBroker(identities map[string]config.Identity) *authbroker.Broker {
	broker := authbroker.New()
	for name, id := range identities {
		switch id.Kind {
		case "host_inherited":
			broker.Register(name, authbroker.HostInherited{CredentialFile: id.CredentialFile, ProbeCmd: id.ProbeCmd})
		case "env_vault":
			broker.Register(name, authbroker.EnvVault{VarName: id.EnvVar, InstructHint: id.Hint})
		case "oauth_file":
			broker.Register(name, authbroker.OAuthFile{TokenPath: id.TokenFile, AuthURL: id.AuthURL})
		}
	}
	return broker
}

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:     "sentryctl",
		Short:   "Operate the agent orchestration core: execute tasks, decide approvals, toggle emergency stop.",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "sentry.yaml", "path to the orchestrator config file")

	root.AddCommand(newExecuteCmd(&cfgPath), newApproveCmd(&cfgPath), newStopCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newExecuteCmd(cfgPath *string) *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "execute <task_text>",
		Short: "Run a task to completion or to a pausing state (awaiting approval/input).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			result := a.orch.Execute(cmd.Context(), args[0], orchtypes.Environment(env))
			return printResultAndExit(result)
		},
	}
	cmd.Flags().StringVar(&env, "env", "dev", "task environment: dev|staging|production|local")
	return cmd
}

func printResultAndExit(result orchtypes.TaskResult) error {
	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
	switch result.Status {
	case orchtypes.TaskSucceeded:
		return nil
	case orchtypes.TaskAwaitingApproval, orchtypes.TaskAwaitingHumanInput:
		os.Exit(2)
	case orchtypes.TaskBudgetExhausted:
		os.Exit(3)
	case orchtypes.TaskStopped:
		os.Exit(4)
	default:
		os.Exit(1)
	}
	return nil
}

func newApproveCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{Use: "approve", Short: "Inspect and decide pending approvals."}
	cmd.AddCommand(
		newApproveListCmd(cfgPath),
		newApproveShowCmd(cfgPath),
		newApproveApproveCmd(cfgPath),
		newApproveRejectCmd(cfgPath),
	)
	return cmd
}

func newApproveListCmd(cfgPath *string) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List approvals, optionally filtered by status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			list, err := a.store.List(cmd.Context(), orchtypes.ApprovalStatus(status))
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(list, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter: pending|granted|denied|expired")
	return cmd
}

func newApproveShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one approval record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			rec, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(rec, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}
}

func newApproveApproveCmd(cfgPath *string) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Grant a pending approval. Idempotent: re-running on an already-granted id is a no-op success.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			existing, err := a.store.Get(cmd.Context(), args[0])
			if err == nil && existing.Status == orchtypes.ApprovalGranted {
				fmt.Println("already granted")
				return nil
			}
			rec, err := a.gov.Approve(cmd.Context(), args[0], "operator", note)
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(rec, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "operator note attached to the decision")
	return cmd
}

func newApproveRejectCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id> <reason>",
		Short: "Deny a pending approval with a reason.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			rec, err := a.gov.Deny(cmd.Context(), args[0], "operator", args[1])
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(rec, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}
}

func newStopCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{Use: "stop", Short: "Control the process-wide emergency stop."}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "activate [reason]",
			Short: "Trigger the emergency stop, in-process and via the sentinel file.",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(*cfgPath)
				if err != nil {
					return err
				}
				defer a.Close()
				reason := "manual"
				if len(args) == 1 {
					reason = args[0]
				}
				a.stop.Trigger(reason)
				path := a.cfg.EmergencyStop.SentinelPath
				if path == "" {
					path = ".emergency_stop"
				}
				return os.WriteFile(path, []byte(reason), 0o644)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether the emergency stop is set.",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(*cfgPath)
				if err != nil {
					return err
				}
				defer a.Close()
				reason, at := a.stop.Reason()
				fmt.Printf("set=%v reason=%q at=%s\n", a.stop.IsSet(), reason, at)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Clear the emergency stop and remove the sentinel file.",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(*cfgPath)
				if err != nil {
					return err
				}
				defer a.Close()
				a.stop.Reset()
				path := a.cfg.EmergencyStop.SentinelPath
				if path == "" {
					path = ".emergency_stop"
				}
				_ = os.Remove(path)
				return nil
			},
		},
	)
	return cmd
}
