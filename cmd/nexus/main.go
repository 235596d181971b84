// Package main provides the nexus CLI: a single-binary agent execution
// substrate wiring the policy arbiter, tool registry, conversation engine,
// and coordinator over a configured set of LLM model slots.
//
// # Basic Usage
//
//	nexus run "summarize the README"
//	nexus chat
//	nexus coordinate "refactor the auth package and add tests"
//	nexus skills list
//
// Configuration is read from a TOML file (--config, default nexus.toml);
// model-slot API keys may also come from <NAME>_API_KEY environment
// variables, so they never need to live in the file.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nexusagent/core/internal/agent"
	"github.com/nexusagent/core/internal/config"
	"github.com/nexusagent/core/internal/coordinator"
	"github.com/nexusagent/core/internal/observability"
	"github.com/nexusagent/core/internal/policy"
	"github.com/nexusagent/core/internal/providers"
	"github.com/nexusagent/core/internal/skills"
	"github.com/nexusagent/core/internal/terminal"
	"github.com/nexusagent/core/internal/toolcall"
	"github.com/nexusagent/core/internal/tools/control"
	"github.com/nexusagent/core/internal/tools/exec"
	"github.com/nexusagent/core/internal/tools/files"
	toolterm "github.com/nexusagent/core/internal/tools/terminal"
	"github.com/nexusagent/core/pkg/models"
)

var (
	configPath     string
	workspaceFlag  string
	modelFlag      string
	rosterFlag     string
	allowAll       bool
	nonInteractive bool
)

func main() {
	root := &cobra.Command{
		Use:   "nexus",
		Short: "Agent execution substrate: tool-calling loop, policy arbiter, PTY terminals",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "nexus.toml", "path to the TOML config file")
	root.PersistentFlags().StringVar(&workspaceFlag, "workspace", "", "workspace root (overrides config)")
	root.PersistentFlags().StringVar(&modelFlag, "model", "", "model slot to use for this turn (default: first configured slot)")
	root.PersistentFlags().BoolVar(&allowAll, "allow-all", false, "policy arbiter default-allows unmatched actions instead of asking")
	root.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", true, "degrade Ask decisions to Deny instead of prompting")

	root.AddCommand(newRunCmd(), newChatCmd(), newCoordinateCmd(), newSkillsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run a single turn against the agentic loop and print the final message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signalContext()
			defer cancel()

			state := &models.ConversationState{ID: uuid.NewString(), Model: app.defaultModel}
			result, err := app.loop.Run(ctx, state, args[0])
			if err != nil {
				return err
			}
			printFinal(result)
			return nil
		},
	}
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive REPL against the agentic loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signalContext()
			defer cancel()

			state := &models.ConversationState{ID: uuid.NewString(), Model: app.defaultModel}
			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
			fmt.Println("nexus chat — Ctrl+D to exit")
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				result, err := app.loop.Run(ctx, state, line)
				if err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
					continue
				}
				printFinal(result)
			}
		},
	}
}

func newCoordinateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coordinate [request]",
		Short: "Plan a request across the agent roster and dispatch it (C9)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap()
			if err != nil {
				return err
			}
			defer app.Close()

			roster, err := coordinator.LoadRoster(rosterFlag)
			if err != nil {
				return fmt.Errorf("load agent roster: %w", err)
			}
			coord := coordinator.NewCoordinator(app.loop.Provider, app.loop.Registry, roster, app.loop.Config)

			ctx, cancel := signalContext()
			defer cancel()

			report, err := coord.Dispatch(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(report.Summary)
			if len(report.FilesTouched) > 0 {
				fmt.Fprintf(os.Stderr, "files touched: %s\n", strings.Join(report.FilesTouched, ", "))
			}
			for _, e := range report.Errors {
				fmt.Fprintln(os.Stderr, "error:", e)
			}
			fmt.Fprintf(os.Stderr, "[%d+%d tokens, %s]\n", report.InputTokens, report.OutputTokens, report.WallTime)
			return nil
		},
	}
	cmd.Flags().StringVar(&rosterFlag, "roster", "", "path to an agent roster YAML file (default: internal/coordinator/agents.default.yaml)")
	return cmd
}

func newSkillsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "skills", Short: "Inspect the skill library"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List skills eligible for this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap()
			if err != nil {
				return err
			}
			defer app.Close()
			if app.skillsManager == nil {
				fmt.Println("no skill sources configured")
				return nil
			}
			for _, e := range app.skillsManager.ListEligible() {
				fmt.Printf("%-24s %s\n", e.Name, e.Description)
			}
			return nil
		},
	})
	return cmd
}

func printFinal(result *agent.RunResult) {
	content := ""
	if len(result.State.Messages) > 0 {
		content = result.State.Messages[len(result.State.Messages)-1].Content
	}
	fmt.Println(content)
	fmt.Fprintf(os.Stderr, "[%s: %d iterations, %d tool calls, %d+%d tokens]\n",
		result.StopReason, result.Iterations, result.ToolCalls, result.InputTokens, result.OutputTokens)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// app holds every wired collaborator for one CLI invocation.
type app struct {
	loop          *agent.AgenticLoop
	skillsManager *skills.Manager
	defaultModel  string
	logger        *observability.Logger
}

func (a *app) Close() {
	if a.skillsManager != nil {
		_ = a.skillsManager.Close()
	}
}

// bootstrap reads config, builds the policy arbiter, tool registry,
// providers, and the conversation engine, wiring every C1-C9 component
// together exactly once per invocation.
func bootstrap() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if workspaceFlag != "" {
		cfg.Workspace = workspaceFlag
	}
	if cfg.Workspace == "" {
		cfg.Workspace = "."
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	arbiter := policy.NewArbiter(allowAll, nonInteractive)
	if cfg.PolicyFile != "" {
		if rules, err := policy.LoadFile(cfg.PolicyFile); err == nil {
			arbiter.Load(rules)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load policy file: %w", err)
		}
	}

	provider, defaultModel, err := buildProviderRouter(cfg)
	if err != nil {
		return nil, err
	}
	if modelFlag != "" {
		defaultModel = modelFlag
	}

	registry := agent.NewToolRegistry()
	filesCfg := files.Config{Workspace: cfg.Workspace, Arbiter: arbiter}
	registry.Register(files.NewOpenFileTool(filesCfg))
	registry.Register(files.NewReadFileTool(filesCfg))
	registry.Register(files.NewWriteFileTool(filesCfg))
	registry.Register(files.NewEditFileTool(filesCfg))
	registry.Register(files.NewListFilesTool(filesCfg))
	registry.Register(files.NewSearchFilesTool(filesCfg))
	registry.Register(files.NewApplyPatchTool(filesCfg))

	execManager := exec.NewManager(cfg.Workspace)
	registry.Register(exec.NewRunCommandTool(execManager, arbiter))
	registry.Register(exec.NewProcessTool(execManager))

	termMgr := terminal.NewDefaultManager()
	ptyToolset := &toolterm.Toolset{Manager: termMgr, Arbiter: arbiter, WorkDir: cfg.Workspace}
	for _, t := range ptyToolset.Tools() {
		registry.Register(t)
	}

	todoStore := &control.TodoStore{}
	registry.Register(control.NewTodoWriteTool(todoStore))
	registry.Register(control.NewTodoListTool(todoStore))

	modelSwitch := &agent.ModelSwitch{}
	registry.Register(control.NewSwitchModelTool(cfg, modelSwitch))

	iterationGrant := &agent.IterationGrant{}
	registry.Register(control.NewRequestMoreIterationsTool(cfg.Iteration, iterationGrant))

	planStore := control.NewPlanStore()
	registry.Register(control.NewPlanEditsTool(filesCfg, planStore))
	registry.Register(control.NewApplyEditPlanTool(filesCfg, planStore))

	var skillsManager *skills.Manager
	if len(cfg.SkillDirs) > 0 {
		skillsManager, err = skills.NewManager(&skills.SkillsConfig{}, cfg.Workspace, nil)
		if err != nil {
			return nil, fmt.Errorf("init skills manager: %w", err)
		}
		if err := skillsManager.Discover(context.Background()); err != nil {
			logger.Warn(context.Background(), "skill discovery failed", slog.String("error", err.Error()))
		}
		if err := skillsManager.RefreshEligible(); err != nil {
			logger.Warn(context.Background(), "skill eligibility refresh failed", slog.String("error", err.Error()))
		}
		registry.Register(control.NewListSkillsTool(skillsManager))
		registry.Register(control.NewLoadSkillTool(skillsManager))
		registry.Register(control.NewFindRelevantSkillsTool(skillsManager))
	}

	registry.Register(control.NewSubagentTool(provider, registry, cfg, arbiter))

	validator := toolcall.NewValidator(registry, nil, "")
	compactor := agent.NewHistoryCompactor(provider, defaultModel, cfg.Compaction)

	loop := &agent.AgenticLoop{
		Provider:       provider,
		Registry:       registry,
		Executor:       agent.NewExecutor(registry, nil),
		Validator:      validator,
		Compactor:      compactor,
		Config:         cfg,
		IterationGrant: iterationGrant,
		ModelSwitch:    modelSwitch,
	}

	return &app{loop: loop, skillsManager: skillsManager, defaultModel: defaultModel, logger: logger}, nil
}

// providerRouter dispatches Chat/StreamChat to whichever configured model
// slot's provider a request names, so one AgenticLoop can serve every slot
// switch_model might select.
type providerRouter struct {
	byModel map[string]agent.LLMProvider
	byName  agent.LLMProvider
}

func (r *providerRouter) resolve(model string) agent.LLMProvider {
	if p, ok := r.byModel[model]; ok {
		return p
	}
	return r.byName
}

func (r *providerRouter) Chat(ctx context.Context, req *agent.ChatRequest) (*agent.ChatResponse, error) {
	return r.resolve(req.Model).Chat(ctx, req)
}

func (r *providerRouter) StreamChat(ctx context.Context, req *agent.ChatRequest) (<-chan *agent.ChatChunk, error) {
	return r.resolve(req.Model).StreamChat(ctx, req)
}

func (r *providerRouter) Name() string { return "router" }

func (r *providerRouter) Models() []agent.Model {
	var out []agent.Model
	seen := map[string]bool{}
	for name, p := range r.byModel {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, p.Models()...)
	}
	return out
}

func (r *providerRouter) SupportsTools() bool { return true }

// buildProviderRouter constructs one LLMProvider per configured model slot
// and returns a router dispatching by ChatRequest.Model, plus the name of
// the first configured slot as the turn's default.
func buildProviderRouter(cfg *config.Config) (agent.LLMProvider, string, error) {
	if len(cfg.Models) == 0 {
		return nil, "", fmt.Errorf("no model slots configured; add at least one [[models]] entry")
	}

	router := &providerRouter{byModel: make(map[string]agent.LLMProvider, len(cfg.Models))}
	for _, slot := range cfg.Models {
		provider, err := buildProvider(slot)
		if err != nil {
			return nil, "", fmt.Errorf("model slot %q: %w", slot.Name, err)
		}
		router.byModel[slot.Name] = provider
	}
	router.byName = router.byModel[cfg.Models[0].Name]
	return router, cfg.Models[0].Name, nil
}

func buildProvider(slot config.ModelSlot) (agent.LLMProvider, error) {
	switch slot.Backend {
	case "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       slot.APIKey,
			BaseURL:      slot.BaseURL,
			DefaultModel: slot.Model,
		})
	case "openai":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:       slot.APIKey,
			BaseURL:      slot.BaseURL,
			DefaultModel: slot.Model,
			ProviderName: "openai",
		})
	case "llamacpp":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:       slot.APIKey,
			BaseURL:      slot.BaseURL,
			DefaultModel: slot.Model,
			ProviderName: "llamacpp",
		})
	default:
		return nil, fmt.Errorf("unknown backend %q (want anthropic, openai, or llamacpp)", slot.Backend)
	}
}
