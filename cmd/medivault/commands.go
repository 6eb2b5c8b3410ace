package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/skchakri/medi-vault/pkg/aitools"
	"github.com/skchakri/medi-vault/pkg/jobs"
	"github.com/skchakri/medi-vault/pkg/observability"
	"github.com/skchakri/medi-vault/pkg/workflow"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// withApp loads the config, builds the application and runs fn against it.
func withApp(cli *CLI, fn func(ctx context.Context, app *App) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	if _, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.Service,
	}); err != nil {
		return err
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

// ToolsCmd groups tool inspection and execution.
type ToolsCmd struct {
	List ToolsListCmd `cmd:"" help:"List the tool catalog."`
	Run  ToolsRunCmd  `cmd:"" help:"Run one tool with JSON arguments."`
}

// ToolsListCmd prints every cataloged tool.
type ToolsListCmd struct {
	JSON bool `help:"Print the catalog as JSON."`
}

func (c *ToolsListCmd) Run(cli *CLI) error {
	keys := aitools.Keys()

	if c.JSON {
		specs := make([]aitools.Spec, 0, len(keys))
		for _, key := range keys {
			spec, _ := aitools.Lookup(key)
			specs = append(specs, spec)
		}
		out, err := json.MarshalIndent(specs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	for _, key := range keys {
		spec, _ := aitools.Lookup(key)
		fmt.Printf("%s - %s\n", spec.Key, spec.Description)
		fmt.Printf("  inputs:  %s\n", strings.Join(spec.Inputs, ", "))
		fmt.Printf("  outputs: %s\n", strings.Join(spec.Outputs, ", "))
	}
	return nil
}

// ToolsRunCmd executes one tool.
type ToolsRunCmd struct {
	Key  string `arg:"" help:"Tool key from the catalog."`
	Args string `help:"Tool arguments as a JSON object." default:"{}"`
}

func (c *ToolsRunCmd) Run(cli *CLI) error {
	return withApp(cli, func(ctx context.Context, app *App) error {
		var args map[string]any
		if err := json.Unmarshal([]byte(c.Args), &args); err != nil {
			return fmt.Errorf("invalid --args JSON: %w", err)
		}

		result, err := app.Tools.Execute(ctx, c.Key, args)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	})
}

// AnalyzeCmd runs the certificate analysis pipeline for one credential.
type AnalyzeCmd struct {
	ID    int64 `arg:"" help:"Credential ID."`
	Queue bool  `help:"Run through the background job queue with retry."`
}

func (c *AnalyzeCmd) Run(cli *CLI) error {
	return withApp(cli, func(ctx context.Context, app *App) error {
		if c.Queue {
			app.Queue.Start(ctx)
			app.Queue.Enqueue(&jobs.AnalyzeCredentialJob{
				Pipeline:     app.Pipeline,
				CredentialID: c.ID,
			})
			app.Queue.Close()
			return nil
		}

		result, err := app.Pipeline.Run(ctx, c.ID)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	})
}

// WorkflowCmd groups workflow operations.
type WorkflowCmd struct {
	Validate WorkflowValidateCmd `cmd:"" help:"Validate a workflow document."`
	Save     WorkflowSaveCmd     `cmd:"" help:"Validate and store a workflow document."`
	List     WorkflowListCmd     `cmd:"" help:"List stored workflows."`
}

// WorkflowValidateCmd checks a workflow file against the document schema and
// reports lint findings.
type WorkflowValidateCmd struct {
	Path string `arg:"" help:"Path to the workflow JSON file." type:"path"`
}

func (c *WorkflowValidateCmd) Run(cli *CLI) error {
	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}

	w, err := workflow.ParseJSON(raw)
	if err != nil {
		return err
	}

	findings := w.Lint()
	if len(findings) == 0 {
		fmt.Printf("%s: valid (%d nodes, %d edges)\n", w.Name, len(w.Nodes), len(w.Edges))
		return nil
	}

	fmt.Printf("%s: valid with %d finding(s)\n", w.Name, len(findings))
	for _, finding := range findings {
		fmt.Printf("  - %s\n", finding)
	}
	return nil
}

// WorkflowSaveCmd stores a validated workflow document.
type WorkflowSaveCmd struct {
	Path string `arg:"" help:"Path to the workflow JSON file." type:"path"`
}

func (c *WorkflowSaveCmd) Run(cli *CLI) error {
	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}

	w, err := workflow.ParseJSON(raw)
	if err != nil {
		return err
	}

	return withApp(cli, func(ctx context.Context, app *App) error {
		if err := app.Workflows.Save(ctx, w); err != nil {
			return err
		}
		fmt.Printf("saved workflow %d: %s\n", w.ID, w.Name)
		return nil
	})
}

// WorkflowListCmd prints stored workflows.
type WorkflowListCmd struct{}

func (c *WorkflowListCmd) Run(cli *CLI) error {
	return withApp(cli, func(ctx context.Context, app *App) error {
		workflows, err := app.Workflows.List(ctx)
		if err != nil {
			return err
		}
		for _, w := range workflows {
			fmt.Printf("%d\t%s\t%s\t%d nodes\n", w.ID, w.Name, w.Status, len(w.Nodes))
		}
		return nil
	})
}

// SettingsCmd reads and writes runtime settings.
type SettingsCmd struct {
	Get SettingsGetCmd `cmd:"" help:"Read a setting."`
	Set SettingsSetCmd `cmd:"" help:"Write a setting."`
}

type SettingsGetCmd struct {
	Key string `arg:"" help:"Setting key."`
}

func (c *SettingsGetCmd) Run(cli *CLI) error {
	return withApp(cli, func(ctx context.Context, app *App) error {
		value, err := app.Settings.Get(ctx, c.Key)
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	})
}

type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting key."`
	Value string `arg:"" help:"Setting value."`
}

func (c *SettingsSetCmd) Run(cli *CLI) error {
	return withApp(cli, func(ctx context.Context, app *App) error {
		return app.Settings.Set(ctx, c.Key, c.Value)
	})
}
