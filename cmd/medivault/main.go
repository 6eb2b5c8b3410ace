// Command medivault runs the AI tool engine from the command line.
//
// Usage:
//
//	medivault tools list
//	medivault tools run image_ocr --args '{"file_blob_id":"..."}'
//	medivault analyze 42
//	medivault workflow validate pipeline.json
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	medivault "github.com/skchakri/medi-vault"
	"github.com/skchakri/medi-vault/pkg/config"
	"github.com/skchakri/medi-vault/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Tools    ToolsCmd    `cmd:"" help:"Inspect and run AI tools."`
	Analyze  AnalyzeCmd  `cmd:"" help:"Analyze a credential's attached document."`
	Workflow WorkflowCmd `cmd:"" help:"Validate and manage workflows."`
	Settings SettingsCmd `cmd:"" help:"Read and write engine settings."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile  string `help:"Log file path (empty = stderr)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(medivault.GetVersion().String())
	return nil
}

// loadConfig loads the configured file or falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func main() {
	config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("medivault"),
		kong.Description("MediVault AI tool engine"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	closer, err := logger.Setup(logger.Options{Level: level, File: cli.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
