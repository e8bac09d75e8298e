package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/texrelink/internal"
	pkgconfig "github.com/starford/texrelink/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func relinkManifest(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req := internal.ManifestRequest{
		Path:       cmd.String("manifest"),
		Root:       cmd.String("root"),
		BaseDir:    cmd.String("base"),
		NoFallback: cmd.Bool("no-fallback"),
		DryRun:     cmd.Bool("dry-run"),
	}
	if cmd.IsSet("ext") {
		req.Extensions = splitExts(cmd.String("ext"))
	}

	report, err := internal.RelinkManifest(ctx, req,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// splitExts turns "png, dds,,tga" into its non-empty parts. An explicit
// empty flag yields an empty, non-nil list so nothing is indexed.
func splitExts(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	cmd := &cli.Command{
		Name:    "texrelink",
		Usage:   "Find and repair broken texture references by searching a library by file name",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, event stream and library watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the relink tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:   "relink",
				Usage:  "Relink the references in a YAML manifest and print the report",
				Action: relinkManifest,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "Manifest file", Required: true},
					&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Library root (defaults to library.root)"},
					&cli.StringFlag{Name: "ext", Usage: "Comma-separated allowed extensions (defaults to library.extensions)"},
					&cli.StringFlag{Name: "base", Usage: "Directory relative paths resolve against (defaults to the manifest's)"},
					&cli.BoolFlag{Name: "no-fallback", Usage: "Disable matching by name without extension"},
					&cli.BoolFlag{Name: "dry-run", Usage: "Print the report without saving the manifest"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
