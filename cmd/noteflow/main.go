package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/noteflow/internal"
	pkgconfig "github.com/starford/noteflow/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func options(cfg *internal.Config) []internal.Option {
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, options(cfg)...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if user := cmd.String("user"); user != "" {
		cfg.Auth.User = user
	}
	if err := internal.RunMCP(ctx, options(cfg)...); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func importDir(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cmd.String("dir")
	if dir == "" {
		dir = cfg.Inbox.Dir
	}
	user := cmd.String("user")
	if user == "" {
		user = cfg.Inbox.User
	}
	if err := internal.RunImport(ctx, dir, user, options(cfg)...); err != nil {
		return fmt.Errorf("import error: %w", err)
	}
	return nil
}

func main() {
	userFlag := &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "User id to act as",
	}

	cmd := &cli.Command{
		Name:    "noteflow",
		Usage:   "Markdown notes with tag reconciliation, live sync, and AI summaries",
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
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve one user's notes over MCP stdio",
				Flags:  []cli.Flag{userFlag},
				Action: mcp,
			},
			{
				Name:  "import",
				Usage: "Import markdown files from a directory once",
				Flags: []cli.Flag{
					userFlag,
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory to import (defaults to inbox.dir)",
					},
				},
				Action: importDir,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
