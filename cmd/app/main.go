package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/zklink/internal"
	pkgconfig "github.com/starford/zklink/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func oneArg(cmd *cli.Command, name string) (string, error) {
	if cmd.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one %s argument", cmd.Name, name)
	}
	return cmd.Args().First(), nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func find(ctx context.Context, cmd *cli.Command) error {
	glob, err := oneArg(cmd, "glob")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Find(ctx, glob, internal.WithConfig(cfg))
}

func grep(ctx context.Context, cmd *cli.Command) error {
	pattern, err := oneArg(cmd, "pattern")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Grep(ctx, pattern, internal.WithConfig(cfg))
}

func backlinks(ctx context.Context, cmd *cli.Command) error {
	id, err := oneArg(cmd, "identifier")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Backlinks(ctx, id, internal.WithConfig(cfg))
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eo := internal.ExportOptions{
		Source: cmd.String("source"),
		Out:    cmd.String("out"),
		Watch:  cmd.Bool("watch"),
	}
	if err := internal.Export(ctx, eo, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("export error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "zklink",
		Usage:  "Rewrite [[timestamp_Title]] note references read from stdin into Markdown links",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("ZKLINK_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "find",
				Usage:     "List notes whose file name matches a glob",
				ArgsUsage: "<glob>",
				Action:    find,
			},
			{
				Name:      "grep",
				Usage:     "Print note lines matching a pattern as path:line:text",
				ArgsUsage: "<pattern>",
				Action:    grep,
			},
			{
				Name:      "backlinks",
				Usage:     "List notes that mention an identifier",
				ArgsUsage: "<identifier>",
				Action:    backlinks,
			},
			{
				Name:   "export",
				Usage:  "Mirror a notes directory with references rewritten",
				Action: export,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Notes directory to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Directory receiving the rewritten notes",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Keep the mirror up to date until interrupted",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
