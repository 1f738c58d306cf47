package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/wankata/github-api-client/internal/app"
	"github.com/wankata/github-api-client/internal/config"
	"github.com/wankata/github-api-client/internal/logger"
	"github.com/wankata/github-api-client/pkg/github"
)

const usage = `usage: ghclient [--no-auth] [--api URL] user [login]

Without a login, prints the authenticated user (requires AUTH_TOKEN or GITHUB_TOKEN).
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "ghclient: %s\n", describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("ghclient", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	noAuth := fs.Bool("no-auth", false, "send requests without the Authorization header")
	apiURL := fs.String("api", "", "override the API base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 || rest[0] != "user" || len(rest) > 2 {
		fs.Usage()
		return errors.New("expected: user [login]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *noAuth {
		cfg.AuthToken = ""
	}

	log, err := logger.InitWithWriter(cfg, stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	client, err := app.NewGitHubClient(cfg, log)
	if err != nil {
		return err
	}

	var out json.Marshaler
	if len(rest) == 2 {
		out, err = client.User(ctx, rest[1])
	} else {
		out, err = client.AuthenticatedUser(ctx)
	}
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "%s\n", raw)
	return err
}

// describe prefixes err with the client error kind so scripts can tell
// transport failures from unexpected statuses.
func describe(err error) string {
	var (
		transport   *github.TransportError
		unsupported *github.UnsupportedStatusError
	)
	switch {
	case errors.As(err, &transport):
		return fmt.Sprintf("TransportError: %v", err)
	case errors.As(err, &unsupported):
		return fmt.Sprintf("UnsupportedStatusError: %v", err)
	case errors.Is(err, github.ErrClient):
		return fmt.Sprintf("ClientError: %v", err)
	default:
		return err.Error()
	}
}
