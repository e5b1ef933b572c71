package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/broady/orb"
	"github.com/broady/orb/cmd/orb/internal/api"
	"github.com/broady/orb/cmd/orb/internal/configcmd"
	"github.com/broady/orb/internal/config"
	"github.com/broady/orb/middleware"
	"github.com/broady/orb/option"
)

type CLI struct {
	Globals `embed:""`

	Version       VersionCmd           `cmd:"" help:"Print version information."`
	Ping          api.PingCmd          `cmd:"" help:"Check that the API is reachable and the key is accepted."`
	Customers     api.CustomersCmd     `cmd:"" help:"Inspect customers."`
	Invoices      api.InvoicesCmd      `cmd:"" help:"Inspect invoices."`
	Subscriptions api.SubscriptionsCmd `cmd:"" help:"Inspect subscriptions."`
	Prices        api.PricesCmd        `cmd:"" help:"Inspect prices."`
	Coupons       api.CouponsCmd       `cmd:"" help:"Inspect coupons."`
	Config        configcmd.Cmd        `cmd:"" help:"Manage the config file."`
}

// Globals are flags accepted by every command. They override the config file.
type Globals struct {
	ConfigFile string `help:"Config file (default ~/.orb/config.yaml)." name:"config" short:"c" type:"path"`
	APIKey     string `help:"Orb API key." name:"api-key"`
	BaseURL    string `help:"API base URL." name:"base-url"`
	Debug      bool   `help:"Log every request to stderr."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	_, err := fmt.Fprintln(out, Version())
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "orb: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("orb"),
		kong.Description("Command-line client for the Orb billing API."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.BindTo(stdout, (*io.Writer)(nil)),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	path := cli.ConfigFile
	if path == "" {
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		// A broken file must not stop "config init --force" from replacing it.
		if !strings.HasPrefix(kctx.Command(), "config init") {
			return err
		}
		cfg = config.Default()
	}
	if cli.APIKey != "" {
		cfg.APIKey = cli.APIKey
	}
	if cli.BaseURL != "" {
		cfg.BaseURL = cli.BaseURL
	}
	if cli.Debug {
		cfg.Logging.Level = "debug"
	}

	logger := cfg.Logger(stderr)
	opts := append(cfg.ClientOptions(logger), option.WithMiddleware(middleware.IdempotencyKey()))
	if cli.Debug {
		opts = append(opts, option.WithMiddleware(middleware.Logging(logger)))
	}
	env := &api.Env{
		Context: ctx,
		Client:  orb.NewClient(opts...),
		Out:     stdout,
	}

	return kctx.Run(env, cfg, configcmd.Path(path))
}
