// Package configcmd implements "orb config".
package configcmd

import (
	"fmt"
	"io"

	"github.com/broady/orb/internal/config"
)

// Path is the resolved config file location, bound by main.
type Path string

// Cmd groups the config subcommands.
type Cmd struct {
	Init InitCmd `cmd:"" help:"Write a default config file."`
	Show ShowCmd `cmd:"" help:"Print the effective configuration with the API key masked."`
}

type InitCmd struct {
	Force bool `help:"Replace an existing file." short:"f"`
}

func (c *InitCmd) Run(path Path, out io.Writer) error {
	if err := config.WriteDefault(string(path), c.Force); err != nil {
		return fmt.Errorf("config init: %w", err)
	}
	_, err := fmt.Fprintf(out, "wrote %s\n", path)
	return err
}

type ShowCmd struct{}

func (c *ShowCmd) Run(path Path, cfg *config.Config, out io.Writer) error {
	data, err := cfg.Redacted().YAML()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "# %s\n%s", path, data)
	return err
}
