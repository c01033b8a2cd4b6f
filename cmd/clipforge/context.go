package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipforge/internal/apiclient"
	"clipforge/internal/config"
)

type globalFlags struct {
	config string
	api    string
	user   string
	json   bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiAddress() string {
	if addr := strings.TrimSpace(c.flags.api); addr != "" {
		return addr
	}
	if c.config != nil {
		return c.config.API.Bind
	}
	return ""
}

func (c *commandContext) client() (*apiclient.Client, error) {
	token := ""
	if c.config != nil {
		token = c.config.API.Token
	}
	client, err := apiclient.New(c.apiAddress(), apiclient.Options{Token: token, UserID: c.flags.user})
	if err != nil {
		return nil, fmt.Errorf("api address: %w", err)
	}
	if client == nil {
		return nil, apiclient.ErrAPIUnavailable
	}
	return client, nil
}

// withClient runs fn and rewrites connection failures into a hint about
// starting the daemon.
func (c *commandContext) withClient(fn func(*apiclient.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	if err := fn(client); err != nil {
		if apiclient.IsAPIUnavailable(err) {
			return fmt.Errorf("connect to daemon at %s: not reachable; start it with `clipforge serve`", c.apiAddress())
		}
		return err
	}
	return nil
}

func (c *commandContext) jsonOutput() bool {
	return c.flags.json
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
