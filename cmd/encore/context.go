package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"encore/internal/api"
	"encore/internal/config"
)

type commandContext struct {
	configFlag *string
	userFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, userFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		userFlag:   userFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
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

// userName resolves the caller identity sent with every request.
func (c *commandContext) userName() (string, error) {
	if c.userFlag != nil {
		if name := strings.TrimSpace(*c.userFlag); name != "" {
			return name, nil
		}
	}
	if name := strings.TrimSpace(os.Getenv("ENCORE_USER")); name != "" {
		return name, nil
	}
	if current, err := user.Current(); err == nil && strings.TrimSpace(current.Username) != "" {
		return current.Username, nil
	}
	return "", errors.New("no user identity; pass --user or set ENCORE_USER")
}

func (c *commandContext) withClient(fn func(*api.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	name, err := c.userName()
	if err != nil {
		return err
	}
	client, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken, name)
	if err != nil {
		return wrapDialError(err, cfg.Paths.APIBind)
	}
	if err := fn(client); err != nil {
		return wrapDialError(err, cfg.Paths.APIBind)
	}
	return nil
}

func wrapDialError(err error, bind string) error {
	if api.IsAPIUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: not reachable; start it with `encore serve`", bind)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
