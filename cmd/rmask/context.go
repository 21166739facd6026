package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/gogpu/rmask/codec"
	"github.com/gogpu/rmask/internal/config"
	"github.com/gogpu/rmask/saves"
)

type commandContext struct {
	configFlag *string
	savesFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, savesFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, savesFlag: savesFlag}
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
		if c.savesFlag != nil && strings.TrimSpace(*c.savesFlag) != "" {
			dir, err := config.ExpandPath(strings.TrimSpace(*c.savesFlag))
			if err != nil {
				c.configErr = fmt.Errorf("resolve saves dir: %w", err)
				return
			}
			cfg.Saves.Dir = dir
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) store() (*saves.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return saves.New(cfg.Saves.Dir, cfg.Saves.AutoSaveLimit)
}

// loadState reads a save and decodes its layers.
func (c *commandContext) loadState(ctx context.Context, name string) (*saves.Record, *codec.State, error) {
	store, err := c.store()
	if err != nil {
		return nil, nil, err
	}
	rec, err := store.Load(name)
	if err != nil {
		return nil, nil, err
	}
	st, err := codec.DecodeDocument(ctx, rec.Document)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return rec, st, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
