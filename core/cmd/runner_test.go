package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/achibot/core/config"
	coretelegram "github.com/m3rciful/achibot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct{ opts coretelegram.RunOptions }

func (a app) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, nil }

func TestRunWiresHooks(t *testing.T) {
	t.Setenv("ACHIBOT_TEST_CONFIG", "from-env.yaml")

	var (
		loaded  string
		started bool
		stopped bool
	)
	err := Run(Options{
		ConfigEnvVar:      "ACHIBOT_TEST_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loaded = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return app{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error {
					started = true
					return nil
				},
				OnStop: func(context.Context, coretelegram.Runtime) error {
					stopped = true
					return nil
				},
			}}, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-env.yaml", loaded)
	assert.True(t, started)
	assert.True(t, stopped)
}

func TestRunErrors(t *testing.T) {
	t.Setenv("ACHIBOT_TEST_CONFIG", "")

	require.Error(t, Run(Options{}))

	boom := errors.New("boom")
	err := Run(Options{
		ConfigEnvVar:      "ACHIBOT_TEST_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	require.ErrorIs(t, err, boom)

	err = Run(Options{
		ConfigEnvVar: "ACHIBOT_TEST_CONFIG",
		LoadConfig:   func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:    func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path not provided")
}

func TestConfigPathPrecedence(t *testing.T) {
	t.Setenv("ACHIBOT_TEST_CONFIG", "env.yaml")

	o := Options{ConfigEnvVar: "ACHIBOT_TEST_CONFIG", DefaultConfigPath: "default.yaml"}
	p, err := o.configPath()
	require.NoError(t, err)
	assert.Equal(t, "env.yaml", p)

	o.ConfigPath = "flag.yaml"
	p, err = o.configPath()
	require.NoError(t, err)
	assert.Equal(t, "flag.yaml", p)

	t.Setenv("ACHIBOT_TEST_CONFIG", "")
	o.ConfigPath = ""
	p, err = o.configPath()
	require.NoError(t, err)
	assert.Equal(t, "default.yaml", p)
}
