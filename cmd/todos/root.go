package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cirocosta/todos/internal/client"
	"github.com/cirocosta/todos/internal/config"
	"github.com/cirocosta/todos/internal/logging"
	"github.com/cirocosta/todos/internal/render"
)

// app carries what every command shares once the config is loaded
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "todos",
		Short: "Task tracking server and client",
		Long: `todos runs a task-tracking HTTP server and talks to it.

Configuration is read from $XDG_CONFIG_HOME/todos/config.toml unless
--config or TODOS_CONFIG name another file. TODOS_URL and TODOS_TOKEN
override the client settings, and flags override everything.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file path")

	cmd.Version = versionString()
	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newServeCmd(a),
		newOpenAPIGenCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newToggleCmd(a),
		newRemoveCmd(a),
		newReorderCmd(a),
		newClearCompletedCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)

	return cmd
}

// load reads the config file, applies environment overrides and installs
// the CLI logger. serve replaces the logger with its own.
func (a *app) load(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = os.Getenv("TODOS_CONFIG")
	}
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if url := os.Getenv("TODOS_URL"); url != "" {
		cfg.Client.URL = url
	}
	if token := os.Getenv("TODOS_TOKEN"); token != "" {
		cfg.Client.Token = token
	}

	logger, err := logging.NewCLILogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	return nil
}

// clientFlags are shared by every command that talks to a server
type clientFlags struct {
	url   string
	token string
}

func addClientFlags(cmd *cobra.Command, f *clientFlags) {
	cmd.Flags().StringVar(&f.url, "url", "", "server URL (overrides client.url)")
	cmd.Flags().StringVar(&f.token, "token", "", "bearer token (overrides client.token)")
}

func (a *app) client(cmd *cobra.Command, f *clientFlags) *client.Client {
	url := a.cfg.Client.URL
	overrideString(cmd.Flags(), "url", &url, f.url)

	token := a.cfg.Client.Token
	overrideString(cmd.Flags(), "token", &token, f.token)

	return client.New(url, client.WithToken(token))
}

func (a *app) renderer(w io.Writer) *render.Renderer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = render.StyledOutput(f)
	}
	return render.New(render.ThemeNamed(a.cfg.UI.Theme), styled)
}

// overrideString sets dst to value when the flag was given explicitly
func overrideString(flags *pflag.FlagSet, name string, dst *string, value string) {
	if flags.Changed(name) {
		*dst = value
	}
}
