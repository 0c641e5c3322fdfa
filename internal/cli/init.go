package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/radarmon/radar/internal/config"
	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/ui"
)

// Init roles
const (
	RoleServer = "server"
	RoleClient = "client"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Role           string // RoleServer or RoleClient
	Path           string // Output file, defaults to the platform main.yml
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use defaults
	CreateDirs     bool   // Create the directories the config refers to
}

var initOpts InitOptions

var initCmd = &cobra.Command{
	Use:   "init server|client",
	Short: "Create a server or client configuration",
	Long: `Initialize a Radar main configuration file.

Asks for the listen / connect address and port, the account checks run as,
timing settings and the directories Radar uses, then writes the YAML file.

Examples:
  radar init server
  radar init client --output ./radar-client.yml
  radar init server --non-interactive --force`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{RoleServer, RoleClient},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := initOpts
		opts.Role = args[0]
		return Init(opts, cmd.OutOrStdout())
	},
}

func init() {
	initCmd.Flags().StringVarP(&initOpts.Path, "output", "o", "", "where to write the config (default the platform config directory)")
	initCmd.Flags().BoolVarP(&initOpts.Overwrite, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initOpts.NonInteractive, "non-interactive", false, "skip prompts and write the defaults")
	initCmd.Flags().BoolVar(&initOpts.CreateDirs, "create-dirs", false, "create the directories named in the config")
	rootCmd.AddCommand(initCmd)
}

// serverAnswers are the wizard fields for a server, as typed.
type serverAnswers struct {
	ListenAddress  string
	ListenPort     string
	ConsoleEnabled bool
	ConsoleAddress string
	ConsolePort    string
	ConsoleToken   string
	RunAsUser      string
	RunAsGroup     string
	PollingTime    string
	Checks         string
	Contacts       string
	Monitors       string
	Plugins        string
	LogTo          string
}

// clientAnswers are the wizard fields for a client, as typed.
type clientAnswers struct {
	ConnectTo        string
	ConnectPort      string
	RunAsUser        string
	RunAsGroup       string
	CheckTimeout     string
	CheckConcurrency string
	EnforceOwnership bool
	Reconnect        bool
	Checks           string
	LogTo            string
}

// Init creates a new main configuration file for opts.Role.
func Init(opts InitOptions, out io.Writer) error {
	path := opts.Path
	switch opts.Role {
	case RoleServer:
		if path == "" {
			path = filepath.Join(config.ServerBaseDir(), config.MainConfigFile)
		}
	case RoleClient:
		if path == "" {
			path = filepath.Join(config.ClientBaseDir(), config.MainConfigFile)
		}
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown role '%s'", opts.Role),
			"Use 'radar init server' or 'radar init client'")
	}

	overwrite, proceed, err := confirmOverwrite(path, opts)
	if err != nil || !proceed {
		if err == nil {
			fmt.Fprintln(out, "Cancelled.")
		}
		return err
	}

	var (
		cfg  any
		dirs []string
	)
	if opts.Role == RoleServer {
		a := defaultServerAnswers()
		if !opts.NonInteractive {
			if err := serverForm(&a).Run(); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Failed to get user input",
					"Check terminal compatibility or use --non-interactive")
			}
		}
		sc, err := buildServerConfig(a)
		if err != nil {
			return err
		}
		cfg, dirs = sc, config.ServerDirectories(sc)
	} else {
		a := defaultClientAnswers()
		if !opts.NonInteractive {
			if err := clientForm(&a).Run(); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Failed to get user input",
					"Check terminal compatibility or use --non-interactive")
			}
		}
		cc, err := buildClientConfig(a)
		if err != nil {
			return err
		}
		cfg, dirs = cc, config.ClientDirectories(cc)
	}

	if err := config.Write(path, cfg, overwrite); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Created %s\n", ui.SuccessStyle().Render(ui.SymbolOK), path)

	if opts.CreateDirs {
		if err := createDirectories(dirs); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Created %s\n", ui.SuccessStyle().Render(ui.SymbolOK), strings.Join(nonEmpty(dirs), ", "))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	if opts.Role == RoleServer {
		fmt.Fprintln(out, "  add checks, contacts and monitors definitions")
		fmt.Fprintf(out, "  radar server --config %s\n", path)
	} else {
		fmt.Fprintf(out, "  radar client --config %s\n", path)
	}
	return nil
}

// confirmOverwrite asks before replacing an existing file. It reports whether
// the file may be overwritten and whether to go on at all.
func confirmOverwrite(path string, opts InitOptions) (overwrite, proceed bool, err error) {
	if _, statErr := os.Stat(path); statErr != nil || opts.Overwrite {
		return opts.Overwrite, true, nil
	}
	if opts.NonInteractive {
		return false, false, errors.New(errors.ErrConfig,
			fmt.Sprintf("Config file already exists: %s", path),
			"Use --force to overwrite")
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path)).
				Value(&overwrite),
		),
	)
	if err := form.Run(); err != nil {
		return false, false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Try running with --force to overwrite")
	}
	return overwrite, overwrite, nil
}

func defaultServerAnswers() serverAnswers {
	d := config.DefaultServerConfig()
	return serverAnswers{
		ListenAddress:  d.Listen.Address,
		ListenPort:     strconv.Itoa(d.Listen.Port),
		ConsoleEnabled: d.Console.Enabled,
		ConsoleAddress: d.Console.Address,
		ConsolePort:    strconv.Itoa(d.Console.Port),
		RunAsUser:      d.RunAs.User,
		RunAsGroup:     d.RunAs.Group,
		PollingTime:    strconv.FormatFloat(d.PollingTime, 'f', -1, 64),
		Checks:         d.Checks,
		Contacts:       d.Contacts,
		Monitors:       d.Monitors,
		Plugins:        d.Plugins.Dir,
		LogTo:          d.Log.To,
	}
}

func defaultClientAnswers() clientAnswers {
	d := config.DefaultClientConfig()
	return clientAnswers{
		ConnectTo:        d.Connect.To,
		ConnectPort:      strconv.Itoa(d.Connect.Port),
		RunAsUser:        d.RunAs.User,
		RunAsGroup:       d.RunAs.Group,
		CheckTimeout:     strconv.FormatFloat(d.CheckTimeout, 'f', -1, 64),
		CheckConcurrency: strconv.Itoa(d.CheckConcurrency),
		EnforceOwnership: d.EnforceOwnership,
		Reconnect:        d.Reconnect,
		Checks:           d.Checks,
		LogTo:            d.Log.To,
	}
}

func serverForm(a *serverAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Listen address").Value(&a.ListenAddress),
			huh.NewInput().Title("Listen port").Value(&a.ListenPort).Validate(validPort),
			huh.NewInput().Title("Polling time").Description("Seconds between polls").
				Value(&a.PollingTime).Validate(atLeast(1)),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Enable the console?").Value(&a.ConsoleEnabled),
			huh.NewInput().Title("Console listen address").Value(&a.ConsoleAddress),
			huh.NewInput().Title("Console listen port").Value(&a.ConsolePort).Validate(validPort),
			huh.NewInput().Title("Console token (optional)").
				Description("Stored as a bcrypt hash, leave empty for no token").
				EchoMode(huh.EchoModePassword).
				Value(&a.ConsoleToken),
		),
		huh.NewGroup(
			huh.NewInput().Title("User to run Radar server as").Value(&a.RunAsUser),
			huh.NewInput().Title("Group to run Radar server as").Value(&a.RunAsGroup),
		),
		huh.NewGroup(
			huh.NewInput().Title("Checks directory").Value(&a.Checks).Validate(required),
			huh.NewInput().Title("Contacts directory").Value(&a.Contacts).Validate(required),
			huh.NewInput().Title("Monitors directory").Value(&a.Monitors).Validate(required),
			huh.NewInput().Title("Plugins directory").Value(&a.Plugins),
			huh.NewInput().Title("Log file").Description("Leave empty to log to stderr").Value(&a.LogTo),
		),
	)
}

func clientForm(a *clientAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Radar server address").Value(&a.ConnectTo).Validate(required),
			huh.NewInput().Title("Radar server port").Value(&a.ConnectPort).Validate(validPort),
			huh.NewConfirm().Title("Reconnect when the server goes away?").Value(&a.Reconnect),
		),
		huh.NewGroup(
			huh.NewInput().Title("Check timeout").Description("Seconds a check may run").
				Value(&a.CheckTimeout).Validate(atLeast(1)),
			huh.NewInput().Title("Check concurrency").Description("Checks running at once").
				Value(&a.CheckConcurrency).Validate(atLeast(1)),
		),
		huh.NewGroup(
			huh.NewInput().Title("User to run Radar client as").Value(&a.RunAsUser),
			huh.NewInput().Title("Group to run Radar client as").Value(&a.RunAsGroup),
			huh.NewConfirm().Title("Only run checks owned by that user and group?").Value(&a.EnforceOwnership),
		),
		huh.NewGroup(
			huh.NewInput().Title("Checks directory").Value(&a.Checks).Validate(required),
			huh.NewInput().Title("Log file").Description("Leave empty to log to stderr").Value(&a.LogTo),
		),
	)
}

func buildServerConfig(a serverAnswers) (*config.ServerConfig, error) {
	cfg := config.DefaultServerConfig()
	var err error

	cfg.Listen.Address = strings.TrimSpace(a.ListenAddress)
	if cfg.Listen.Port, err = parsePort("listen port", a.ListenPort); err != nil {
		return nil, err
	}
	cfg.Console.Enabled = a.ConsoleEnabled
	cfg.Console.Address = strings.TrimSpace(a.ConsoleAddress)
	if cfg.Console.Port, err = parsePort("console port", a.ConsolePort); err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(a.ConsoleToken); token != "" {
		if cfg.Console.TokenHash, err = hashToken(token); err != nil {
			return nil, err
		}
	}
	if cfg.PollingTime, err = parseNumber("polling time", a.PollingTime); err != nil {
		return nil, err
	}

	cfg.RunAs = config.RunAsConfig{User: strings.TrimSpace(a.RunAsUser), Group: strings.TrimSpace(a.RunAsGroup)}
	cfg.Checks = strings.TrimSpace(a.Checks)
	cfg.Contacts = strings.TrimSpace(a.Contacts)
	cfg.Monitors = strings.TrimSpace(a.Monitors)
	cfg.Plugins.Dir = strings.TrimSpace(a.Plugins)
	cfg.Log.To = strings.TrimSpace(a.LogTo)

	if err := config.ValidateServer(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildClientConfig(a clientAnswers) (*config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()
	var err error

	cfg.Connect.To = strings.TrimSpace(a.ConnectTo)
	if cfg.Connect.Port, err = parsePort("server port", a.ConnectPort); err != nil {
		return nil, err
	}
	if cfg.CheckTimeout, err = parseNumber("check timeout", a.CheckTimeout); err != nil {
		return nil, err
	}
	concurrency, err := parseNumber("check concurrency", a.CheckConcurrency)
	if err != nil {
		return nil, err
	}
	cfg.CheckConcurrency = int(concurrency)

	cfg.RunAs = config.RunAsConfig{User: strings.TrimSpace(a.RunAsUser), Group: strings.TrimSpace(a.RunAsGroup)}
	cfg.EnforceOwnership = a.EnforceOwnership
	cfg.Reconnect = a.Reconnect
	cfg.Checks = strings.TrimSpace(a.Checks)
	cfg.Log.To = strings.TrimSpace(a.LogTo)

	if err := config.ValidateClient(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// hashToken bcrypt-hashes a console token for console.token_hash.
func hashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig, "Couldn't hash the console token", "Use a token of at most 72 bytes")
	}
	return string(h), nil
}

func parsePort(what, s string) (int, error) {
	if err := validPort(s); err != nil {
		return 0, errors.New(errors.ErrConfig, fmt.Sprintf("Invalid %s: %v", what, err), "Use a number between 1 and 65535")
	}
	p, _ := strconv.Atoi(strings.TrimSpace(s))
	return p, nil
}

func parseNumber(what, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig, fmt.Sprintf("Invalid %s '%s'", what, s), "Use a number")
	}
	return f, nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("this field is required")
	}
	return nil
}

func validPort(s string) error {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("'%s' is not a port between 1 and 65535", s)
	}
	return nil
}

func atLeast(min float64) func(string) error {
	return func(s string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("'%s' is not a number", s)
		}
		if f < min {
			return fmt.Errorf("must be at least %g", min)
		}
		return nil
	}
}

func nonEmpty(list []string) []string {
	var out []string
	for _, s := range list {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
