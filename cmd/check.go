package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/LumeraProtocol/arprov/internal/config"
	"github.com/LumeraProtocol/arprov/internal/provider/adb"
	"github.com/LumeraProtocol/arprov/internal/provider/profile"
	"github.com/LumeraProtocol/arprov/pkg/capability"
	"github.com/LumeraProtocol/arprov/pkg/event"
	"github.com/LumeraProtocol/arprov/pkg/logtrace"
)

const (
	outputText = "text"
	outputJSON = "json"
)

var (
	checkProvider    string
	checkProfile     string
	checkOutput      string
	checkInteractive bool
)

// confirm asks a yes/no question. Replaced in tests.
var confirm = func(message string, def bool) (bool, error) {
	ok := def
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &ok)
	return ok, err
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate AR capability and print the decision",
	Long: `Query the device, classify the AR runtime state and print the decision.

With --interactive, a prompt_install decision offers to open the runtime's
install page and re-check, and a retry decision offers another round.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkProvider, "provider", "", "Capability provider: adb or profile (overrides config)")
	checkCmd.Flags().StringVar(&checkProfile, "profile", "", "Device profile for the profile provider (overrides config)")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", outputText, "Output format: text or json")
	checkCmd.Flags().BoolVarP(&checkInteractive, "interactive", "i", false, "Prompt for install / retry")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkOutput != outputText && checkOutput != outputJSON {
		return fmt.Errorf("unsupported output format %q", checkOutput)
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	if checkProvider != "" {
		cfg.Provider.Type = checkProvider
	}
	if checkProfile != "" {
		cfg.Provider.ProfilePath = checkProfile
		if checkProvider == "" {
			cfg.Provider.Type = config.ProviderProfile
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	env := "dev"
	if checkOutput == outputJSON {
		env = "prod"
	}
	setupLogging(cfg, env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	bus := event.NewBus(0)
	defer bus.Close()
	if checkOutput == outputText {
		bus.Subscribe(event.QueryFailed, progressPrinter(cmd.ErrOrStderr()))
	}

	p, err := capability.NewProvisioner(provider, cfg.CapabilityConfig(),
		capability.WithPolicy(cfg.Policy()),
		capability.WithEventBus(bus),
	)
	if err != nil {
		return err
	}

	s := capability.NewSession()
	ctx = logtrace.CtxWithCorrelationID(ctx, s.ID())
	logtrace.Info(ctx, "starting capability check", logtrace.Fields{
		logtrace.FieldModule:   "cli",
		logtrace.FieldProvider: cfg.Provider.Type,
		"config_file":          configPath(),
	})

	res, err := runSession(ctx, p, s, checkInteractive, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	bus.WaitForHandlers()

	return render(cmd.OutOrStdout(), checkOutput, res)
}

// runSession evaluates s and, when interactive, loops on install and retry
// prompts until the caller declines or a terminal decision is reached.
func runSession(ctx context.Context, p *capability.Provisioner, s *capability.Session, interactive bool, w io.Writer) (*capability.Result, error) {
	for {
		res, err := p.Evaluate(ctx, s)
		if err != nil {
			return res, err
		}
		if !interactive {
			return res, nil
		}

		switch res.Decision {
		case capability.DecisionPromptInstall:
			ok, err := confirm("The AR runtime must be installed or updated. Open the install page now?", true)
			if err != nil || !ok {
				return res, err
			}
			if err := p.RequestInstall(ctx, s); err != nil {
				var ierr *capability.InstallRequestError
				if errors.As(err, &ierr) {
					res.InstallErr = err
					fmt.Fprintf(w, "Could not open the install page (%v). Install the AR runtime manually from the device's app store.\n", ierr.Err)
					return res, nil
				}
				return res, err
			}
			again, err := confirm("Re-check once the install has finished?", true)
			if err != nil || !again {
				return res, err
			}
		case capability.DecisionRetry:
			again, err := confirm("AR capability could not be determined. Try again?", true)
			if err != nil || !again {
				return res, err
			}
		default:
			return res, nil
		}
	}
}

func buildProvider(cfg *config.Config) (capability.Provider, error) {
	switch cfg.Provider.Type {
	case config.ProviderADB:
		runner := adb.NewExecRunner(cfg.Provider.ADBPath, cfg.Provider.Serial, cfg.Provider.CommandsPerSecond)
		return adb.New(runner, cfg.Runtime.Package, cfg.Provider.PropertyCacheTTL), nil
	case config.ProviderProfile:
		return profile.New(cfg.Provider.ProfilePath), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", capability.ErrInvalidConfig, cfg.Provider.Type)
}

func progressPrinter(w io.Writer) event.Handler {
	return func(e event.Event) {
		fmt.Fprintf(w, "attempt %v inconclusive (%v), retrying in %v\n",
			e.Data[event.KeyAttempt], e.Data[event.KeyError], e.Data[event.KeyBackoff])
	}
}
