package cli

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vitals-sh/vitals/internal/app"
	"github.com/vitals-sh/vitals/internal/config"
	"github.com/vitals-sh/vitals/internal/errors"
	"github.com/vitals-sh/vitals/internal/logger"
	"github.com/vitals-sh/vitals/internal/procview"
	"github.com/vitals-sh/vitals/internal/tui"
)

// Dashboard flags
var (
	rateFlag          time.Duration
	windowFlag        time.Duration
	filterFlag        string
	treeFlag          bool
	groupFlag         bool
	caseSensitiveFlag bool
	avgCPUFlag        bool
	fahrenheitFlag    bool
	kelvinFlag        bool
)

func init() {
	rootCmd.Flags().DurationVar(&rateFlag, "rate", 0, "Collection interval (e.g. 500ms, 2s)")
	rootCmd.Flags().DurationVar(&windowFlag, "window", 0, "Initial graph span (e.g. 60s, 5m)")
	rootCmd.Flags().StringVar(&filterFlag, "filter", "", "Initial process filter query")
	rootCmd.Flags().BoolVar(&treeFlag, "tree", false, "Start in tree view")
	rootCmd.Flags().BoolVar(&groupFlag, "group", false, "Start in grouped view")
	rootCmd.Flags().BoolVar(&caseSensitiveFlag, "case-sensitive", false, "Match filter text exactly")
	rootCmd.Flags().BoolVar(&avgCPUFlag, "avg-cpu", false, "Show only the average CPU graph")
	rootCmd.Flags().BoolVar(&fahrenheitFlag, "fahrenheit", false, "Show temperatures in Fahrenheit")
	rootCmd.Flags().BoolVar(&kelvinFlag, "kelvin", false, "Show temperatures in Kelvin")
}

// resolveConfig merges the config file with command line overrides. Flags
// always win over the file.
func resolveConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPathFlag)
	if err != nil {
		return nil, err
	}

	if rateFlag > 0 {
		cfg.Rate = rateFlag
	}
	if windowFlag > 0 {
		cfg.Window = windowFlag
	}
	if treeFlag {
		cfg.Tree = true
	}
	if groupFlag {
		cfg.Group = true
	}
	if caseSensitiveFlag {
		cfg.CaseSensitive = true
	}
	if avgCPUFlag {
		cfg.AvgCPU = true
	}
	if fahrenheitFlag {
		cfg.Temperature = config.TempFahrenheit
	}
	if kelvinFlag {
		cfg.Temperature = config.TempKelvin
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runDashboard starts the sampler and runs the TUI until the user quits.
func runDashboard() error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrConfig,
			"stdout is not a terminal",
			"vitals draws an interactive dashboard and needs a TTY")
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	log := logger.Noop()
	if debugFlag {
		f, err := tea.LogToFile("vitals-debug.log", "vitals")
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"could not open debug log file",
				"Check write permission in the current directory")
		}
		defer f.Close()
		os.Setenv("VITALS_DEBUG", "1")
		log = logger.NewEnvLogger("[vitals]")
	}

	session := app.NewSession(app.Config{
		Interval:      cfg.Rate,
		Retention:     cfg.Retention,
		Window:        cfg.Window,
		CaseSensitive: cfg.CaseSensitive,
		ShrinkAfter:   cfg.ShrinkTicks,
	}, nil, log)

	// SetSort flips direction when given the current column, so only touch
	// the column when it actually changes, then flip if the direction is off.
	col := procview.ParseColumn(cfg.DefaultSort)
	if session.Sort().Column != col {
		session.SetSort(col)
	}
	if session.Sort().Descending != cfg.DefaultSortDescending {
		session.SetSort(col)
	}

	if filterFlag != "" {
		if err := session.SetQuery(filterFlag); err != nil {
			return errors.WrapWithCode(err, errors.ErrQuery,
				"invalid --filter expression",
				"See the query syntax in the help overlay")
		}
	}

	session.Start(context.Background())
	model := tui.NewModel(session, cfg)

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := p.Run()

	if closeErr := session.Close(); runErr == nil {
		runErr = closeErr
	}
	return runErr
}
