package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"karaluxer/internal/config"
	"karaluxer/internal/tools"
)

var checkStrict bool

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check external tool availability",
		RunE:  runCheck,
	}

	cmd.Flags().BoolVar(&checkStrict, "strict", false, "fail when required tools are missing or outdated")

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer := openLogger(cmd)
	defer closer.Close()
	logger.Printf("karaluxer check: config=%q", path)

	statuses := tools.Prober{}.Detect(cmd.Context(), tools.Definitions(cfg))
	for _, st := range statuses {
		logger.Printf("tool %s: path=%s version=%s satisfied=%v error=%s", st.Tool, st.Path, st.Version, st.Satisfied, st.Error)
	}

	payload := struct {
		Config      string                    `json:"config,omitempty"`
		Tools       []tools.Status            `json:"tools"`
		Validations []config.ValidationResult `json:"validations,omitempty"`
	}{
		Config:      path,
		Tools:       statuses,
		Validations: cfg.Validate(),
	}

	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), payload); err != nil {
			return err
		}
	} else {
		printCheckResult(cmd, payload.Config, payload.Tools)
	}

	if checkStrict {
		return tools.MissingRequired(statuses)
	}
	return nil
}

func printCheckResult(cmd *cobra.Command, cfgPath string, statuses []tools.Status) {
	bold := lipgloss.NewStyle().Bold(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	faint := lipgloss.NewStyle().Faint(true)

	if cfgPath == "" {
		cfgPath = "built-in defaults"
	}
	cmd.Println(bold.Render("Config:") + " " + cfgPath)
	cmd.Println()

	for _, st := range statuses {
		if st.Satisfied {
			headline := green.Render("✓") + " " + bold.Render(st.Tool)
			if st.Version != "" {
				headline += " " + st.Version
			}
			if st.Minimum != "" {
				headline += faint.Render(" (minimum: " + st.Minimum + ")")
			}
			cmd.Println(headline)
			cmd.Println(faint.Render("  " + st.Path))
		} else {
			mark := red.Render("✗")
			if st.Optional {
				mark = yellow.Render("!")
			}
			headline := mark + " " + bold.Render(st.Tool)
			if st.Error != "" {
				headline += red.Render(" (" + st.Error + ")")
			}
			cmd.Println(headline)
			for _, hint := range st.Hints {
				cmd.Println(faint.Render("  " + hint))
			}
		}
		cmd.Println()
	}
}
