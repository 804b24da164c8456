package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"astraguard/aegis/pkg/cli"
	"astraguard/aegis/pkg/config"
	"astraguard/aegis/pkg/policy"
	"astraguard/aegis/pkg/policy/engine/source"
)

var lintFlags struct {
	policyFile string
	dir        string
	strict     bool
	format     string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate configuration and policy files",
	Long: `Validate configuration and phase policy files without starting the service.

Without flags, lint validates the configuration file given by --config and,
when that configuration names a policy file, the policy file as well. With
--policy or --dir, only the named policy files are validated.

Validation covers:
  - YAML/JSON syntax
  - Configuration structure and value ranges
  - Phase policy consistency (all five phases, action sets, escalation caps)

Examples:
  # Preflight the service configuration
  aegis lint --config aegis.yaml

  # Validate a single policy file
  aegis lint --policy policies/phases.yaml

  # Validate a directory of policy files
  aegis lint --dir policies/

  # Strict mode (warnings as errors)
  aegis lint --config aegis.yaml --strict

  # JSON output for CI/CD
  aegis lint --config aegis.yaml --format json`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.policyFile, "policy", "p", "", "policy file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of policy files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// ValidationResult represents the validation outcome for a single file.
type ValidationResult struct {
	File     string            `json:"file"`
	Kind     string            `json:"kind"`
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []ValidationError `json:"warnings,omitempty"`
}

// ValidationError represents a single validation error or warning. Field is
// the dotted path to the offending value when the violation is tied to one.
type ValidationError struct {
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Type     string `json:"type,omitempty"`
}

func runLint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var results []ValidationResult

	if lintFlags.policyFile != "" || lintFlags.dir != "" {
		files, err := collectPolicyFiles()
		if err != nil {
			return err
		}
		for _, file := range files {
			results = append(results, validatePolicyFile(ctx, file))
		}
	} else {
		configResult, policyPath := validateConfigFile(cfgFile)
		results = append(results, configResult)
		if policyPath != "" {
			results = append(results, validatePolicyFile(ctx, policyPath))
		}
	}

	if lintFlags.format == "json" {
		return outputJSON(results)
	}
	return outputText(os.Stdout, results, lintFlags.strict)
}

func collectPolicyFiles() ([]string, error) {
	var files []string

	if lintFlags.policyFile != "" {
		files = append(files, lintFlags.policyFile)
	}

	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to list policy files: %w", err)
			}
			files = append(files, matches...)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found")
	}
	return files, nil
}

// validateConfigFile loads and validates a configuration file. It returns the
// result and, when the configuration names a policy file, its path so the
// caller can validate that too.
func validateConfigFile(path string) (ValidationResult, string) {
	result := ValidationResult{
		File:  path,
		Kind:  "config",
		Valid: true,
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		result.Valid = false

		var validationErr config.ValidationError
		if errors.As(err, &validationErr) {
			for _, fieldErr := range validationErr.Errors {
				result.Errors = append(result.Errors, ValidationError{
					Field:    fieldErr.Field,
					Message:  fieldErr.Message,
					Severity: "error",
					Type:     "config",
				})
			}
		} else {
			result.Errors = append(result.Errors, ValidationError{
				Message:  err.Error(),
				Severity: "error",
				Type:     "syntax",
			})
		}
		return result, ""
	}

	result.Warnings = configWarnings(cfg)
	return result, cfg.Policy.FilePath
}

// configWarnings flags configurations that are valid but likely not what the
// operator intended.
func configWarnings(cfg *config.Config) []ValidationError {
	var warnings []ValidationError

	if cfg.Policy.Watch && cfg.Policy.FilePath == "" {
		warnings = append(warnings, ValidationError{
			Field:    "policy.watch",
			Message:  "watch is enabled but policy.file_path is empty; the built-in policy table is never reloaded",
			Severity: "warning",
			Type:     "config",
		})
	}

	if cfg.Audit.Enabled && cfg.Audit.Backend == "memory" {
		warnings = append(warnings, ValidationError{
			Field:    "audit.backend",
			Message:  "memory backend does not survive restarts; recorded decisions are lost on shutdown",
			Severity: "warning",
			Type:     "config",
		})
	}

	if cfg.Tracker.Enabled && cfg.Tracker.Backend == "memory" {
		warnings = append(warnings, ValidationError{
			Field:    "tracker.backend",
			Message:  "memory backend loses recurrence history on restart",
			Severity: "warning",
			Type:     "config",
		})
	}

	return warnings
}

func validatePolicyFile(ctx context.Context, path string) ValidationResult {
	result := ValidationResult{
		File:  path,
		Kind:  "policy",
		Valid: true,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	doc, err := source.NewFileSource(path, logger).Load(ctx)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Message:  err.Error(),
			Severity: "error",
			Type:     "syntax",
		})
		return result
	}

	if _, err := policy.NewTable(doc); err != nil {
		result.Valid = false

		var cfgErr *policy.ConfigError
		if errors.As(err, &cfgErr) {
			for _, fieldErr := range cfgErr.Errors {
				result.Errors = append(result.Errors, ValidationError{
					Field:    fieldErr.Field,
					Message:  fieldErr.Message,
					Severity: "error",
					Type:     "policy",
				})
			}
		} else {
			result.Errors = append(result.Errors, ValidationError{
				Message:  err.Error(),
				Severity: "error",
				Type:     "policy",
			})
		}
		return result
	}

	result.Warnings = policyWarnings(doc)
	return result
}

// policyWarnings flags policy documents that are valid but contain settings
// with no effect.
func policyWarnings(doc policy.Document) []ValidationError {
	var warnings []ValidationError

	if doc.ApplyMultiplier {
		allUnit := true
		for _, pol := range doc.Phases {
			if pol.ThresholdMultiplier != 1.0 {
				allUnit = false
				break
			}
		}
		if allUnit {
			warnings = append(warnings, ValidationError{
				Field:    "apply_multiplier",
				Message:  "apply_multiplier is enabled but every phase multiplier is 1.0, so classification is unchanged",
				Severity: "warning",
				Type:     "policy",
			})
		}
	}

	return warnings
}

func outputText(w io.Writer, results []ValidationResult, strict bool) error {
	totalErrors := 0
	totalWarnings := 0

	for _, result := range results {
		fmt.Fprintf(w, "Validating %s (%s)...\n", result.File, result.Kind)

		if len(result.Errors) == 0 && len(result.Warnings) == 0 {
			fmt.Fprintln(w, "✓ Syntax valid")
			switch result.Kind {
			case "config":
				fmt.Fprintln(w, "✓ Configuration valid")
			default:
				fmt.Fprintln(w, "✓ Phase policies consistent")
			}
		}

		for _, err := range result.Errors {
			fmt.Fprintf(w, "✗ Error: %s", err.Message)
			if err.Field != "" {
				fmt.Fprintf(w, " (%s)", err.Field)
			}
			if err.Type != "" {
				fmt.Fprintf(w, " [%s]", err.Type)
			}
			fmt.Fprintln(w)
			totalErrors++
		}

		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "⚠  Warning: %s", warn.Message)
			if warn.Field != "" {
				fmt.Fprintf(w, " (%s)", warn.Field)
			}
			fmt.Fprintln(w)
			totalWarnings++
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  %d error(s), %d warning(s)\n", totalErrors, totalWarnings)

	if strict && totalWarnings > 0 {
		fmt.Fprintln(w, "  Strict mode enabled: treating warnings as errors")
		return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
	}

	if totalErrors > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
	}

	return nil
}

func outputJSON(results []ValidationResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(results); err != nil {
		return err
	}

	for _, result := range results {
		if !result.Valid {
			return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
		}
		if lintFlags.strict && len(result.Warnings) > 0 {
			return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
		}
	}
	return nil
}
