// Command nunjucks renders templates and reports on their structure.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deicod/nunjucks/nodes"
	"github.com/deicod/nunjucks/runtime"
)

type options struct {
	dataPath   string
	configPath string
	autoescape bool
	debug      bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "nunjucks",
		Short:         "Render and inspect nunjucks templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = newLogger(opts.debug)
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to environment configuration file")
	rootCmd.PersistentFlags().BoolVar(&opts.autoescape, "autoescape", false, "HTML escape output values")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	renderCmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.OutOrStdout(), opts, args[0])
		},
	}
	renderCmd.Flags().StringVar(&opts.dataPath, "data", "", "YAML file with template variables")

	checkCmd := &cobra.Command{
		Use:   "check <template>",
		Short: "Compile a template and list its entry points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), opts, args[0])
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <template>",
		Short: "Print the parsed template tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.OutOrStdout(), opts, args[0])
		},
	}

	rootCmd.AddCommand(renderCmd, checkCmd, dumpCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadEnvironment builds the environment from --config, or else from the
// template's directory. It returns the name to load the template by.
func loadEnvironment(opts *options, template string) (*runtime.Environment, string, error) {
	if opts.configPath != "" {
		cfg, err := runtime.LoadConfig(opts.configPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading config: %w", err)
		}
		env, err := runtime.NewEnvironmentFromConfig(cfg, opts.logger)
		if err != nil {
			return nil, "", err
		}
		if opts.autoescape {
			env.SetAutoescape(true)
		}
		return env, template, nil
	}

	abs, err := filepath.Abs(template)
	if err != nil {
		return nil, "", err
	}
	env := runtime.NewEnvironment().WithLogger(opts.logger)
	env.SetLoader(runtime.NewFileSystemLoader(filepath.Dir(abs)))
	env.SetAutoescape(opts.autoescape)
	return env, filepath.Base(abs), nil
}

func loadData(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	data := map[string]interface{}{}
	if err := yaml.NewDecoder(fh).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return data, nil
}

func runRender(w io.Writer, opts *options, template string) error {
	env, name, err := loadEnvironment(opts, template)
	if err != nil {
		return err
	}
	data, err := loadData(opts.dataPath)
	if err != nil {
		return err
	}

	out, err := env.Render(name, data)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func runCheck(w io.Writer, opts *options, template string) error {
	env, name, err := loadEnvironment(opts, template)
	if err != nil {
		return err
	}
	tmpl, err := env.LoadTemplate(name)
	if err != nil {
		return err
	}
	unit, err := tmpl.Unit()
	if err != nil {
		return fmt.Errorf("compiling %s: %w", name, err)
	}

	entries := make([]string, 0, len(unit.Blocks)+1)
	for entry := range unit.Entries() {
		entries = append(entries, entry)
	}
	sort.Strings(entries)
	fmt.Fprintf(w, "%s: ok\n", name)
	for _, entry := range entries {
		fmt.Fprintf(w, "  %s\n", entry)
	}
	return nil
}

func runDump(w io.Writer, opts *options, template string) error {
	env, name, err := loadEnvironment(opts, template)
	if err != nil {
		return err
	}
	tmpl, err := env.LoadTemplate(name)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, nodes.Dump(tmpl.AST()))
	return nil
}
