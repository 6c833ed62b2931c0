// Package cli implements the parversion command-line interface.
package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/parversion/internal/app"
	"github.com/OFFIS-RIT/parversion/internal/config"
	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/loader"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
	"github.com/OFFIS-RIT/parversion/pkg/logger/console"
	"github.com/OFFIS-RIT/parversion/pkg/render"
)

const (
	appName = "parversion"

	// defaultConfigFile is read from the working directory when --config is
	// not given.
	defaultConfigFile = "parversion.toml"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// CLI holds the streams and hooks shared by all commands.
type CLI struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// IsTerminal reports whether Stdin is interactive.
	IsTerminal func() bool
	// AppOptions is passed to app.New for every run.
	AppOptions app.Options
}

// New returns a CLI bound to the process streams.
func New() *CLI {
	return &CLI{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		IsTerminal: stdinIsTerminal,
	}
}

func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

type options struct {
	file       string
	basis      string
	output     string
	url        string
	format     string
	configPath string
	verbose    bool
	write      bool
}

// RootCommand builds the parversion command.
func (c *CLI) RootCommand() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:   appName,
		Short: "Parversion turns markup documents into normalized JSON",
		Long: `Parversion analyzes an HTML or XML document, derives reusable basis
nodes and basis networks for its structure and prints the normalized document.

Input is read from --file (a path, s3://bucket/key or http(s) URL) or from
standard input. Basis data is kept in the store given by --basis or the
configuration.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, opts)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("%s %s\ncommit: %s\nbuilt: %s\n", appName, version, commit, date))
	root.SetOut(c.Stdout)
	root.SetErr(c.Stderr)

	f := root.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "input document (path, s3://bucket/key or URL); stdin when empty")
	f.StringVarP(&opts.basis, "basis", "b", "", "basis store file (.yaml, .yml or .json)")
	f.StringVarP(&opts.output, "output", "o", string(render.FormatJSON), "output format: json, xml or text")
	f.StringVarP(&opts.url, "url", "u", "", "source URL of the document")
	f.StringVar(&opts.format, "format", string(document.FormatAuto), "input format: auto, html or xml")
	f.StringVar(&opts.configPath, "config", "", "config file (default ./"+defaultConfigFile+" when present)")
	f.BoolVar(&opts.write, "write", false, "write <name>_organized.<ext> next to the input instead of stdout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	return root
}

func (c *CLI) run(cmd *cobra.Command, opts options) error {
	ctx := cmd.Context()

	cfg, err := c.loadConfig(opts)
	if err != nil {
		return err
	}
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Writer: c.Stderr,
	}))

	outFormat, err := render.ParseFormat(opts.output)
	if err != nil {
		return err
	}
	kind := loader.Source{Location: opts.file}.Kind()
	if opts.write && (opts.file == "" || kind != loader.SourceFile) {
		return errors.New("--write requires a local --file")
	}

	a, err := app.New(ctx, cfg, c.AppOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	text, err := c.readInput(cmd, a, opts.file)
	if err != nil {
		return err
	}

	sourceURL := opts.url
	if sourceURL == "" && kind == loader.SourceWeb {
		sourceURL = opts.file
	}

	res, err := a.AnalyzeText(ctx, text, document.ParseFormat(opts.format), sourceURL)
	a.LogModelMetrics()
	if err != nil {
		return err
	}

	if !opts.write {
		return render.Render(c.Stdout, res, outFormat)
	}

	var buf bytes.Buffer
	if err := render.Render(&buf, res, outFormat); err != nil {
		return err
	}
	path := OutputPath(opts.file, outFormat)
	if err := writeFile(path, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("[CLI] Wrote output", "path", path)
	return nil
}

// writeFile replaces path with data through a temp file in the same
// directory, so readers never see a partial document.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", common.ErrOutputIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %w", common.ErrOutputIO, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %w", common.ErrOutputIO, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", common.ErrOutputIO, path, err)
	}
	return nil
}

func (c *CLI) loadConfig(opts options) (*config.Config, error) {
	path := opts.configPath
	if path == "" && config.Exists(defaultConfigFile) {
		path = defaultConfigFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.basis != "" {
		cfg.Store.Backend = "file"
		cfg.Store.Path = opts.basis
	}
	if opts.verbose {
		cfg.Debug = true
	}
	return cfg, nil
}

func (c *CLI) readInput(cmd *cobra.Command, a *app.App, file string) (string, error) {
	if file != "" {
		return a.Load(cmd.Context(), file)
	}
	if c.IsTerminal != nil && c.IsTerminal() {
		return "", fmt.Errorf("%w: no input, pass --file or pipe a document on stdin", common.ErrInputIO)
	}
	b, err := io.ReadAll(c.Stdin)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read stdin: %w", common.ErrInputIO, err)
	}
	return string(b), nil
}

// OutputPath returns the file --write produces for input.
func OutputPath(input string, format render.Format) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_organized." + format.Extension()
}
