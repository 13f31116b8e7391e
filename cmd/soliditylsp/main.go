// Command soliditylsp is the CLI bootstrap: load configuration, build
// the compiler driver, the orchestrator, and the LSP transport, then run
// the server on stdio.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/solidity-lsp/internal/compiler"
	"github.com/standardbeagle/solidity-lsp/internal/config"
	"github.com/standardbeagle/solidity-lsp/internal/debug"
	"github.com/standardbeagle/solidity-lsp/internal/lspserver"
	"github.com/standardbeagle/solidity-lsp/internal/orchestrator"
	"github.com/standardbeagle/solidity-lsp/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "soliditylsp",
		Usage:   "Language server for Solidity, backed by the compiler's own AST",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Workspace root (defaults to the current directory)",
			},
			&cli.StringFlag{
				Name:  "debug-log",
				Usage: "Write debug output to this file instead of the default temp location",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the language server on stdio",
				Action: func(c *cli.Context) error {
					return runServe(c)
				},
			},
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(c *cli.Context) error {
					fmt.Println(version.FullInfo())
					return nil
				},
			},
		},
		Action: func(c *cli.Context) error {
			return runServe(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(c *cli.Context) error {
	if c.Bool("debug") {
		debug.EnableDebug = "true"
	}
	// The LSP channel owns stdio; all debug output must go to a file.
	debug.SetStdioMode(true)
	var logErr error
	if logTarget := c.String("debug-log"); logTarget != "" {
		logErr = debug.InitDebugLogAt(logTarget)
	} else {
		_, logErr = debug.InitDebugLogFile()
	}
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open debug log: %v\n", logErr)
	} else {
		defer debug.CloseDebugLog()
	}

	root := c.String("root")
	var cfg *config.Config
	var err error
	if root != "" {
		cfg, err = config.LoadWithRoot(root)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	driver := compiler.NewProcessDriver(cfg.CompilerCommand, cfg.CompilerArgs, cfg.ProjectRoot)
	orch := orchestrator.New(driver, cfg)
	server := lspserver.New(orch)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	stream := jsonrpc2.NewBufferedStream(stdioReadWriteCloser{}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, server)
	<-conn.DisconnectNotify()
	return nil
}

// stdioReadWriteCloser adapts os.Stdin/os.Stdout to io.ReadWriteCloser
// for the JSON-RPC stream.
type stdioReadWriteCloser struct{}

func (stdioReadWriteCloser) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioReadWriteCloser) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioReadWriteCloser) Close() error {
	stdinErr := os.Stdin.Close()
	stdoutErr := os.Stdout.Close()
	if stdinErr != nil {
		return stdinErr
	}
	return stdoutErr
}

var _ io.ReadWriteCloser = stdioReadWriteCloser{}
