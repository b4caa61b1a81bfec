// Command gridwire inspects, produces and exchanges client protocol
// messages.
//
// Usage:
//
//	gridwire [--config gridwire.yaml] <command> [options]
//
// Commands:
//   - decode: print the messages of a byte stream, optionally reassembled
//   - split: build a message and write or print its fragments
//   - serve: run an echo member
//   - bench: invoke against members and report throughput
//   - relay: publish or receive messages over a NATS subject
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "gridwire",
		Usage:          "Client protocol message tool",
		Version:        version,
		Flags:          []cli.Flag{configFlag, logLevelFlag},
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			decodeCommand(),
			splitCommand(),
			serveCommand(),
			benchCommand(),
			relayCommand(),
		},
	}
}

// exitErrHandler keeps the exit code of cli.Exit errors.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(c.App.ErrWriter, msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(c.App.ErrWriter, "Error: %v\n", err)
}
