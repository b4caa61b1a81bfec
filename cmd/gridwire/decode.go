package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/codewandler/gridwire-go/core/fragment"
	"github.com/codewandler/gridwire-go/core/protocol"
)

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Print the messages of a byte stream",
		ArgsUsage: "[file|-]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reassemble", Aliases: []string{"r"}, Usage: "Join fragments before printing"},
			&cli.BoolFlag{Name: "frames", Value: true, Usage: "Print every frame"},
		},
		Action: decodeAction,
	}
}

func decodeAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger(c, cfg)

	in := io.Reader(os.Stdin)
	if name := c.Args().First(); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer f.Close()
		in = f
	}

	out := c.App.Writer
	showFrames := c.Bool("frames")
	show := func(m *protocol.ClientMessage) { printMessage(out, m, showFrames) }

	deliver := show
	var asm *fragment.Assembler
	if c.Bool("reassemble") {
		asm, err = fragment.NewAssembler(fragment.AssemblerOptions{Handler: show, Log: log})
		if err != nil {
			return err
		}
		deliver = asm.Accept
	}

	n, err := readStream(in, cfg.Wire.MaxFrameLength, deliver)
	if err != nil {
		return cli.Exit(fmt.Sprintf("decode failed after %d messages: %v", n, err), 1)
	}
	if asm != nil && asm.Pending() > 0 {
		fmt.Fprintf(out, "%d incomplete fragment groups\n", asm.Pending())
	}
	return nil
}

// readStream decodes consecutive messages from r and passes each to fn. It
// returns the number of messages read.
func readStream(r io.Reader, maxFrameLength int, fn func(*protocol.ClientMessage)) (int, error) {
	buf := make([]byte, 32<<10)
	var (
		cur   *protocol.ClientMessage
		count int
	)
	for {
		n, err := r.Read(buf)
		src := bytes.NewReader(buf[:n])
		for src.Len() > 0 {
			if cur == nil {
				cur = protocol.CreateForRead(0, maxFrameLength)
			}
			done, rerr := cur.ReadFromBuffer(src)
			if rerr != nil {
				return count, rerr
			}
			if !done {
				break
			}
			fn(cur)
			cur = nil
			count++
		}
		if errors.Is(err, io.EOF) {
			if cur != nil {
				return count, io.ErrUnexpectedEOF
			}
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}
