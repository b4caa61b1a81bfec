package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/codewandler/gridwire-go/core/fragment"
	"github.com/codewandler/gridwire-go/core/protocol"
)

func splitCommand() *cli.Command {
	return &cli.Command{
		Name:  "split",
		Usage: "Build a message and print or write its fragments",
		Flags: []cli.Flag{
			thresholdFlag,
			&cli.IntFlag{Name: "frames", Value: 16, Usage: "Number of payload frames"},
			&cli.IntFlag{Name: "size", Value: 1024, Usage: "Payload bytes per frame"},
			&cli.IntFlag{Name: "type", Value: int(protocol.UserTypeMin), Usage: "Message type"},
			&cli.IntFlag{Name: "partition", Value: int(protocol.NoPartition), Usage: "Partition id"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the fragment stream to this file instead of printing"},
		},
		Action: splitAction,
	}
}

// sampleMessage builds a message of n frames; frame i repeats byte i.
func sampleMessage(msgType uint16, partitionID int32, n, size int) *protocol.ClientMessage {
	m := protocol.CreateForEncode(0).
		SetMessageType(msgType).
		SetCorrelationID(1).
		SetPartitionID(partitionID)
	for i := range n {
		m.AddFrame(protocol.NewFrame(bytes.Repeat([]byte{byte(i)}, size)))
	}
	return m.UpdateFrameLength()
}

func splitAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sp, err := fragment.NewSplitter(fragment.SplitterOptions{Threshold: cfg.Wire.FragmentThreshold})
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	msg := sampleMessage(uint16(c.Int("type")), int32(c.Int("partition")), c.Int("frames"), c.Int("size"))
	parts := sp.Split(msg)

	if path := c.String("out"); path != "" {
		var buf bytes.Buffer
		for _, p := range parts {
			buf.Write(p.Bytes())
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Fprintf(c.App.Writer, "wrote %d fragments, %d bytes to %s\n", len(parts), buf.Len(), path)
		return nil
	}

	fmt.Fprintf(c.App.Writer, "message of %d bytes, threshold %d: %d fragments\n", msg.Size(), sp.Threshold(), len(parts))
	for _, p := range parts {
		printMessage(c.App.Writer, p, false)
	}
	return nil
}
