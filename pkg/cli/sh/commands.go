package sh

import (
	"strconv"

	"github.com/abiosoft/ishell"
)

func printResult(c *ishell.Context, out string, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(out)
}

var (
	// ByteSwapCmd sets or toggles the byte swap flag.
	ByteSwapCmd = ishell.Cmd{
		Name:    "byteswap",
		Aliases: []string{"b"},
		Help:    "[on|off] toggle byte swap",
		Func: func(c *ishell.Context) {
			out, err := ShellFrom(c).SetByteSwap(c.Args)
			printResult(c, out, err)
		},
	}

	// ChannelSwapCmd sets or toggles the channel swap flag.
	ChannelSwapCmd = ishell.Cmd{
		Name:    "chanswap",
		Aliases: []string{"c"},
		Help:    "[on|off] toggle red/blue channel swap",
		Func: func(c *ishell.Context) {
			out, err := ShellFrom(c).SetChannelSwap(c.Args)
			printResult(c, out, err)
		},
	}

	// FlagsCmd prints the orientation flags.
	FlagsCmd = ishell.Cmd{
		Name: "flags",
		Help: "print orientation flags",
		Func: func(c *ishell.Context) {
			out, err := ShellFrom(c).flagsOutput()
			printResult(c, out, err)
		},
	}

	// FrameCmd prints the latest frame summary.
	FrameCmd = ishell.Cmd{
		Name:    "frame",
		Aliases: []string{"f"},
		Help:    "print latest frame summary",
		Func: func(c *ishell.Context) {
			out, err := ShellFrom(c).FrameOutput()
			printResult(c, out, err)
		},
	}

	// StatusCmd prints the plant status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "print latest readings and plant state",
		Func: func(c *ishell.Context) {
			out, err := ShellFrom(c).StatusOutput()
			printResult(c, out, err)
		},
	}

	// HistoryCmd prints the prediction history.
	HistoryCmd = ishell.Cmd{
		Name:    "history",
		Aliases: []string{"h"},
		Help:    "[N] print the last N predictions",
		Func: func(c *ishell.Context) {
			var n int
			if len(c.Args) > 0 {
				var err error
				if n, err = strconv.Atoi(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			out, err := ShellFrom(c).HistoryOutput(n)
			printResult(c, out, err)
		},
	}
)
