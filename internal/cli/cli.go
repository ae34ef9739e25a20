// Package cli parses command-line arguments into a dispatchable command.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandRecord  Command = "record"
	CommandStop    Command = "stop"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandAccept  Command = "accept"
	CommandReject  Command = "reject"
	CommandSet     Command = "set"
	CommandPeek    Command = "peek"
	CommandItems   Command = "items"
	CommandDelete  Command = "delete"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRecord:  {},
	CommandStop:    {},
	CommandCancel:  {},
	CommandStatus:  {},
	CommandAccept:  {},
	CommandReject:  {},
	CommandSet:     {},
	CommandPeek:    {},
	CommandItems:   {},
	CommandDelete:  {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	// set arguments
	Name  string
	Price *float64

	// delete argument
	ID string
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			rest := args[i+1:]
			switch cmd {
			case CommandSet:
				if err := parseSetArgs(&parsed, rest); err != nil {
					return Parsed{}, err
				}
			case CommandDelete:
				if len(rest) != 1 || strings.HasPrefix(rest[0], "-") {
					return Parsed{}, errors.New("delete requires exactly one item id")
				}
				parsed.ID = rest[0]
			default:
				if len(rest) != 0 {
					return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
				}
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

// parseSetArgs consumes --name and --price after the set command.
func parseSetArgs(parsed *Parsed, args []string) error {
	if len(args) == 0 {
		return errors.New("set requires --name and/or --price")
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--name":
			i++
			if i >= len(args) {
				return errors.New("--name requires a value")
			}
			parsed.Name = args[i]
		case "--price":
			i++
			if i >= len(args) {
				return errors.New("--price requires a value")
			}
			price, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return fmt.Errorf("invalid price %q", args[i])
			}
			parsed.Price = &price
		default:
			return fmt.Errorf("unknown set argument: %s", args[i])
		}
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  record    Start a recording (or stop the active one)
  stop      Stop the active recording and process it
  cancel    Cancel the active recording and discard audio
  status    Print current state, processing flag, and last error
  peek      Show the candidate pending review
  set       Edit the pending candidate (--name NAME, --price PRICE)
  accept    Save the pending candidate
  reject    Discard the pending candidate
  items     List saved items
  delete    Remove a saved item by id
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/outlay/config.conf)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
