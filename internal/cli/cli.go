package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandStatus    Command = "status"
	CommandQuit      Command = "quit"
	CommandDevices   Command = "devices"
	CommandDetectKey Command = "detect-key"
	CommandHistory   Command = "history"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:       {},
	CommandStatus:    {},
	CommandQuit:      {},
	CommandDevices:   {},
	CommandDetectKey: {},
	CommandHistory:   {},
	CommandDoctor:    {},
	CommandVersion:   {},
	CommandHelp:      {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

// Parse interprets CLI arguments. With no command the binary runs the
// push-to-talk daemon.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandRun}

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
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [command]

Commands:
  run          Run the push-to-talk daemon (default)
  status       Print the running daemon's state
  quit         Ask the running daemon to exit
  devices      List available input devices
  detect-key   Print the raw code of each pressed key
  history      Print recent transcripts
  doctor       Run configuration and environment checks
  version      Print version information
  help         Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/transcriber/config.yaml)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
