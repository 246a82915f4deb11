package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"rawrsgdb/emu"
	"rawrsgdb/emu/log"
)

type mode byte

const (
	serveMode   mode = iota // Serve a binary to gdb
	infoMode                // Show ELF infos
	ctlMode                 // Control a running server
	versionMode             // Show rawrsgdb version
)

type (
	CLI struct {
		Serve   Serve   `cmd:"" help:"Serve a RISC-V binary to gdb. (default command)" default:"withargs"`
		Info    Info    `cmd:"" help:"Show ELF binary infos."`
		Ctl     Ctl     `cmd:"" help:"Control a running server."`
		Version Version `cmd:"" help:"Show rawrsgdb version."`

		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
		Config string     `name:"config" help:"${config_help}" type:"existingfile"`

		mode mode
	}

	Serve struct {
		BinPath string `arg:"" optional:"" name:"/path/to/elf" help:"${binpath_help}" type:"existingfile"`

		Listen      string   `name:"listen" help:"TCP address gdb connects to." placeholder:"HOST:PORT"`
		Websocket   string   `name:"websocket" help:"Serve the websocket endpoint /ws on this address." placeholder:"HOST:PORT"`
		Serial      string   `name:"serial" help:"Serial device gdb is attached to." type:"path"`
		Baud        int      `name:"baud" help:"Serial line speed."`
		ControlPort int      `name:"control-port" help:"Port of the control server."`
		Strict      bool     `name:"strict" help:"Reject packets with a bad checksum."`
		NoAck       bool     `name:"no-ack" help:"Do not acknowledge packets."`
		ExecFile    string   `name:"exec-file" help:"Executable path reported to gdb."`
		MaxSteps    uint64   `name:"max-steps" help:"Maximum number of instructions run by a single continue."`
		Watch       bool     `name:"watch" help:"Reload the binary when it changes on disk."`
		Trace       *outfile `name:"trace" help:"Write packet trace as JSON lines." placeholder:"FILE|stdout|stderr"`
	}

	Info struct {
		BinPath string `arg:"" name:"/path/to/elf" type:"existingfile"`
		JSON    bool   `name:"json" help:"Output JSON."`
	}

	Ctl struct {
		Action string `arg:"" enum:"status,disconnect,quit" help:"One of status, disconnect or quit."`
		Port   int    `name:"port" help:"Port of the control server." required:""`
		JSON   bool   `name:"json" help:"Output status as JSON."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"binpath_help": "RISC-V ELF executable to load. Without one, gdb talks to an empty machine.",
	"config_help":  "Configuration file. (default: config.toml in the user config directory)",
	"log_help":     "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("rawrsgdb"),
		kong.Description("gdb remote stub for a RISC-V simulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch cmd := ctx.Command(); {
	case strings.HasPrefix(cmd, "info"):
		cfg.mode = infoMode
	case strings.HasPrefix(cmd, "ctl"):
		cfg.mode = ctlMode
	case cmd == "version":
		cfg.mode = versionMode
	default:
		cfg.mode = serveMode
	}
	return cfg
}

// apply overrides cfg with the flags that were set.
func (s *Serve) apply(cfg *emu.Config) {
	if s.Listen != "" {
		cfg.Server.Listen = s.Listen
	}
	if s.Websocket != "" {
		cfg.Server.Websocket = s.Websocket
	}
	if s.Serial != "" {
		cfg.Server.Serial = s.Serial
	}
	if s.Baud != 0 {
		cfg.Server.Baud = s.Baud
	}
	if s.ControlPort != 0 {
		cfg.Server.ControlPort = s.ControlPort
	}
	if s.Strict {
		cfg.GDB.StrictChecksum = true
	}
	if s.NoAck {
		cfg.GDB.Ack = false
	}
	if s.ExecFile != "" {
		cfg.GDB.ExecFile = s.ExecFile
	}
	if s.MaxSteps != 0 {
		cfg.Machine.MaxSteps = s.MaxSteps
	}
	if s.Watch {
		cfg.Machine.WatchBinary = true
	}
	if s.Trace != nil {
		cfg.TraceOut = s.Trace
	}
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "serve") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
