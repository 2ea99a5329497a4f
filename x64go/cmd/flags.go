package cmd

import (
	"github.com/urfave/cli/v2"
)

const envVarPrefix = "SIDESTEP"

func prefixEnvVars(name string) []string {
	return []string{envVarPrefix + "_" + name}
}

var (
	StrictFlag = &cli.BoolFlag{
		Name:    "strict",
		Usage:   "also record FS/GS based, absolute and implicit stack accesses",
		EnvVars: prefixEnvVars("STRICT"),
	}
	SymbolizeFlag = &cli.BoolFlag{
		Name:    "symbolize",
		Usage:   "name the diverging instruction with the tracee's ELF symbols",
		EnvVars: prefixEnvVars("SYMBOLIZE"),
	}
	DumpDirFlag = &cli.PathFlag{
		Name:    "dump-dir",
		Usage:   "directory to write the two diverging window traces to",
		EnvVars: prefixEnvVars("DUMP_DIR"),
	}
	DumpFmtFlag = &cli.StringFlag{
		Name:    "dump-fmt",
		Usage:   "format of trace dump file names, with a %d verb for the window number. Gzipped when ending in .gz",
		Value:   "window-%06d.json.gz",
		EnvVars: prefixEnvVars("DUMP_FMT"),
	}
	MaxWindowsFlag = &cli.IntFlag{
		Name:    "max-windows",
		Usage:   "stop tracing after this many windows, 0 for no limit",
		EnvVars: prefixEnvVars("MAX_WINDOWS"),
	}
	LogLevelFlag = &cli.StringFlag{
		Name:    "log.level",
		Usage:   "lowest log level to output: trace, debug, info, warn, error, crit",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
	}
	PProfCPUFlag = &cli.BoolFlag{
		Name:    "pprof.cpu",
		Usage:   "enable pprof cpu profiling of the tracer",
		EnvVars: prefixEnvVars("PPROF_CPU"),
	}
	AddrFlag = &cli.StringFlag{
		Name:  "addr",
		Usage: "virtual address of the first decoded byte, in hex",
		Value: "0x0",
	}
	ListFlag = &cli.BoolFlag{
		Name:  "list",
		Usage: "list the built-in scenarios",
	}
)

func traceFlags() []cli.Flag {
	return []cli.Flag{
		StrictFlag,
		SymbolizeFlag,
		DumpDirFlag,
		DumpFmtFlag,
		MaxWindowsFlag,
		LogLevelFlag,
		PProfCPUFlag,
	}
}
