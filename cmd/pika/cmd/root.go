package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gopika/gopika/pkg/pika"
)

// Version information (set by build flags), following the teacher's
// ldflags-overridable var pattern.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	filePath    string
	scriptArgs  []string
	searchPaths []string
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "pika [file] [args...]",
	Short: "Run a pika script against the embeddable runtime substrate",
	Long: `pika is a thin command-line front end over the embeddable runtime
substrate in pkg/pika. It builds an Engine, wires the requested search
paths, and compiles/runs the named file.

This module ships no source-to-bytecode compiler (the runtime
substrate's own Non-goal): running an actual script requires an
embedder to supply one via pika.WithScriptCompiler. Without one, this
front end reports that plainly instead of pretending to execute
anything.`,
	Args: cobra.ArbitraryArgs,
	RunE: runPika,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&filePath, "file", "f", "", "script file to run")
	rootCmd.Flags().StringArrayVarP(&scriptArgs, "arg", "a", nil, "argument passed to the script (repeatable)")
	rootCmd.Flags().StringArrayVarP(&searchPaths, "path", "p", nil, "additional search path for imports (repeatable)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print version information and exit")
}

func runPika(_ *cobra.Command, args []string) error {
	if showVersion {
		printVersion()
		return nil
	}

	// spec.md §6.5: "Non-flag positional before the file becomes the
	// file; subsequent positionals become arguments."
	file := filePath
	positional := args
	if file == "" && len(positional) > 0 {
		file = positional[0]
		positional = positional[1:]
	}
	scriptArgs = append(scriptArgs, positional...)

	if file == "" {
		return fmt.Errorf("no script file given; use -f/--file or pass one as a positional argument")
	}

	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	e := pika.Create(pika.WithSearchPaths(searchPaths...))
	defer e.Release()

	scr, err := e.Compile(file, src)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", file, err)
	}

	argVals := make([]pika.Value, len(scriptArgs))
	for i, a := range scriptArgs {
		argVals[i] = e.NewString(a)
	}
	result, err := scr.Run(argVals...)
	if err != nil {
		return fmt.Errorf("running %s: %w", file, err)
	}
	fmt.Println(result.DebugString())
	return nil
}

func printVersion() {
	fmt.Printf("pika version %s\n", Version)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Build Date: %s\n", BuildDate)
}
