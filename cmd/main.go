package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/timeattack/internal/cli"
	"github.com/okian/timeattack/pkg/logger"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command tree and maps its error onto an exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(stderr, "timeattack: %v\n", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
