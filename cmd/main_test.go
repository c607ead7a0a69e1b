package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeattack/internal/cli"
)

func TestRun(t *testing.T) {
	convey.Convey("Given the command line entry point", t, func() {
		ctx := context.Background()
		var stdout, stderr bytes.Buffer

		convey.Convey("When asking for help", func() {
			code := run(ctx, []string{"--help"}, &stdout, &stderr)

			convey.Convey("Then usage should be printed and the exit code be zero", func() {
				convey.So(code, convey.ShouldEqual, cli.ExitSuccess)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "timeattack")
				convey.So(stdout.String(), convey.ShouldContainSubstring, "serve")
			})
		})

		convey.Convey("When the config file is missing", func() {
			missing := filepath.Join(t.TempDir(), "missing.yaml")
			code := run(ctx, []string{"--config", missing, "poll"}, &stdout, &stderr)

			convey.Convey("Then the command error code should be returned", func() {
				convey.So(code, convey.ShouldEqual, cli.ExitCommandError)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "load config")
			})
		})

		convey.Convey("When the command is unknown", func() {
			code := run(ctx, []string{"launch"}, &stdout, &stderr)
			convey.So(code, convey.ShouldEqual, cli.ExitFailure)
		})
	})
}
