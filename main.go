package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/hangxie/luna-browser/cmd"
)

var cli struct {
	TUI   cmd.TUICmd   `cmd:"" name:"tui" default:"withargs" help:"Browse Augur collections in the terminal (default)."`
	Serve cmd.ServeCmd `cmd:"" help:"Run the Augur proxy and JSON API."`
	WebUI cmd.WebUICmd `cmd:"" name:"webui" help:"Run the web UI on top of the Augur proxy."`
}

func main() {
	parser := kong.Must(
		&cli,
		kong.Name("luna-browser"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Description("Browse satellite imagery areas of interest, archive and feasibility finders of an Augur backend, for full usage see https://github.com/hangxie/luna-browser/blob/main/README.md"),
	)
	kongplete.Complete(parser, kongplete.WithPredictor("file", complete.PredictFiles("*")))

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(ctx.Run())
}
