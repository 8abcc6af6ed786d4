package cmd

import (
	"github.com/dux-project/dux/gateway"
	"github.com/dux-project/dux/remote"
	"github.com/dux-project/dux/treemap"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveArgs struct {
		endpoint string
		origins  []string

		tool         string
		listingDepth int

		maxRects int
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API for visualization frontends",
		Run:   serve,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveArgs.endpoint, "endpoint", ":8787", "HTTP API endpoint")
	serveCmd.Flags().StringSliceVar(&serveArgs.origins, "origins", nil, "Allowed CORS origins separated by comma, all if not specified")

	serveCmd.Flags().StringVar(&serveArgs.tool, "tool", "dux", "Companion tool to scan with on remote hosts")
	serveCmd.Flags().IntVar(&serveArgs.listingDepth, "listing-depth", 4, "Max depth of the fallback listing of remote scans")

	serveCmd.Flags().IntVar(&serveArgs.maxRects, "max-rects", 10000, "Default max number of treemap rectangles")

	rootCmd.AddCommand(serveCmd)
}

func serve(*cobra.Command, []string) {
	ctx, cancel := interruptContext()
	defer cancel()

	store := remote.NewMemoryStore()
	adapter := remote.NewAdapter(remote.NewSSHRunner(newLogOption()), store, remote.Options{
		Tool:         serveArgs.tool,
		ListingDepth: serveArgs.listingDepth,
	}, newLogOption())

	engine := treemap.NewEngine(treemap.Options{MaxRects: serveArgs.maxRects})
	session := gateway.NewSession(engine, adapter, store, newLogOption())

	logrus.WithField("endpoint", serveArgs.endpoint).Info("Start to serve HTTP API")

	gateway.MustServe(ctx, session, gateway.Config{
		Endpoint:       serveArgs.endpoint,
		OriginsAllowed: serveArgs.origins,
	})

	session.Cancel()
}
