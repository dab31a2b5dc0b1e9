package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/farmdirect/farmdirect/app/controllers"
	"github.com/farmdirect/farmdirect/app/routes"
	"github.com/farmdirect/farmdirect/internal/kernel"
	"github.com/farmdirect/farmdirect/internal/server"
)

// farmdirect serve: start the HTTP, socket and gRPC listeners.
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start()
	},
}

// farmdirect route:list prints all registered routes.
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		gql, err := controllers.NewGraphQLController(nil, nil)
		if err != nil {
			return err
		}
		// Handlers are never invoked here, so the controllers need no stores.
		api := routes.API{
			Geo:      controllers.NewGeoController(nil, 0),
			Orders:   controllers.NewOrderController(nil, nil),
			Chats:    controllers.NewChatController(nil, nil),
			Auth:     controllers.NewAuthController(nil),
			Presence: controllers.NewPresenceController(nil),
			GraphQL:  gql,
		}
		infos := kernel.NewHTTPKernel(api.Register).Router().Routes()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}
