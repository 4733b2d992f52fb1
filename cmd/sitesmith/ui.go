package main

import (
	"fmt"
	"net/http"

	"github.com/sitesmith/sitesmith/internal/journal"
	"github.com/sitesmith/sitesmith/internal/web"
	"github.com/spf13/cobra"
)

func uiCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:          "ui",
		Short:        "Start the web dashboard",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			journalDB, _, closeFn, err := openJournal()
			if err != nil {
				return err
			}
			defer closeFn()

			_, dotDir, err := projectDirs()
			if err != nil {
				return err
			}
			server := web.NewServer(snapshotStore(dotDir), journal.NewStore(journalDB))

			addr := fmt.Sprintf(":%d", port)
			fmt.Printf("Starting dashboard on http://localhost%s\n", addr)
			return http.ListenAndServe(addr, server.Routes())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	return cmd
}
