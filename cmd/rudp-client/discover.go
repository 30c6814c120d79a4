package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/backkem/rudp/pkg/discovery"
	"github.com/spf13/cobra"
)

func newDiscoverCmd(o *options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List servers advertised on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lf, closer, err := o.loggerFactory(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			browser, err := discovery.NewBrowser(discovery.BrowserConfig{
				Timeout:       timeout,
				LoggerFactory: lf,
			})
			if err != nil {
				return err
			}

			servers, err := browser.Browse(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tADDRESS\tHOST")
			for _, srv := range servers {
				addr, err := srv.Address()
				if err != nil {
					addr = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", srv.Name(), addr, srv.HostName)
			}
			return w.Flush()
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", discovery.DefaultBrowseTimeout, "how long to listen for answers")

	return cmd
}
