package main

import (
	"fmt"

	"github.com/celestiaorg/go-square/v2/share"
	"github.com/spf13/cobra"

	"github.com/celestiaorg/celestia-da-challenge/host"
)

const flagNamespace = "namespace"

func publishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish [files...]",
		Short: "Publish files as blobs and commit to them with an index blob",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id, _ := cmd.Flags().GetString(flagNamespace)
			namespace, err := share.NewV0Namespace([]byte(id))
			if err != nil {
				return fmt.Errorf("invalid namespace %q: %w", id, err)
			}
			payloads := make([][]byte, len(args))
			for i, path := range args {
				if payloads[i], err = readFile(path, "payload"); err != nil {
					return err
				}
			}

			node, err := a.dialCelestia(cmd.Context())
			if err != nil {
				return err
			}
			publisher := host.NewPublisher(node, a.metrics, a.logger)
			publisher.Policy = a.retryPolicy()
			publication, err := publisher.Publish(cmd.Context(), namespace, payloads)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, span := range publication.Blobs {
				fmt.Fprintf(out, "%s\t%s\n", args[i], span)
			}
			_, err = fmt.Fprintf(out, "index\t%s\n", publication.Index)
			return err
		},
	}
	cmd.Flags().String(flagNamespace, "da-chal", "namespace ID, up to 10 bytes")
	cmd.Flags().String(flagCelestiaRPCURL, "http://localhost:26658", "Celestia node JSON-RPC URL")
	cmd.Flags().String(flagCelestiaAuthToken, "", "Celestia node auth token")
	cmd.Flags().Int(flagHTTPTimeoutSeconds, 30, "timeout of network requests in seconds")
	return cmd
}
