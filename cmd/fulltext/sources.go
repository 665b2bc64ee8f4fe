// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jomare1188/studious-funicular/internal/source"
)

// credentialFor maps a source to the secrets file it needs, or "" for
// sources that fetch without credentials.
var credentialFor = map[source.Kind]string{
	source.KindSpringer:  "springer-api-key",
	source.KindElsevier:  "elsevier-api-key",
	source.KindWiley:     "wiley-tdm-token",
	source.KindUnpaywall: "unpaywall-email",
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured sources and their credential status",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tCREDENTIAL\tSTATUS")
		for _, kind := range source.Kinds() {
			cred, needs := credentialFor[kind]
			status := "ready"
			switch {
			case !needs:
				cred = "-"
			case loadedSecrets[cred] == "":
				status = "missing credential"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", kind, cred, status)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
