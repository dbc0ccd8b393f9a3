package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"playback-service/internal/config"
)

var secretKeys = []string{"youtube.api_key", "youtube.player_key", "spotify.client_secret"}

func newConfigCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := lo.Map(config.Settings(v), func(f config.Field, _ int) config.Field {
				if lo.Contains(secretKeys, f.Key) && fmt.Sprint(f.Value) != "" {
					f.Value = "********"
				}
				return f
			})

			out := cmd.OutOrStdout()
			if asJSON {
				values := lo.SliceToMap(settings, func(f config.Field) (string, any) {
					return f.Key, f.Value
				})
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(values)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tENV\tVALUE")
			for _, f := range settings {
				value := fmt.Sprint(f.Value)
				if list, ok := f.Value.([]string); ok {
					value = strings.Join(list, ",")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.Key, f.Env, value)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
