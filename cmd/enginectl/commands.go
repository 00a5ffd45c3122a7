package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/registry"
	transporthttp "github.com/rhuss/enginehub/pkg/transport/http"
)

// options holds the global flags.
type options struct {
	server  string
	apiKey  string
	timeout time.Duration
	json    bool
}

func newRootCommand(getenv func(string) string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "enginectl",
		Short:         "Inspect and operate an engine hub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := getenv("ENGINEHUB_URL")
	if server == "" {
		server = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "engine hub base URL (ENGINEHUB_URL)")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", getenv("ENGINEHUB_API_KEY"), "API key or bearer token (ENGINEHUB_API_KEY)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON")

	root.AddCommand(
		enginesCommand(opts),
		statusCommand(opts),
		modelsCommand(opts),
		refreshCommand(opts),
		agentsCommand(opts),
		streamsCommand(opts),
		cancelCommand(opts),
	)
	return root
}

func (o *options) client() *client {
	return newClient(o.server, o.apiKey, o.timeout)
}

func enginesCommand(opts *options) *cobra.Command {
	var favorites bool
	cmd := &cobra.Command{
		Use:   "engines",
		Short: "List configured engines and engine listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if favorites {
				q.Set("favorites", "true")
			}
			var resp transporthttp.EnginesResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/v1/engines", q, &resp); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			out := cmd.OutOrStdout()
			printStatuses(out, resp.Engines)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "standard:  %s\n", strings.Join(resp.Standard, ", "))
			fmt.Fprintf(out, "chat:      %s\n", strings.Join(resp.Chat, ", "))
			fmt.Fprintf(out, "priority:  %s\n", strings.Join(resp.Priority, ", "))
			fmt.Fprintf(out, "non-chat:  %s\n", strings.Join(resp.NonChat, ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&favorites, "favorites", false, "include the favorites pseudo engine when supported")
	return cmd
}

func statusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <engine>",
		Short: "Show the status of one engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var st registry.EngineStatus
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/v1/engines/"+url.PathEscape(args[0]), nil, &st); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), st)
			}
			printStatuses(cmd.OutOrStdout(), []registry.EngineStatus{st})
			return nil
		},
	}
}

func modelsCommand(opts *options) *cobra.Command {
	var (
		kind string
		live bool
	)
	cmd := &cobra.Command{
		Use:   "models <engine>",
		Short: "List the models of an engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"kind": {kind}}
			if live {
				q.Set("live", "true")
			}
			var resp transporthttp.ModelsResponse
			path := "/v1/engines/" + url.PathEscape(args[0]) + "/models"
			if err := opts.client().do(cmd.Context(), http.MethodGet, path, q, &resp); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, m := range resp.Models {
				fmt.Fprintf(tw, "%s\t%s\n", m.ID, m.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(api.KindChat), "model kind")
	cmd.Flags().BoolVar(&live, "live", false, "ask the engine directly instead of the cached catalog")
	return cmd
}

func refreshCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <engine>",
		Short: "Reload and persist the catalog of an engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp transporthttp.RefreshResponse
			path := "/v1/engines/" + url.PathEscape(args[0]) + "/models/refresh"
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, nil, &resp); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if !resp.Saved {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: catalog not saved (%d models cached)\n", resp.Engine, resp.Models)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d models saved\n", resp.Engine, resp.Models)
			return nil
		},
	}
}

func agentsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List agent definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp transporthttp.AgentsResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/v1/agents", nil, &resp); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tENGINE\tMODEL")
			for _, a := range resp.Agents {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, dash(a.EngineName()), dash(a.ModelName()))
			}
			return tw.Flush()
		},
	}
}

func streamsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "streams",
		Short: "List running completion streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp transporthttp.StreamsResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/v1/streams", nil, &resp); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tENGINE\tMODEL\tSTARTED")
			for _, s := range resp.Streams {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Engine, s.Model, s.Started.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func cancelCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <stream-id>",
		Short: "Cancel a running completion stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().do(cmd.Context(), http.MethodDelete, "/v1/streams/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s cancelled\n", args[0])
			return nil
		},
	}
}

func printStatuses(w io.Writer, statuses []registry.EngineStatus) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENGINE\tLABEL\tCUSTOM\tCONFIGURED\tREADY\tMODEL\tCHAT MODELS")
	for _, st := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%t\t%s\t%d\n",
			st.Name, dash(st.Label), st.Custom, st.Configured, st.Ready, dash(st.Model), st.Models[api.KindChat])
	}
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
