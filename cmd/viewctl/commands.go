package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/sitekit/viewscope"
	"github.com/sitekit/viewscope/pkg/domain"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store"
)

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "viewctl",
		Short:        "Inspect and edit website-aware views",
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.fixturePath, "fixture", "", "YAML fixture seeding an empty store")
	flags.StringVar(&opts.statePath, "state", "", "CBOR dump the in-memory store is loaded from and saved to")
	flags.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN; overrides the configuration")
	flags.Int64Var(&opts.websiteID, "website", 0, "website the command runs for (0 for none)")
	flags.StringVar(&opts.installModule, "install-module", "", "module being installed or updated")
	flags.BoolVar(&opts.bypass, "no-cow", false, "write and delete in place")
	flags.StringVar(&opts.lang, "lang", "", "language of the request")

	root.AddCommand(
		newResolveCmd(opts),
		newListCmd(opts),
		newWriteCmd(opts),
		newUnlinkCmd(opts),
		newInheritCmd(opts),
		newRelatedCmd(opts),
		newRenderCmd(opts),
		newDumpCmd(opts),
	)
	return root
}

// run opens the app, runs fn and closes the app again. Mutating commands
// save the state file afterwards.
func run(opts *options, mutates bool, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := opts.open(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); err == nil {
				err = cerr
			}
		}()
		if err := fn(cmd, a, args); err != nil {
			return err
		}
		if mutates {
			return a.save()
		}
		return nil
	}
}

func newResolveCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "resolve KEY",
		Short: "Print the id of the template a key resolves to",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON object")
	cmd.RunE = run(opts, false, func(cmd *cobra.Command, a *app, args []string) error {
		key := args[0]
		id, err := a.views.ViewID(cmd.Context(), a.env, parseRef(key))
		if err != nil {
			return err
		}
		if asJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
				"key":        key,
				"website_id": a.env.WebsiteID,
				"view_id":    id,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	})
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates, inactive ones included",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&key, "key", "", "only list templates with this key")
	cmd.RunE = run(opts, false, func(cmd *cobra.Command, a *app, args []string) error {
		q := store.Query{Order: domain.Order{domain.Asc(models.FieldID)}, WithInactive: true}
		if key != "" {
			q.Domain = domain.Eq(models.FieldKey, key)
		}
		views, err := a.views.Store().Search(cmd.Context(), q)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKEY\tWEBSITE\tTHEME\tINHERIT\tACTIVE\tNAME")
		for _, v := range views {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%t\t%s\n", v.ID, v.Key, v.WebsiteID, v.ThemeID, v.InheritID, v.Active, v.Name)
		}
		return tw.Flush()
	})
	return cmd
}

func newWriteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "write ID FIELD=VALUE...",
		Short: "Write field values with copy on write",
		Long: "Write field values with copy on write. Values parse as integers, " +
			"true, false or null when they can and as strings otherwise.",
		Args: cobra.MinimumNArgs(2),
		RunE: run(opts, true, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := models.ParseViewID(args[0])
			if err != nil {
				return err
			}
			vals, err := parseValues(args[1:])
			if err != nil {
				return err
			}
			return a.views.Write(cmd.Context(), a.env, []models.ViewID{id}, vals)
		}),
	}
}

func newUnlinkCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink ID...",
		Short: "Delete templates with copy on unlink",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(opts, true, func(cmd *cobra.Command, a *app, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return a.views.Unlink(cmd.Context(), a.env, ids)
		}),
	}
}

func newInheritCmd(opts *options) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "inherit ID",
		Short: "Print the archs applied on top of a template, in order",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&model, "model", "ir.ui.view", "model of the inheriting templates")
	cmd.RunE = run(opts, false, func(cmd *cobra.Command, a *app, args []string) error {
		id, err := models.ParseViewID(args[0])
		if err != nil {
			return err
		}
		entries, err := a.views.InheritingViewsArch(cmd.Context(), a.env, id, model)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", e.ID, e.Arch)
		}
		return nil
	})
	return cmd
}

func newRelatedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "related KEY",
		Short: "List a template and every template inheriting from it",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, false, func(cmd *cobra.Command, a *app, args []string) error {
			views, err := a.views.RelatedViews(cmd.Context(), a.env, nil, args[0])
			if err != nil {
				return err
			}
			for _, v := range views {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d\n", v.ID, v.Key, v.WebsiteID)
			}
			return nil
		}),
	}
}

func newRenderCmd(opts *options) *cobra.Command {
	var publisher bool
	cmd := &cobra.Command{
		Use:   "render KEY",
		Short: "Render a template as a frontend page of the website",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&publisher, "publisher", false, "render for a user who may edit the website")
	cmd.RunE = run(opts, false, func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()
		req := &viewscope.Request{Frontend: true, Publisher: publisher}
		if a.env.WebsiteID != 0 {
			website, err := a.views.Store().Website(ctx, a.env.WebsiteID)
			if err != nil {
				return err
			}
			req.Website = website
		}
		out, err := a.views.Render(ctx, a.env, req, parseRef(args[0]), nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	})
	return cmd
}

func newDumpCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the in-memory store as a CBOR dump",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write; defaults to the state file")
	cmd.RunE = run(opts, false, func(cmd *cobra.Command, a *app, args []string) error {
		if a.memory == nil {
			return fmt.Errorf("dump needs the in-memory store")
		}
		if out == "" {
			out = a.state
		}
		if out == "" {
			return a.memory.Dump(cmd.OutOrStdout())
		}
		a.state = out
		return a.save()
	})
	return cmd
}

// parseRef reads a numeric argument as a template id and anything else as
// a key.
func parseRef(arg string) models.ViewRef {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
		return models.IDRef(models.ViewID(id))
	}
	return models.KeyRef(arg)
}

func parseIDs(args []string) ([]models.ViewID, error) {
	ids := make([]models.ViewID, 0, len(args))
	for _, arg := range args {
		id, err := models.ParseViewID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseValues(args []string) (models.Values, error) {
	vals := make(models.Values, len(args))
	for _, arg := range args {
		field, raw, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected FIELD=VALUE", arg)
		}
		vals[field] = parseValue(raw)
	}
	if err := vals.Validate(); err != nil {
		return nil, err
	}
	return vals, nil
}

func parseValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
