package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ukaji3/dataset-go/pkg/dataset"
	"github.com/ukaji3/dataset-go/pkg/dataset/models"
	"github.com/ukaji3/dataset-go/pkg/dataset/output"
)

type cli struct {
	configPath string
	jsonOut    bool
	pretty     bool
	manager    *dataset.Manager
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "dataset",
		Short: "Load, inspect and save metadata datasets",
		Long: `dataset loads dataset directories, parsing spreadsheet metadata files
into tables, and saves them back with tables exported as comma-separated text.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfig(c.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			c.manager, err = newManager(v, cmd.ErrOrStderr())
			return err
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML config file")
	pf.String("resources-dir", "", "resources directory holding templates/ (default: <install root>/../resources)")
	pf.String("template-version", dataset.DefaultTemplateVersion, "template version")
	pf.String("log-level", defaultLogLevel, "log level: debug, info, warn, error")

	rootCmd.AddCommand(c.templateCmd(), c.showCmd(), c.convertCmd())
	return rootCmd
}

func (c *cli) addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&c.jsonOut, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&c.pretty, "pretty", false, "pretty-print JSON output")
}

func (c *cli) showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <dir>",
		Short: "Load a dataset directory and list its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.manager.LoadDataset(args[0])
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}
			return c.printDataset(cmd.OutOrStdout(), ds)
		},
	}
	c.addOutputFlags(cmd)
	return cmd
}

func (c *cli) convertCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "convert <dir>... --out <dir>",
		Short: "Load one or more dataset directories and save them merged",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, dir := range args {
				if _, err := c.manager.LoadDataset(dir); err != nil {
					return fmt.Errorf("load dataset %s: %w", dir, err)
				}
			}
			if err := c.manager.SaveDataset(outDir); err != nil {
				return fmt.Errorf("save dataset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d entries to %s\n", c.manager.Dataset().Len(), outDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (c *cli) templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Work with the versioned dataset templates",
	}

	var version string

	versions := &cobra.Command{
		Use:   "versions",
		Short: "List available template versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vs, err := c.manager.ListTemplateVersions()
			if err != nil {
				return fmt.Errorf("list templates: %w", err)
			}
			for _, v := range vs {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}

	save := &cobra.Command{
		Use:   "save <dir>",
		Short: "Copy a template directory to a new location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.manager.SaveTemplate(args[0], version); err != nil {
				return fmt.Errorf("save template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "template %s saved to %s\n", c.manager.TemplateVersion(), args[0])
			return nil
		},
	}
	save.Flags().StringVar(&version, "version", "", "template version (default: --template-version)")

	show := &cobra.Command{
		Use:   "show",
		Short: "Load a template and list its entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.manager.LoadTemplate(version)
			if err != nil {
				return fmt.Errorf("load template: %w", err)
			}
			return c.printDataset(cmd.OutOrStdout(), ds)
		},
	}
	show.Flags().StringVar(&version, "version", "", "template version (default: --template-version)")
	c.addOutputFlags(show)

	cmd.AddCommand(versions, save, show)
	return cmd
}

func (c *cli) printDataset(w io.Writer, ds *models.Dataset) error {
	if c.jsonOut {
		data, err := output.ToJSON(ds, c.pretty)
		if err != nil {
			return fmt.Errorf("serialization failed: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tKIND\tROWS\tPATH")
	for _, s := range output.Summarize(ds) {
		rows := "-"
		if s.Kind == models.KindMetadata {
			rows = fmt.Sprint(s.Rows)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Key, s.Kind, rows, s.Path)
	}
	return tw.Flush()
}
