package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/keymarks/internal/config"
	"github.com/dshills/keymarks/internal/host"
	"github.com/dshills/keymarks/internal/mark"
)

// NewRootCmd creates the keymarks root command.
func NewRootCmd(version, commit, buildDate string) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "keymarks",
		Short:         "Per-project file marks",
		Long:          `Keep short, per-project lists of files and cursor positions and jump between them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Config file (.toml, .yaml or .lua)")
	pf.StringVar(&f.dataDir, "data-dir", "", "Directory holding persisted lists")
	pf.StringVarP(&f.list, "list", "l", "", "List name (default list when empty)")
	pf.StringVar(&f.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&f.root, "root", "", "Project root (current directory when empty)")

	root.AddCommand(
		newAddCmd(f),
		newListCmd(f),
		newRmCmd(f),
		newSelectCmd(f),
		newClearCmd(f),
		newCycleCmd(f, true),
		newCycleCmd(f, false),
		newSetCmd(f),
		newDropCmd(f),
		newListsCmd(f),
		newConfigCmd(f),
		newWatchCmd(f),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "keymarks %s\n", version)
				fmt.Fprintf(out, "commit: %s\n", commit)
				fmt.Fprintf(out, "built: %s\n", buildDate)
			},
		},
	)
	return root
}

// withApp runs fn with a fresh app and closes it afterwards.
func withApp(f *flags, fn func(a *app) error) error {
	a, err := newApp(f)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn("close: %v", err)
		}
	}()
	return fn(a)
}

func newAddCmd(f *flags) *cobra.Command {
	var row, col int
	var prepend bool

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Mark a file at a cursor position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(f, func(a *app) error {
				if _, err := a.open(args[0]); err != nil {
					return err
				}
				if err := a.host.SetCursor(host.Position{Row: row, Col: col}); err != nil {
					return err
				}

				insert := a.marks.Add
				if prepend {
					insert = a.marks.Prepend
				}
				item, err := insert(a.list, nil)
				if err != nil {
					return err
				}
				if err := a.marks.Sync(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatItem(item))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&row, "row", 1, "Cursor row (1-based)")
	cmd.Flags().IntVar(&col, "col", 0, "Cursor column (0-based)")
	cmd.Flags().BoolVar(&prepend, "prepend", false, "Insert at the front of the list")
	return cmd
}

func newListCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the marks of a list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(f, func(a *app) error {
				list, err := a.marks.List(a.list)
				if err != nil {
					return err
				}
				printList(cmd, list)
				return nil
			})
		},
	}
}

func newRmCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file|index>",
		Short: "Remove a mark by file or 1-based index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(f, func(a *app) error {
				if i, err := strconv.Atoi(args[0]); err == nil {
					item, err := a.marks.RemoveAt(a.list, i-1)
					if err != nil {
						return fmt.Errorf("no mark at index %d: %w", i, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "removed", item.Value)
					return a.marks.Sync()
				}

				list, err := a.marks.List(a.list)
				if err != nil {
					return err
				}
				value := normalizeArg(a, args[0])
				item, _ := list.GetByValue(value)
				if item == nil {
					if item, err = list.Config().CreateItem(value); err != nil {
						return err
					}
				}
				removed, err := a.marks.Remove(a.list, item)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("%s is not marked", item.Value)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "removed", item.Value)
				return a.marks.Sync()
			})
		},
	}
}

func newSelectCmd(f *flags) *cobra.Command {
	var opts mark.SelectOptions

	cmd := &cobra.Command{
		Use:   "select <index>",
		Short: "Jump to the mark at a 1-based index and print path:row:col",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			return withApp(f, func(a *app) error {
				list, err := a.marks.List(a.list)
				if err != nil {
					return err
				}
				if list.Get(i-1) == nil && !list.Config().SelectWithNil() {
					return fmt.Errorf("no mark at index %d", i)
				}
				if err := a.marks.Select(a.list, i-1, opts); err != nil {
					return err
				}

				if err := a.current(cmd.OutOrStdout()); err != nil {
					return err
				}
				return a.marks.OnUIClose()
			})
		},
	}
	addSelectFlags(cmd, &opts)
	return cmd
}

func addSelectFlags(cmd *cobra.Command, opts *mark.SelectOptions) {
	cmd.Flags().BoolVar(&opts.VSplit, "vsplit", false, "Open in a vertical split")
	cmd.Flags().BoolVar(&opts.Split, "split", false, "Open in a horizontal split")
	cmd.Flags().BoolVar(&opts.TabEdit, "tabedit", false, "Open in a new tab")
}

// newCycleCmd builds next (forward) and prev. --from names the file being
// edited; without it next lands on the first mark and prev on the last.
func newCycleCmd(f *flags, forward bool) *cobra.Command {
	var opts mark.SelectOptions
	var from string

	use, short := "next", "Jump to the mark after --from, wrapping around"
	if !forward {
		use, short = "prev", "Jump to the mark before --from, wrapping around"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(f, func(a *app) error {
				if from != "" {
					if _, err := a.open(from); err != nil {
						return err
					}
				}
				list, err := a.marks.List(a.list)
				if err != nil {
					return err
				}
				if list.Len() == 0 {
					return fmt.Errorf("no marks")
				}

				step := a.marks.Next
				list.SetCursor(list.Len() - 1)
				if !forward {
					step = a.marks.Prev
					list.SetCursor(0)
				}
				if err := step(a.list, opts); err != nil {
					return err
				}
				if err := a.current(cmd.OutOrStdout()); err != nil {
					return err
				}
				return a.marks.OnUIClose()
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "File currently being edited")
	addSelectFlags(cmd, &opts)
	return cmd
}

func newSetCmd(f *flags) *cobra.Command {
	var row, col int

	cmd := &cobra.Command{
		Use:   "set <index> <file>",
		Short: "Replace the mark at a 1-based index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			return withApp(f, func(a *app) error {
				item := &mark.Item{
					Value:   normalizeArg(a, args[1]),
					Context: mark.Context{Row: row, Col: col},
				}
				if err := a.marks.Replace(a.list, i-1, item); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatItem(item))
				return a.marks.Sync()
			})
		},
	}
	cmd.Flags().IntVar(&row, "row", 1, "Cursor row (1-based)")
	cmd.Flags().IntVar(&col, "col", 0, "Cursor column (0-based)")
	return cmd
}

func newDropCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Delete a list from the data file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(f, func(a *app) error {
				return a.marks.Delete(a.list)
			})
		},
	}
}

func newListsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show the stored lists of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(f, func(a *app) error {
				names, err := a.marks.Stored()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}

func newClearCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every mark of a list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(f, func(a *app) error {
				if err := a.marks.Clear(a.list); err != nil {
					return err
				}
				return a.marks.Sync()
			})
		},
	}
}

// configView is the printable part of a configuration.
type configView struct {
	Key           string              `yaml:"key"`
	DataFile      string              `yaml:"data_file"`
	SaveOnToggle  bool                `yaml:"save_on_toggle"`
	SyncOnUIClose bool                `yaml:"sync_on_ui_close"`
	Lists         map[string]listView `yaml:"lists"`
}

type listView struct {
	SelectWithNil bool     `yaml:"select_with_nil"`
	Autocmds      []string `yaml:"autocmds"`
	Hooks         []string `yaml:"hooks,omitempty"`
}

func newConfigCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(f, func(a *app) error {
				cfg := a.marks.Config()
				view := configView{
					Key:           cfg.Key(),
					DataFile:      a.store.Path(cfg.Key()),
					SaveOnToggle:  cfg.Settings.SaveOnToggle,
					SyncOnUIClose: cfg.Settings.SyncOnUIClose,
					Lists:         map[string]listView{config.KeyDefault: viewOf(cfg.Default)},
				}
				for _, name := range cfg.ListNames() {
					view.Lists[name] = viewOf(cfg.ListConfig(name))
				}

				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(view); err != nil {
					return err
				}
				return enc.Close()
			})
		},
	}
}

func viewOf(lc *config.ListConfig) listView {
	v := listView{SelectWithNil: lc.SelectWithNil, Autocmds: lc.Autocmds}
	if v.Autocmds == nil {
		v.Autocmds = []string{}
	}
	for name, h := range lc.Hooks {
		if h != nil {
			v.Hooks = append(v.Hooks, name)
		}
	}
	sort.Strings(v.Hooks)
	return v
}

func newWatchCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print a list whenever another session saves it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(f, func(a *app) error {
				show := func() {
					a.marks.Reload()
					list, err := a.marks.List(a.list)
					if err != nil {
						a.log.Warn("reload: %v", err)
						return
					}
					printList(cmd, list)
				}
				show()
				return a.store.Watch(ctx, a.marks.Key(), show)
			})
		},
	}
}

func printList(cmd *cobra.Command, list *mark.List) {
	out := cmd.OutOrStdout()
	if list.Len() == 0 {
		fmt.Fprintln(out, "No marks.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	for i, it := range list.Items() {
		fmt.Fprintf(w, "%d\t%s\t%d:%d\n", i+1, list.Config().Display(it), it.Context.Row, it.Context.Col)
	}
}

func formatItem(item *mark.Item) string {
	return fmt.Sprintf("%s:%d:%d", item.Value, item.Context.Row, item.Context.Col)
}

// normalizeArg maps a file argument onto a mark value.
func normalizeArg(a *app, file string) string {
	if filepath.IsAbs(file) {
		return host.NormalizePath(file, a.root)
	}
	return host.NormalizePath(filepath.Join(a.root, file), a.root)
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return NewRootCmd(version, commit, buildDate).ExecuteContext(ctx)
}
