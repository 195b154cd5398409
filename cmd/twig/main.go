// cmd/twig/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"twig/internal/errors"
	"twig/internal/object"
	"twig/internal/ref"
	"twig/internal/repository"
	"twig/internal/validation"
	"twig/internal/workspace"
	"twig/shared/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger  = zap.NewNop()
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "twig",
	Short: "Twig is a minimal content-addressed version control system",
	Long: `Twig stages file contents as blobs, snapshots the index into trees and
links trees into a linear chain of commits on the master reference.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log repository operations")

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize a new Twig repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			if err := workspace.Init(dir); err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}

			fmt.Println("Initialized empty Twig repository in", dir)
			return nil
		},
	}

	var addCmd = &cobra.Command{
		Use:   "add [paths...]",
		Short: "Stage file contents",
		Long:  `Stages the named files. Directories, including '.', stage every file beneath them.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			staged, err := w.Add(args)
			if err != nil {
				return fmt.Errorf("staging: %w", err)
			}

			fmt.Printf("Staged %d file(s)\n", len(staged))
			return nil
		},
	}

	var rmCmd = &cobra.Command{
		Use:   "rm --cached [names...]",
		Short: "Remove names from the index",
		Long:  `Removes names from the index. Files in the worktree are never touched.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cached, _ := cmd.Flags().GetBool("cached"); !cached {
				return fmt.Errorf("only --cached removal is supported")
			}

			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			for _, name := range args {
				if err := w.Repo.Unstage(name); err != nil {
					return fmt.Errorf("unstaging %s: %w", name, err)
				}
				fmt.Printf("rm '%s'\n", name)
			}
			return nil
		},
	}

	var commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Record the index as a new commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")

			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			state, err := w.Repo.State()
			if err != nil {
				return fmt.Errorf("committing: %w", err)
			}
			initial := state == repository.Empty
			id, err := w.Repo.Commit(message)
			if err != nil {
				return fmt.Errorf("committing: %w", err)
			}

			label := ref.Master
			if initial {
				label += " (root-commit)"
			}
			subject, _, _ := strings.Cut(message, "\n")
			fmt.Printf("[%s %s] %s\n", label, id.Short(), subject)
			fmt.Printf(" %d file(s) in tree\n", len(w.Repo.Index()))
			return nil
		},
	}

	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "Show commit history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("max-count")

			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			commits, err := w.Repo.Log(limit)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			if len(commits) == 0 {
				fmt.Println("No commits yet")
				return nil
			}

			yellow := color.New(color.FgYellow).SprintFunc()
			for _, c := range commits {
				printCommit(c, yellow)
				fmt.Println()
			}
			return nil
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			changes, err := w.Status()
			if err != nil {
				return fmt.Errorf("getting status: %w", err)
			}

			if head, ok := w.Repo.CurrentCommit(); ok {
				fmt.Printf("On %s at %s\n", ref.Master, head.Short())
			} else {
				fmt.Printf("On %s, no commits yet\n", ref.Master)
			}

			if len(changes) == 0 {
				fmt.Println("Nothing to commit (working tree clean)")
				return nil
			}

			var staged, unstaged, untracked []shared.Change
			for _, c := range changes {
				switch {
				case c.Staged:
					staged = append(staged, c)
				case c.Type == shared.ChangeUntracked:
					untracked = append(untracked, c)
				default:
					unstaged = append(unstaged, c)
				}
			}

			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()
			blue := color.New(color.FgBlue).SprintFunc()

			if len(staged) > 0 {
				fmt.Println("\nChanges to be committed:")
				fmt.Println("  (use \"twig rm --cached <name>...\" to unstage)")
				for _, c := range staged {
					fmt.Printf("\t%s %s\n", green(c.Type+":"), c.Path)
				}
			}

			if len(unstaged) > 0 {
				fmt.Println("\nChanges not staged for commit:")
				fmt.Println("  (use \"twig add <file>...\" to update what will be committed)")
				for _, c := range unstaged {
					fmt.Printf("\t%s %s\n", red(c.Type+":"), c.Path)
				}
			}

			if len(untracked) > 0 {
				fmt.Println("\nUntracked files:")
				fmt.Println("  (use \"twig add <file>...\" to include in what will be committed)")
				for _, c := range untracked {
					fmt.Printf("\t%s %s\n", blue("?"), c.Path)
				}
			}
			return nil
		},
	}

	var showCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show a commit, tree or blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := validation.ValidateID(args[0])
			if err != nil {
				return err
			}

			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			if c, err := w.Repo.LookupCommit(id); err == nil {
				printCommit(c, color.New(color.FgYellow).SprintFunc())
				return nil
			}
			if t, err := w.Repo.Tree(id); err == nil {
				for _, e := range t.Entries {
					fmt.Printf("blob %s\t%s\n", e.BlobID, e.Name)
				}
				return nil
			}
			b, err := w.Repo.Blob(id)
			if err != nil {
				if errors.Is(err, errors.ErrorTypeNotFound) {
					return fmt.Errorf("no object %s", id)
				}
				return err
			}
			os.Stdout.Write(b.Content)
			return nil
		},
	}

	var headCmd = &cobra.Command{
		Use:   "head",
		Short: "Show references and where head resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			for _, rf := range w.Repo.References() {
				fmt.Printf("%-8s %s\n", rf.Label, rf.Target)
			}

			id, err := w.Repo.Head()
			switch {
			case err == nil:
				fmt.Printf("%s resolves to %s\n", ref.Head, id)
			case errors.Is(err, errors.ErrorTypeDanglingReference):
				fmt.Printf("%s does not resolve: no commits yet\n", ref.Head)
			default:
				return err
			}
			return nil
		},
	}

	var reflogCmd = &cobra.Command{
		Use:   "reflog [label]",
		Short: "Show how a reference has moved",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := ref.Master
			if len(args) == 1 {
				label = args[0]
			}

			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			entries := w.Repo.Reflog(label)
			yellow := color.New(color.FgYellow).SprintFunc()
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				fmt.Printf("%s %s@{%d}: %s\n", yellow(e.New.Short()), label, len(entries)-1-i, e.Reason)
			}
			return nil
		},
	}

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Restage indexed files as they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			green := color.New(color.FgGreen).SprintFunc()
			fmt.Println("Watching", w.Root, "(Ctrl-C to stop)")
			err = w.Watch(ctx, func(name string) {
				fmt.Printf("%s %s\n", green("staged"), name)
			})
			if err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	var diffCmd = &cobra.Command{
		Use:   "diff [names...]",
		Short: "Show changes between the index and the worktree",
		Long:  `Shows unstaged changes, or with --cached the changes staged since the last commit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cached, _ := cmd.Flags().GetBool("cached")

			w, err := openWorkspace()
			if err != nil {
				return err
			}
			defer w.Close()

			diffs, err := w.Diff(args, cached)
			if err != nil {
				return fmt.Errorf("diffing: %w", err)
			}
			for _, d := range diffs {
				printColoredDiff(d.Result.Format())
			}
			return nil
		},
	}

	commitCmd.Flags().StringP("message", "m", "", "Commit message")
	commitCmd.MarkFlagRequired("message")

	logCmd.Flags().IntP("max-count", "n", 0, "Limit the number of commits shown")

	rmCmd.Flags().Bool("cached", false, "Only remove from the index")

	diffCmd.Flags().Bool("cached", false, "Compare the index with the last commit")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(headCmd)
	rootCmd.AddCommand(reflogCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(diffCmd)
}

func openWorkspace() (*workspace.Workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return nil, fmt.Errorf("%w (run \"twig init\" first)", err)
	}

	w, err := workspace.Open(root, logger, workspace.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return w, nil
}

func printCommit(c *object.Commit, highlight func(a ...interface{}) string) {
	fmt.Println(highlight("commit " + string(c.ID)))
	if c.Parent.IsRoot() {
		fmt.Printf("Root:   %s\n", c.Parent.ID())
	} else {
		fmt.Printf("Parent: %s\n", c.Parent.ID())
	}
	fmt.Printf("Tree:   %s\n", c.TreeID)
	fmt.Printf("Date:   %s\n", c.Timestamp.Local().Format(time.RFC1123Z))
	fmt.Println()
	for _, line := range strings.Split(c.Message, "\n") {
		fmt.Printf("    %s\n", line)
	}
}

func printColoredDiff(diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)
	bold := color.New(color.Bold)

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			bold.Println(line)
		case strings.HasPrefix(line, "@@"):
			header.Println(line)
		case strings.HasPrefix(line, "+"):
			added.Println(line)
		case strings.HasPrefix(line, "-"):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
