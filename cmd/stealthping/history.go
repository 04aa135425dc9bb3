package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/stealthping/internal/config"
	"github.com/nao1215/stealthping/internal/database"
	"github.com/nao1215/stealthping/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and inspect stored capture sessions",
		Long: `History reads the capture sessions stored by "capture" in the history
database (stealthping.db in the XDG data directory).

Without flags the most recent sessions are listed. --id shows one session
as a full report.

Examples:
  # List the 20 most recent sessions
  stealthping history

  # Show session 3 as Markdown
  stealthping history --id 3 --markdown

  # Sessions that captured the same message
  stealthping history --digest 3a985da7...

  # Remove a session
  stealthping history --delete 3`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("id", "i", 0, "Show the session with this ID")
	cmd.Flags().Int64("delete", 0, "Delete the session with this ID")
	cmd.Flags().String("digest", "", "List sessions whose message has this SHA3-256 digest")
	cmd.Flags().IntP("limit", "l", 20, "Number of sessions to list (0 for all)")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")
	cmd.Flags().Bool("no-trials", false, "Hide the score table of every key with --id")
	addReportFlags(cmd)

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	setupLogger(cmd)

	cfg := config.NewConfig()
	file, err := loadConfigFile(cmd)
	if err != nil {
		return err
	}
	if file != nil {
		file.ApplyAnalysis(cfg)
	}
	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return err
		}
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	deleteID, err := cmd.Flags().GetInt64("delete")
	if err != nil {
		return err
	}
	digest, err := cmd.Flags().GetString("digest")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	noTrials, err := cmd.Flags().GetBool("no-trials")
	if err != nil {
		return err
	}

	// Validate before opening the database so a usage error creates nothing.
	selected := 0
	for _, set := range []bool{id != 0, deleteID != 0, digest != ""} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return errors.New("--id, --delete and --digest cannot be combined")
	}

	ctx := context.Background()
	out := cmd.OutOrStdout()

	// Reading history never creates the database.
	db, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrNotFound) {
		if id != 0 {
			return fmt.Errorf("session %d not found", id)
		}
		printSessions(out, nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	switch {
	case id != 0:
		return showSession(ctx, cmd, cfg, db, id, !noTrials)
	case deleteID != 0:
		if err := db.DeleteCapture(ctx, deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted session %d\n", deleteID)
		return nil
	case digest != "":
		sessions, err := db.FindByDigest(ctx, strings.ToLower(strings.TrimSpace(digest)))
		if err != nil {
			return fmt.Errorf("failed to search history: %w", err)
		}
		printSessions(out, sessions)
		return nil
	default:
		sessions, err := db.ListCaptures(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}
		printSessions(out, sessions)
		return nil
	}
}

// showSession writes one stored session as a capture report.
func showSession(ctx context.Context, cmd *cobra.Command, cfg *config.Config, db *database.SessionDB, id int64, trials bool) error {
	rep, err := db.GetCapture(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session %d: %w", id, err)
	}
	if rep == nil {
		return fmt.Errorf("session %d not found", id)
	}

	output, closeOutput, err := openReportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // best-effort close of the report file

	_, err = newReportWriter(cmd, cfg, output, trials).WriteCapture(rep)
	return err
}

// printSessions prints a table of session metadata.
func printSessions(w io.Writer, sessions []database.SessionMetadata) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No capture sessions found.")
		fmt.Fprintln(w, "\nUse 'stealthping capture' to record one.")
		return
	}

	fmt.Fprintf(w, "Capture sessions (%d):\n\n", len(sessions))
	fmt.Fprintf(w, "  %-5s  %-19s  %-9s  %7s  %-20s  %s\n", "ID", "Date", "State", "Packets", "Message", "Verdict")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 90))

	for _, s := range sessions {
		verdict := "-"
		switch {
		case s.Analyzed() && s.Key >= 0:
			verdict = fmt.Sprintf("%s (%s, key %d)", s.Verdict, report.LanguageTitle(s.Language), s.Key)
		case s.Analyzed():
			verdict = s.Verdict
		}
		fmt.Fprintf(w, "  %-5d  %-19s  %-9s  %7d  %-20s  %s\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.State,
			s.Packets,
			truncate(s.Ciphertext, 20),
			verdict,
		)
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
