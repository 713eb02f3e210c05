package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session <session-id>",
	Short: "Print the stored conversation of a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

type sessionView struct {
	SessionID string     `json:"session_id"`
	TenantID  string     `json:"tenant_id"`
	CreatedAt string     `json:"created_at,omitempty"`
	Turns     []turnView `json:"turns"`
}

type turnView struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	store, err := connectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	h, err := newMemory(cfg, store, nil).Session(ctx, args[0])
	if err != nil {
		return err
	}

	view := sessionView{SessionID: h.SessionID, TenantID: h.TenantID, Turns: make([]turnView, 0, len(h.Turns))}
	if !h.CreatedAt.IsZero() {
		view.CreatedAt = h.CreatedAt.Format(time.RFC3339)
	}
	for _, t := range h.Turns {
		view.Turns = append(view.Turns, turnView{
			Question:  t.Question,
			Answer:    t.Answer,
			Timestamp: t.Timestamp.Format(time.RFC3339),
		})
	}

	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
