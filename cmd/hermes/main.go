// Package main provides the hermes CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/richinex/hermes/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider string
	user     string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "hermes",
		Short: "Conversational assistant with long-term memory and tools",
		Long: `A conversational assistant that remembers.

Conversation history persists across sessions; older exchanges are
filtered for relevance before each answer, and a per-user profile is
distilled from past chats. Tools (web search, page fetch, weather,
time, video transcription) run in a single bounded round per turn.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "openai", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", "default", "User ID for history and profile")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	// Add commands
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider: provider,
		User:     user,
		Verbose:  verbose,
	}
}

func chatCmd() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation.

Without --conversation a fresh conversation is created. Pass an
existing conversation ID to resume it with its history intact.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), conversationID, options())
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation ID to resume")

	return cmd
}

func askCmd() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(context.Background(), args[0], imagePath, options())
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Path to an image to include")

	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage conversation history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListConversations(context.Background(), options())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [conversation-id]",
		Short: "Delete one conversation's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ClearConversation(context.Background(), args[0], options())
		},
	})

	return cmd
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(options())
		},
	}
}
