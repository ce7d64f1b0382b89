// Admin CLI for moderation: bans, complaints and conversation cleanup.
// Talks directly to PostgreSQL and Redis through the storage service.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"pairgo/backend/internal/complaint"
	"pairgo/backend/internal/storage"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	success = color.New(color.FgGreen).PrintfFunc()
	failure = color.New(color.FgRed).FprintfFunc()
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openStorage() (*storage.Service, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "user"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "pairgodb"),
		envOr("DB_PORT", "5432"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	return storage.NewStorageService(db, rdb), nil
}

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Moderation tool for the PairGo chat service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var banHours int
	banCmd := &cobra.Command{
		Use:   "ban <user_id>",
		Short: "Ban a user (permanently unless --hours is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStorage()
			if err != nil {
				return err
			}
			if err := s.BanUser(args[0], time.Duration(banHours)*time.Hour); err != nil {
				return err
			}
			success("User %s has been banned.\n", args[0])
			return nil
		},
	}
	banCmd.Flags().IntVar(&banHours, "hours", 0, "ban duration in hours, 0 = permanent")

	unbanCmd := &cobra.Command{
		Use:   "unban <user_id>",
		Short: "Lift a user's ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStorage()
			if err != nil {
				return err
			}
			if err := s.UnbanUser(args[0]); err != nil {
				return err
			}
			success("User %s has been unbanned.\n", args[0])
			return nil
		},
	}

	confirmCmd := &cobra.Command{
		Use:   "confirm-complaint <complaint_id>",
		Short: "Confirm a complaint and reward the reporter's reputation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid complaint ID: %q", args[0])
			}
			s, err := openStorage()
			if err != nil {
				return err
			}
			if err := complaint.NewService(s).ConfirmComplaint(uint(id)); err != nil {
				return err
			}
			success("Complaint %d has been confirmed.\n", id)
			return nil
		},
	}

	closeCmd := &cobra.Command{
		Use:   "close-conversation <conversation_id>",
		Short: "Mark a conversation as ended",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStorage()
			if err != nil {
				return err
			}
			if err := s.CloseConversation(args[0]); err != nil {
				return err
			}
			success("Conversation %s has been closed.\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(banCmd, unbanCmd, confirmCmd, closeCmd)

	if err := rootCmd.Execute(); err != nil {
		failure(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
