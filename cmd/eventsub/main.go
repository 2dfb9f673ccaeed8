package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nerixyz/go-eventsub/internal/version"
)

// Defaults match the twitch-cli documentation so the two harnesses are
// interchangeable against the same receiver.
const defaultSecret = "5f5f121fc807a21bab4209b2f34e90932778f12c099ca3ca17ee00afd0b328ba"

type rootFlags struct {
	forwardAddress string
	secret         string
}

func main() {
	_ = godotenv.Load()

	secretDefault := defaultSecret
	if s := os.Getenv("EVENTSUB_SECRET"); s != "" {
		secretDefault = s
	}

	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:     "eventsub",
		Short:   "Send signed EventSub test deliveries to a local receiver",
		Version: version.Get(),
	}
	rootCmd.PersistentFlags().StringVarP(&flags.forwardAddress, "forward-address", "F", "http://127.0.0.1:8080/eventsub", "receiver callback URL")
	rootCmd.PersistentFlags().StringVarP(&flags.secret, "secret", "s", secretDefault, "shared HMAC secret")

	rootCmd.AddCommand(triggerCmd(flags))
	rootCmd.AddCommand(retriggerCmd(flags))
	rootCmd.AddCommand(verifyCmd(flags))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
