package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/annotator/internal/model"
	grpcserver "github.com/and161185/annotator/internal/server/grpc"
)

// newTokenCmd signs a development token with the server key and saves it.
func newTokenCmd() *cobra.Command {
	var (
		actor model.Actor
		key   string
		ttl   time.Duration
		printOnly bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and save a bearer token (requires the server signing key)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if key == "" {
				key = os.Getenv("ANNOTATOR_JWT_KEY")
			}
			if actor.Login == "" || key == "" {
				return errors.New("need --login and --key (or $ANNOTATOR_JWT_KEY)")
			}
			tok, err := grpcserver.SignToken(actor, []byte(key), ttl)
			if err != nil {
				return err
			}
			if printOnly {
				fmt.Println(tok)
				return nil
			}
			if err := saveToken(tok, time.Now().Add(ttl)); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&actor.Login, "login", "", "user login")
	fl.StringVar(&actor.Authority, "authority", "", "issuing authority")
	fl.StringVar(&key, "key", "", "HS256 signing key")
	fl.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	fl.BoolVar(&printOnly, "print", false, "print the token instead of saving it")
	return cmd
}
