// Command annctl is a CLI client for the annotation service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	grpcserver "github.com/and161185/annotator/internal/server/grpc"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// global flags
var (
	addr      string
	caPath    string
	skipTLS   bool
	plaintext bool
	tokenFlag string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "annctl",
	Short:         "Annotation service client",
	Version:       version + " (" + buildDate + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&addr, "addr", "localhost:8443", "server addr")
	pf.StringVar(&caPath, "cacert", "", "CA cert (PEM)")
	pf.BoolVar(&skipTLS, "insecure", false, "skip cert verify (dev)")
	pf.BoolVar(&plaintext, "plaintext", false, "connect without TLS (dev)")
	pf.StringVar(&tokenFlag, "token", "", "bearer token (default: saved token, then $ANNOTATOR_TOKEN)")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "per-command timeout")

	rootCmd.AddCommand(
		newCreateCmd(),
		newUpdateCmd(),
		newIDCmd("delete", "Delete an annotation", grpcserver.MethodDelete),
		newIDCmd("accept", "Accept a suggestion", grpcserver.MethodAccept),
		newIDCmd("reject", "Reject a suggestion", grpcserver.MethodReject),
		newIDCmd("get", "Show an annotation", grpcserver.MethodGet),
		newSearchCmd(),
		newTokenCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}
