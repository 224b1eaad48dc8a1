// Command annotator-server starts the annotation gRPC server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/and161185/annotator/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var (
	cfgFile string
	v       = config.New()
)

var rootCmd = &cobra.Command{
	Use:           "annotator-server",
	Short:         "Annotation service over gRPC",
	Version:       version + " (" + buildDate + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (yaml)")
	f.String("addr", ":8443", "listen address")
	f.String("dsn", "", "PostgreSQL DSN")
	f.String("jwt-key", "", "HS256 signing key (required)")
	f.Bool("dev", false, "development logging and server reflection")
	f.String("tls-cert", "", "TLS certificate (PEM)")
	f.String("tls-key", "", "TLS private key (PEM)")
	f.String("redis-url", "", "user directory Redis URL")
	f.String("meili-url", "", "Meilisearch URL")
	f.String("meili-key", "", "Meilisearch API key")
	f.Duration("cache-ttl", 0, "user details cache TTL")
	f.Int("default-limit", 0, "search page size when none is requested")
	f.Int("batch-size", 0, "search fetch batch cap")

	bindFlag(v, config.KeyAddr, "addr")
	bindFlag(v, config.KeyDSN, "dsn")
	bindFlag(v, config.KeyJWTKey, "jwt-key")
	bindFlag(v, config.KeyDev, "dev")
	bindFlag(v, config.KeyTLSCert, "tls-cert")
	bindFlag(v, config.KeyTLSKey, "tls-key")
	bindFlag(v, config.KeyRedisURL, "redis-url")
	bindFlag(v, config.KeyMeiliURL, "meili-url")
	bindFlag(v, config.KeyMeiliKey, "meili-key")
	bindFlag(v, config.KeyCacheTTL, "cache-ttl")
	bindFlag(v, config.KeyDefaultLimit, "default-limit")
	bindFlag(v, config.KeyBatchSize, "batch-size")
}

// bindFlag lets an explicitly set flag override file and environment values.
func bindFlag(v *viper.Viper, key, flag string) {
	if err := v.BindPFlag(key, rootCmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
