package main

import (
	"os"

	"github.com/spf13/cobra"

	"WebStore/internal/catalog"
	"WebStore/internal/config"
)

type globals struct {
	configPath string
	serverURL  string
	token      string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "webstore",
		Short:         "Shared product catalog with live price board",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			cfg.ApplyEnv(os.Getenv)
			g.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", getenv("WEBSTORE_CONFIG", ""), "path to config.yaml")
	root.PersistentFlags().StringVar(&g.serverURL, "server", getenv("WEBSTORE_URL", "http://localhost:8082"), "server base URL for client commands")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("WEBSTORE_TOKEN"), "bearer token for mutations")

	root.AddCommand(
		newServeCmd(g),
		newShowCmd(g),
		newAdjustCmd(g, "inc", 1),
		newAdjustCmd(g, "dec", -1),
		newWatchCmd(g),
		newTokenCmd(g),
	)
	return root
}

func (g *globals) client() *catalog.Client {
	return catalog.NewClient(g.serverURL, g.token)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
