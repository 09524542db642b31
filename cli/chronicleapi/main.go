package main

import (
	"os"

	servecmder "github.com/storylore/chronicle/cmd/chronicle/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "chronicleapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the config directory (default ~/.chronicle)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
