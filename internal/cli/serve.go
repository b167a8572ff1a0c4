package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"karaluxer/internal/api"
)

func newServeCmd() *cobra.Command {
	var (
		port  int
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve subtitle conversion over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, closer := openLogger(cmd)
			defer closer.Close()
			logger.Printf("karaluxer serve: config=%q port=%d", path, port)

			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}
			cmd.Printf("Starting karaluxer API server on port %d...\n", port)
			return api.New(cfg, logger).Run(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Server port")
	cmd.Flags().BoolVar(&debug, "debug", false, "Run gin in debug mode")
	return cmd
}
