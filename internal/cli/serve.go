package cli

import (
	"github.com/spf13/cobra"

	"github.com/cryguy/mermaid/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		poolSize int
		custom   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP render server",
		Long: `Serve renders over HTTP:

  POST /render/{format}     body is the diagram, query sets options
  GET  /{format}/{payload}  payload is the base64url-encoded diagram
  GET  /live                WebSocket; each text message is rendered to SVG
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("sessions") {
				cfg.Server.PoolSize = poolSize
			}
			if custom != "" {
				cfg.Library.Source = custom
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts, err := c.sessionOptions(ctx, cfg, cfg.Library.Source)
			if err != nil {
				return err
			}
			prog := newProgress(c.Logger)
			pool, err := server.NewPool(cfg.Server.PoolSize, opts...)
			if err != nil {
				return err
			}
			defer pool.Close()
			prog.done("Started render sessions")

			srv := server.New(pool, cfg.RenderOptions(), cfg.Server.MaxBodyKB, c.Logger)
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&poolSize, "sessions", 2, "number of render sessions")
	cmd.Flags().StringVarP(&custom, "custom-mermaid", "c", "", "custom Mermaid.js file or URL")
	return cmd
}
