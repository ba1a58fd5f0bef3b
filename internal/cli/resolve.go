package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"webuictl/internal/cascade"
	"webuictl/internal/launch"
	"webuictl/internal/matrix"
	"webuictl/internal/probe"
	"webuictl/internal/resolve"
	"webuictl/internal/statusapi"
	"webuictl/internal/validate"
	"webuictl/pkg/types"
)

// staticProber satisfies cascade.Prober with a pre-loaded profile override.
type staticProber struct {
	prof types.Profile
}

func (s staticProber) Probe(context.Context) (types.Profile, error) { return s.prof, nil }

func newResolveCmd(opts *rootOpts) *cobra.Command {
	var (
		dryRun      bool
		timeoutSec  int
		profilePath string
		matrixPath  string
		reportPath  string
		listenAddr  string
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Probe the environment, then launch candidates until one works",
		Example: "  webuictl resolve --dry-run\n" +
			"  webuictl resolve --timeout 180 --report session.json\n" +
			"  webuictl resolve --profile-override case.yaml --dry-run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return exitCodeError{code: 2, msg: err.Error()}
			}
			if timeoutSec > 0 {
				cfg.TimeoutSec = timeoutSec
			}
			if matrixPath != "" {
				cfg.MatrixPath = matrixPath
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			logger := opts.logger

			m, err := loadMatrix(cfg.MatrixPath)
			if err != nil {
				return exitCodeError{code: 2, msg: err.Error()}
			}
			resolver := resolve.New(m)

			var prober cascade.Prober
			if profilePath != "" {
				prof, err := probe.LoadOverride(profilePath)
				if err != nil {
					return exitCodeError{code: 2, msg: fmt.Sprintf("profile override: %v", err)}
				}
				prober = staticProber{prof: prof}
			} else {
				prober = probe.New(logger)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if dryRun {
				prof, err := prober.Probe(ctx)
				if err != nil {
					return exitCodeError{code: 2, msg: err.Error()}
				}
				cands := resolver.Resolve(prof)
				fmt.Fprintf(cmd.OutOrStdout(), "profile: accelerator=%s runtime=%s os=%s\n",
					prof.Accelerator, prof.RuntimeVersion, prof.OS)
				for i, c := range cands {
					fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-48s precision=%s attention=%s memory=%s\n",
						i+1, c.Label, c.Precision, c.Attention, c.Memory)
				}
				return nil
			}

			executor := &launch.Executor{
				Command:      cfg.RuntimeCommand,
				Dir:          cfg.RuntimeDir,
				Host:         cfg.Host,
				PortStart:    cfg.PortStart,
				PortEnd:      cfg.PortEnd,
				ReadyPattern: cfg.ReadyPattern,
				ReadyPath:    cfg.ReadyPath,
				Grace:        time.Duration(cfg.GraceSec) * time.Second,
				TailLines:    cfg.TailLines,
				Validator:    validate.New(logger),
				Logger:       logger,
			}
			casc := cascade.New(prober, resolver, executor, time.Duration(cfg.TimeoutSec)*time.Second, logger)

			reports := &statusapi.ReportHolder{}
			if cfg.ListenAddr != "" {
				srv := &http.Server{Addr: cfg.ListenAddr, Handler: statusapi.NewMux(casc, reports)}
				go func() {
					logger.Info().Str("addr", cfg.ListenAddr).Msg("status api listening")
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error().Err(err).Msg("status api error")
					}
				}()
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
			}

			report, err := casc.Run(ctx)
			if err != nil {
				return exitCodeError{code: 2, msg: err.Error()}
			}
			reports.Set(report)
			cascade.Render(cmd.OutOrStdout(), report)
			if reportPath != "" {
				if err := cascade.WriteFile(reportPath, report); err != nil {
					logger.Error().Err(err).Str("path", reportPath).Msg("could not persist report")
				}
			}
			if report.Outcome != types.SessionSucceeded {
				return exitCodeError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Probe and resolve, print the candidate list, launch nothing")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "Per-attempt timeout in seconds (default from config, 300)")
	cmd.Flags().StringVar(&profilePath, "profile-override", "", "Load the environment profile from a file instead of probing")
	cmd.Flags().StringVar(&matrixPath, "matrix", "", "Path to a compatibility matrix file (default: built-in)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Persist the diagnostic report as JSON to this path")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Serve the status API on this address while running")
	return cmd
}

func loadMatrix(path string) (*matrix.Matrix, error) {
	if path == "" {
		return matrix.LoadDefault()
	}
	return matrix.Load(path)
}
