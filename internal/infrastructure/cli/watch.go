package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/storage"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/watch"
)

var (
	watchCEP      string
	watchNumber   string
	watchDebounce time.Duration
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Analyze every photo dropped into a folder",
	Long: `Watches DIR (recursively) and writes PHOTO.report.json next to each new
image. Photos that fail the quality check are skipped, never forced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("watch %s: not a directory", dir)
		}

		services, err := loadServices(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer services.Close()
		defer services.Logger.Sync()

		ctx := cmd.Context()
		log := services.Logger.With("component", "watch")
		var opts []watch.ProcessorOption
		if watchCEP != "" {
			addr, err := services.Addresses.LookupAddress(ctx, watchCEP)
			if err != nil {
				return err
			}
			loc, warnings := services.Intake.Locate(ctx, addr, watchNumber)
			for _, w := range warnings {
				log.Warn(w)
			}
			opts = append(opts, watch.WithLocation(&loc))
		}

		processor := watch.NewProcessor(services.Pipeline, storage.NewReportWriter(dir), services.Credentials.AIKey, log, opts...)
		if watchExisting {
			n, err := processor.Scan(ctx, dir, nil)
			if err != nil {
				return err
			}
			log.Info("existing photos processed", "reports", n)
		}

		w, err := watch.NewFSWatcher(watchDebounce, watch.NewImageFilter(), func(ev watch.ChangeEvent) {
			processor.Handle(ctx, ev)
		})
		if err != nil {
			return err
		}
		if err := w.WatchRecursive(dir); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for photos... (Ctrl+C to stop)\n", dir)
		if err := w.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchCEP, "cep", "", "CEP attached to every report")
	watchCmd.Flags().StringVar(&watchNumber, "number", "", "House number attached to every report")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", time.Second, "Wait this long after the last write before reading a photo")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "Also process photos already in DIR that have no report")
	RootCmd.AddCommand(watchCmd)
}
