package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/cache"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/config"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/store"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify the local store and cache are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())

			var problems []string

			if err := store.EnsureSchema(home); err != nil {
				problems = append(problems, fmt.Sprintf("store: cannot open or migrate SQLite db under %s: %v", home, err))
			}

			// Redis is optional; only checked when configured.
			if addr := os.Getenv("TASKD_REDIS_ADDR"); addr != "" {
				c, err := cache.NewRedis(cmd.Context(), addr, os.Getenv("TASKD_REDIS_PASSWORD"), 0)
				if err != nil {
					problems = append(problems, fmt.Sprintf("cache: redis at %s unreachable: %v", addr, err))
				} else {
					_ = c.Close()
				}
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	return cmd
}
