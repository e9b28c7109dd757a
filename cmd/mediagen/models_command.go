package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/llm/factory"
	"github.com/BaSui01/mediagen/llm/video"
	"github.com/BaSui01/mediagen/types"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	var (
		duration   int
		resolution string
	)

	cmd := &cobra.Command{
		Use:   "models [name...]",
		Short: "List registered models with credential status and a cost preview",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("duration") {
				duration = cfg.Compare.DurationSeconds
			}
			if !cmd.Flags().Changed("resolution") {
				resolution = cfg.Compare.Resolution
			}
			if duration <= 0 {
				return fmt.Errorf("--duration must be positive, got %d", duration)
			}
			res := video.ParseResolution(resolution)

			reg := ctx.deps.registry
			names := reg.Names()
			if len(args) > 0 {
				for _, name := range args {
					if !reg.Has(name) {
						return fmt.Errorf("unknown model %q (available: %s)", name, strings.Join(names, ", "))
					}
				}
				names = args
			}

			fc := factory.FromAppConfig(cfg)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				status, durations := "ready", "—"
				gen, err := reg.Create(name, fc, zap.NewNop())
				if err != nil {
					status = "unavailable"
					if types.IsErrorCode(err, types.ErrCredential) {
						status = "missing credentials"
					}
				} else if dl, ok := gen.(video.DurationLister); ok {
					durations = formatDurations(dl.SupportedDurations())
				}

				cost := "—"
				if v, err := reg.Estimate(name, float64(duration), res); err == nil {
					cost = fmt.Sprintf("$%.4f", v)
				}
				rows = append(rows, []string{name, status, durations, cost})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cost preview for %ds at %s\n", duration, res)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Model", "Status", "Durations", "Est. Cost"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Clip length in seconds (default from config)")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Resolution tier (default from config)")
	return cmd
}

// formatDurations 连续区间折叠为 "1-10s"，否则逗号分隔
func formatDurations(ds []int) string {
	if len(ds) == 0 {
		return "—"
	}
	contiguous := true
	for i := 1; i < len(ds); i++ {
		if ds[i] != ds[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous && len(ds) > 2 {
		return fmt.Sprintf("%d-%ds", ds[0], ds[len(ds)-1])
	}
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",") + "s"
}
