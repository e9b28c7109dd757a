package video

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/BaSui01/mediagen/types"
)

// Veo model variants.
const (
	VeoVariant2  = "veo-2"
	VeoVariant3  = "veo-3-generate-preview"
	VeoVariant31 = "veo-3.1-generate-preview"
)

// P-Video tiers.
const (
	PVideoTierStandard = "standard"
	PVideoTierDraft    = "draft"
)

// USD per second of generated video.
var veoRates = map[string]map[Resolution]float64{
	VeoVariant2: {
		Resolution720p:  0.02,
		Resolution1080p: 0.04,
		Resolution4K:    0.08,
	},
	VeoVariant3: {
		Resolution720p:  0.03,
		Resolution1080p: 0.06,
		Resolution4K:    0.12,
	},
	VeoVariant31: {
		Resolution720p:  0.035,
		Resolution1080p: 0.07,
		Resolution4K:    0.14,
	},
}

// Clip lengths each variant accepts, ascending.
var veoDurations = map[string][]int{
	VeoVariant2:  {5, 6, 7, 8},
	VeoVariant3:  {8},
	VeoVariant31: {4, 6, 8},
}

var pvideoRates = map[string]map[Resolution]float64{
	PVideoTierStandard: {
		Resolution720p:  0.02,
		Resolution1080p: 0.04,
	},
	PVideoTierDraft: {
		Resolution720p:  0.005,
		Resolution1080p: 0.01,
	},
}

const (
	pvideoMinDuration = 1
	pvideoMaxDuration = 10
)

// VeoVariants lists the known Veo variants, sorted.
func VeoVariants() []string {
	out := make([]string, 0, len(veoRates))
	for v := range veoRates {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// EstimateVeoCost prices a Veo clip without constructing an adapter.
func EstimateVeoCost(variant string, durationSeconds float64, res Resolution) (float64, error) {
	table, ok := veoRates[variant]
	if !ok {
		return 0, types.NewInvalidRequestError(veoName(variant),
			fmt.Sprintf("no price table for veo variant %q", variant))
	}
	return price(table, veoName(variant), durationSeconds, res)
}

// EstimatePVideoCost prices a P-Video clip without constructing an adapter.
func EstimatePVideoCost(draft bool, durationSeconds float64, res Resolution) (float64, error) {
	tier := pvideoTier(draft)
	return price(pvideoRates[tier], pvideoName(draft), durationSeconds, res)
}

func price(table map[Resolution]float64, provider string, durationSeconds float64, res Resolution) (float64, error) {
	if durationSeconds < 0 {
		return 0, types.NewInvalidRequestError(provider,
			fmt.Sprintf("duration must not be negative, got %g", durationSeconds))
	}
	rate, ok := table[ParseResolution(string(res))]
	if !ok {
		return 0, types.NewInvalidRequestError(provider,
			fmt.Sprintf("unsupported resolution %q (supported: %s)", res, joinResolutions(table)))
	}
	return roundCost(rate * durationSeconds), nil
}

// roundCost rounds to 4 decimal places, which is finer than any rate in the tables.
func roundCost(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func joinResolutions(table map[Resolution]float64) string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// snapDuration returns the supported length closest to requested; ties go to the longer clip.
func snapDuration(requested int, supported []int) int {
	if len(supported) == 0 {
		return requested
	}
	best := supported[0]
	for _, d := range supported[1:] {
		if abs(d-requested) <= abs(best-requested) {
			best = d
		}
	}
	return best
}

func clampDuration(d, lo, hi int) int {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func pvideoTier(draft bool) string {
	if draft {
		return PVideoTierDraft
	}
	return PVideoTierStandard
}

func veoName(variant string) string {
	return fmt.Sprintf("google-veo (%s)", variant)
}

func pvideoName(draft bool) string {
	return fmt.Sprintf("replicate-p-video (%s)", pvideoTier(draft))
}
