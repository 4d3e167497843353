package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// parseLimitFlag parses a "tube=N,other=M" flag value into a per-utube
// limit map, matching the wire shape of createSpaceReq.Limit.
func parseLimitFlag(v string) (map[string]int, error) {
	if v == "" {
		return nil, nil
	}
	limits := make(map[string]int)
	for _, pair := range strings.Split(v, ",") {
		tube, n, ok := strings.Cut(pair, "=")
		if !ok || tube == "" {
			return nil, fmt.Errorf("invalid --limit entry %q, want tube=N", pair)
		}
		limit, err := strconv.Atoi(n)
		if err != nil {
			return nil, fmt.Errorf("invalid --limit entry %q: %w", pair, err)
		}
		limits[tube] = limit
	}
	return limits, nil
}

// NewSpaceCommand builds the `space` command group.
func NewSpaceCommand(baseURL BaseURLFunc) *cobra.Command {
	spaceCmd := &cobra.Command{Use: "space", Short: "Space operations"}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a space",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			ttlMs, _ := cmd.Flags().GetInt64("ttl-ms")
			ttrMs, _ := cmd.Flags().GetInt64("ttr-ms")
			pri, _ := cmd.Flags().GetInt32("pri")
			limitFlag, _ := cmd.Flags().GetString("limit")
			limits, err := parseLimitFlag(limitFlag)
			if err != nil {
				return err
			}
			body := map[string]any{"name": name, "ttl_ms": ttlMs, "ttr_ms": ttrMs, "pri": pri, "limit": limits}
			out, status, err := doJSON(baseURL, "POST", "/v1/spaces", body)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	create.Flags().String("name", "default", "Space name")
	create.Flags().Int64("ttl-ms", int64(0), "Default task ttl in milliseconds (0 = practical infinity)")
	create.Flags().Int64("ttr-ms", int64(0), "Default task ttr in milliseconds (0 = same as ttl)")
	create.Flags().Int32("pri", 0, "Default task priority")
	create.Flags().String("limit", "", "Per-utube concurrency limits as tube=N,other=M")
	spaceCmd.AddCommand(create)

	list := &cobra.Command{
		Use:   "list",
		Short: "List open spaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, status, err := doJSON(baseURL, "GET", "/v1/spaces", nil)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	spaceCmd.AddCommand(list)

	completed := &cobra.Command{
		Use:   "completed",
		Short: "List a space's recently completed tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			limit, _ := cmd.Flags().GetInt("limit")
			out, status, err := doJSON(baseURL, "GET", "/v1/spaces/"+name+"/completed?limit="+strconv.Itoa(limit), nil)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	completed.Flags().String("name", "default", "Space name")
	completed.Flags().Int("limit", 100, "Maximum entries to list")
	spaceCmd.AddCommand(completed)

	return spaceCmd
}
