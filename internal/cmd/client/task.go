package client

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewTaskCommand builds the `task` command group.
func NewTaskCommand(baseURL BaseURLFunc) *cobra.Command {
	taskCmd := &cobra.Command{Use: "task", Short: "Task operations"}

	put := &cobra.Command{
		Use:   "put",
		Short: "Put a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			space, _ := cmd.Flags().GetString("space")
			data, _ := cmd.Flags().GetString("data")
			utube, _ := cmd.Flags().GetString("utube")
			delayMs, _ := cmd.Flags().GetInt64("delay-ms")
			body := map[string]any{"data": []byte(data), "utube": utube, "delay_ms": delayMs}
			if cmd.Flags().Changed("ttl-ms") {
				v, _ := cmd.Flags().GetInt64("ttl-ms")
				body["ttl_ms"] = v
			}
			if cmd.Flags().Changed("ttr-ms") {
				v, _ := cmd.Flags().GetInt64("ttr-ms")
				body["ttr_ms"] = v
			}
			if cmd.Flags().Changed("pri") {
				v, _ := cmd.Flags().GetInt32("pri")
				body["pri"] = v
			}
			out, status, err := doJSON(baseURL, "POST", "/v1/spaces/"+space+"/tasks", body)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	put.Flags().String("space", "default", "Space name")
	put.Flags().String("data", "", "Task payload")
	put.Flags().String("utube", "", "Micro-tube key")
	put.Flags().Int64("ttl-ms", 0, "Task ttl override in milliseconds")
	put.Flags().Int64("ttr-ms", 0, "Task ttr override in milliseconds")
	put.Flags().Int32("pri", 0, "Task priority")
	put.Flags().Int64("delay-ms", 0, "Delay before the task becomes ready, in milliseconds")
	taskCmd.AddCommand(put)

	take := &cobra.Command{
		Use:   "take",
		Short: "Take the highest-priority ready task",
		RunE: func(cmd *cobra.Command, args []string) error {
			space, _ := cmd.Flags().GetString("space")
			out, status, err := doJSON(baseURL, "POST", "/v1/spaces/"+space+"/take", nil)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	take.Flags().String("space", "default", "Space name")
	taskCmd.AddCommand(take)

	peek := &cobra.Command{
		Use:   "peek",
		Short: "Peek a task by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			space, _ := cmd.Flags().GetString("space")
			id, _ := cmd.Flags().GetUint64("id")
			out, status, err := doJSON(baseURL, "GET", "/v1/spaces/"+space+"/tasks/"+strconv.FormatUint(id, 10), nil)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	peek.Flags().String("space", "default", "Space name")
	peek.Flags().Uint64("id", 0, "Task id")
	taskCmd.AddCommand(peek)

	release := &cobra.Command{
		Use:   "release",
		Short: "Release a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			space, _ := cmd.Flags().GetString("space")
			id, _ := cmd.Flags().GetUint64("id")
			delayMs, _ := cmd.Flags().GetInt64("delay-ms")
			body := map[string]any{"delay_ms": delayMs}
			out, status, err := doJSON(baseURL, "POST", "/v1/spaces/"+space+"/tasks/"+strconv.FormatUint(id, 10)+"/release", body)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	release.Flags().String("space", "default", "Space name")
	release.Flags().Uint64("id", 0, "Task id")
	release.Flags().Int64("delay-ms", 0, "Reroute to DELAYED for this many milliseconds instead of BLOCKED")
	taskCmd.AddCommand(release)

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			space, _ := cmd.Flags().GetString("space")
			id, _ := cmd.Flags().GetUint64("id")
			out, status, err := doJSON(baseURL, "DELETE", "/v1/spaces/"+space+"/tasks/"+strconv.FormatUint(id, 10), nil)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	del.Flags().String("space", "default", "Space name")
	del.Flags().Uint64("id", 0, "Task id")
	taskCmd.AddCommand(del)

	bury := &cobra.Command{
		Use:   "bury",
		Short: "Bury a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			space, _ := cmd.Flags().GetString("space")
			id, _ := cmd.Flags().GetUint64("id")
			out, status, err := doJSON(baseURL, "POST", "/v1/spaces/"+space+"/tasks/"+strconv.FormatUint(id, 10)+"/bury", nil)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	bury.Flags().String("space", "default", "Space name")
	bury.Flags().Uint64("id", 0, "Task id")
	taskCmd.AddCommand(bury)

	kick := &cobra.Command{
		Use:   "kick",
		Short: "Kick buried tasks back into circulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			space, _ := cmd.Flags().GetString("space")
			n, _ := cmd.Flags().GetInt("n")
			body := map[string]any{"n": n}
			out, status, err := doJSON(baseURL, "POST", "/v1/spaces/"+space+"/kick", body)
			if err != nil {
				return err
			}
			return printResult(out, status)
		},
	}
	kick.Flags().String("space", "default", "Space name")
	kick.Flags().Int("n", 1, "Maximum number of tasks to kick")
	taskCmd.AddCommand(kick)

	return taskCmd
}
