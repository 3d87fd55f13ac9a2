package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/chemindex/internal/application/indexing"
	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/storage/minio"
)

// SnapshotList is the output of snapshots.
type SnapshotList []minio.SnapshotInfo

func (l SnapshotList) TableHeaders() []string {
	return []string{"KEY", "SIZE", "LAST_MODIFIED"}
}

func (l SnapshotList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{
			s.Key,
			strconv.FormatInt(s.Size, 10),
			s.LastModified.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

type exportResult struct {
	minio.SnapshotInfo `yaml:",inline"`
}

func (r exportResult) String() string {
	return fmt.Sprintf("exported %d %s record(s) to %s", r.Records, r.Kind, r.Key)
}

type restoreResult struct {
	indexing.RestoreReport `yaml:",inline"`
	Kind                   record.Kind `json:"kind" yaml:"kind"`
}

func (r restoreResult) String() string {
	return fmt.Sprintf("restored %s from %s: %d read, %d indexed, %d failed",
		r.Kind, r.Key, r.Read, r.Indexed, r.Failed)
}

func newExportCmd() *cobra.Command {
	var hashes []int64
	cmd := &cobra.Command{
		Use:   "export <kind>",
		Short: "Write the records of a kind to a snapshot in object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := record.ParseKind(args[0])
			if err != nil {
				return err
			}
			archive, err := cliCtx.Backend.Archive()
			if err != nil {
				return err
			}
			info, err := archive.Export(cmd.Context(), kind, hashes)
			if err != nil {
				return err
			}
			return PrintResult(cmd, exportResult{SnapshotInfo: *info})
		},
	}
	cmd.Flags().Int64SliceVar(&hashes, "hash", nil, "export only records containing this structural hash (repeatable)")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <kind> <snapshot-key>",
		Short: "Index the records of a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := record.ParseKind(args[0])
			if err != nil {
				return err
			}
			archive, err := cliCtx.Backend.Archive()
			if err != nil {
				return err
			}
			report, err := archive.Restore(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			return PrintResult(cmd, restoreResult{RestoreReport: *report, Kind: kind})
		},
	}
}

func newSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots <kind>",
		Short: "List the snapshots of a kind, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := record.ParseKind(args[0])
			if err != nil {
				return err
			}
			archive, err := cliCtx.Backend.Archive()
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			snaps, err := archive.Snapshots(ctx, kind)
			if err != nil {
				return err
			}
			return PrintResult(cmd, SnapshotList(snaps))
		},
	}
}

//Personal.AI order the ending
