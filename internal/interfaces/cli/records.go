package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/chemindex/internal/application/indexing"
	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/search/opensearch"
	"github.com/turtacn/chemindex/pkg/errors"
	"github.com/turtacn/chemindex/pkg/types/common"
)

// RecordList is the output of get and search.
type RecordList struct {
	Kind  record.Kind              `json:"kind" yaml:"kind"`
	Items []map[string]interface{} `json:"items" yaml:"items"`
	Total int64                    `json:"total" yaml:"total"`
	Next  string                   `json:"next,omitempty" yaml:"next,omitempty"`

	records []*record.Record
}

func newRecordList(kind record.Kind, page common.CursorPage[*record.Record]) RecordList {
	l := RecordList{
		Kind:    kind,
		Items:   make([]map[string]interface{}, 0, len(page.Items)),
		Total:   page.Total,
		Next:    opensearch.FormatCursor(page.Next),
		records: page.Items,
	}
	for _, r := range page.Items {
		l.Items = append(l.Items, r.ToMapping())
	}
	return l
}

func (l RecordList) TableHeaders() []string {
	return []string{"RECORD_ID", "NAME", "VALID", "STRUCTURAL_HASH"}
}

func (l RecordList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.records))
	for _, r := range l.records {
		valid := "-"
		if r.HasError != nil {
			valid = strconv.FormatBool(!*r.HasError)
		}
		hashes := make([]string, len(r.StructuralHash))
		for i, h := range r.StructuralHash {
			hashes[i] = strconv.FormatInt(h, 10)
		}
		rows = append(rows, []string{r.ID(), r.Name, valid, strings.Join(hashes, ",")})
	}
	return rows
}

func parseKindArg(arg string) (record.Kind, error) {
	return record.ParseKind(arg)
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <record-id>",
		Short: "Print one indexed record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			svc, err := cliCtx.Backend.Service()
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			r, err := svc.Get(ctx, kind, args[1])
			if err != nil {
				return err
			}
			return PrintResult(cmd, newRecordList(kind, common.CursorPage[*record.Record]{
				Items: []*record.Record{r},
				Total: 1,
			}))
		},
	}
}

type searchOptions struct {
	hashes    []int64
	after     string
	size      int
	structure string
	format    string
	count     bool
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <kind>",
		Short: "Find records by structural hash or by exact structure",
		Long: "search pages through the records of a kind whose structural hash contains\n" +
			"every --hash value. With --structure the hashes are taken from the parsed\n" +
			"structure instead. --count prints only the number of records of the kind.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.Int64SliceVar(&opts.hashes, "hash", nil, "structural hash the records must contain (repeatable)")
	f.StringVar(&opts.after, "after", "", "cursor returned as next by the previous page")
	f.IntVar(&opts.size, "size", 20, "page size")
	f.StringVar(&opts.structure, "structure", "", "structure text whose records to find")
	f.StringVar(&opts.format, "format", "", "format of --structure (smiles, molfile, rxnfile, smarts); detected when empty")
	f.BoolVar(&opts.count, "count", false, "print the number of records of the kind")
	cmd.MarkFlagsMutuallyExclusive("hash", "structure", "count")
	return cmd
}

func runSearch(cmd *cobra.Command, kindArg string, opts *searchOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	kind, err := parseKindArg(kindArg)
	if err != nil {
		return err
	}
	if opts.size < 1 {
		return errors.InvalidParam("size must be at least 1")
	}
	svc, err := cliCtx.Backend.Service()
	if err != nil {
		return err
	}
	ctx, cancel := cliCtx.withTimeout(cmd.Context())
	defer cancel()

	if opts.count {
		n, err := svc.Count(ctx, kind)
		if err != nil {
			return err
		}
		return PrintResult(cmd, RecordCount{Kind: kind, Count: n})
	}

	var page common.CursorPage[*record.Record]
	if opts.structure != "" {
		if err := indexing.ValidateFormat(kind, opts.format); err != nil {
			return err
		}
		obj, err := indexing.TextLoader(cliCtx.Config.Ingest.Toolkit, kind, opts.format, opts.structure)()
		if err != nil {
			return err
		}
		page, err = svc.FindExact(ctx, kind, obj, opts.size)
		if err != nil {
			return err
		}
	} else {
		page, err = svc.Page(ctx, kind, opts.hashes, opensearch.ParseCursor(opts.after), opts.size)
		if err != nil {
			return err
		}
	}
	return PrintResult(cmd, newRecordList(kind, page))
}

// RecordCount is the output of search --count.
type RecordCount struct {
	Kind  record.Kind `json:"kind" yaml:"kind"`
	Count int64       `json:"count" yaml:"count"`
}

func (c RecordCount) String() string {
	return fmt.Sprintf("%s: %d", c.Kind, c.Count)
}

//Personal.AI order the ending
