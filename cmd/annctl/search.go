package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/annotator/internal/convert"
	"github.com/and161185/annotator/internal/model"
	"github.com/and161185/annotator/internal/search"
	grpcserver "github.com/and161185/annotator/internal/server/grpc"
)

func newSearchCmd() *cobra.Command {
	var (
		p      search.Params
		status string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search annotations on a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := searchParams(p, status)
			if err != nil {
				return err
			}
			req, err := convert.SearchParamsToStruct(params)
			if err != nil {
				return err
			}
			return call(cmd.Context(), grpcserver.MethodSearch, req)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&p.URI, "uri", "", "document URI")
	fl.StringVar(&p.Group, "group", "", "group name (default __world__)")
	fl.BoolVar(&p.SeparateReplies, "separate-replies", false, "return replies separately")
	fl.IntVar(&p.Limit, "limit", 0, "page size (0 = server default)")
	fl.IntVar(&p.Offset, "offset", 0, "visible rows to skip")
	fl.StringVar(&p.SortColumn, "sort", "", "sort column (created, updated, shared)")
	fl.StringVar(&p.Order, "order", "", "asc or desc")
	fl.StringVar(&status, "status", "", "NORMAL, DELETED, ACCEPTED, REJECTED or ALL")
	return cmd
}

// searchParams checks the request locally before it goes on the wire.
func searchParams(p search.Params, status string) (search.Params, error) {
	if _, err := search.ValidateURI(p.URI); err != nil {
		return p, err
	}
	if status != "" {
		st, err := model.ParseStatus(status)
		if err != nil {
			return p, fmt.Errorf("--status: %w", err)
		}
		p.Status = st
	}
	return p, nil
}
