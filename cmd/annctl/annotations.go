package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/and161185/annotator/internal/convert"
	"github.com/and161185/annotator/internal/model"
	grpcserver "github.com/and161185/annotator/internal/server/grpc"
)

// inputFlags carries the flags shared by create and update.
type inputFlags struct {
	in     model.AnnotationInput
	target string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.in.ID, "id", "", "annotation id")
	fl.StringVar(&f.in.URI, "uri", "", "document URI")
	fl.StringVar(&f.in.Title, "title", "", "document title")
	fl.StringVar(&f.in.Group, "group", "", "group name (default __world__)")
	fl.StringVar(&f.target, "target", "", "target selectors JSON, or @file ('@-'=stdin)")
	fl.StringVar(&f.in.Text, "text", "", "annotation text")
	fl.BoolVar(&f.in.Shared, "shared", false, "share with the group")
	fl.StringSliceVar(&f.in.References, "ref", nil, "referenced annotation id (repeatable)")
	fl.StringSliceVar(&f.in.Tags, "tag", nil, "tag (repeatable)")
}

func (f *inputFlags) input() (model.AnnotationInput, error) {
	in := f.in
	target, err := readArg(f.target)
	if err != nil {
		return in, err
	}
	in.TargetSelectors = target
	return in, nil
}

func newCreateCmd() *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an annotation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.in.URI == "" {
				return errors.New("need --uri")
			}
			in, err := f.input()
			if err != nil {
				return err
			}
			req, err := convert.InputToStruct(in)
			if err != nil {
				return err
			}
			return call(cmd.Context(), grpcserver.MethodCreate, req)
		},
	}
	f.register(cmd)
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update an annotation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.in.ID == "" {
				return errors.New("need --id")
			}
			in, err := f.input()
			if err != nil {
				return err
			}
			req, err := convert.InputToStruct(in)
			if err != nil {
				return err
			}
			return call(cmd.Context(), grpcserver.MethodUpdate, req)
		},
	}
	f.register(cmd)
	return cmd
}

// newIDCmd builds a command whose only argument is an annotation id.
func newIDCmd(use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd.Context(), method, convert.IDToStruct(args[0]))
		},
	}
}
