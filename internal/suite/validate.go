package suite

import (
	_ "embed"
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/amanzi/verification/internal/report"
)

//go:embed schema.cue
var schemaSource string

// checkSchema unifies the generic YAML document with #Suite.
func checkSchema(doc any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile suite schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Suite"))
	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("suite schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// validate checks cross references and decodes table layouts. Every problem
// found is reported.
func (s *Suite) validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	slices := make(map[string]bool, len(s.Slices))
	for _, sl := range s.Slices {
		if slices[sl.Name] {
			add("duplicate slice %q", sl.Name)
		}
		slices[sl.Name] = true
		if _, err := sl.Spec(); err != nil {
			problems = append(problems, err)
		}
		if len(sl.Domain) == 2 && sl.Domain[0] >= sl.Domain[1] {
			add("slice %q: domain %v is empty", sl.Name, sl.Domain)
		}
	}

	subtests := make(map[string]bool, len(s.Subtests))
	dirs := make(map[string]string)
	for _, st := range s.Subtests {
		if subtests[st.Name] {
			add("duplicate subtest %q", st.Name)
		}
		subtests[st.Name] = true
		if other, ok := dirs[st.Directory]; ok {
			add("subtests %q and %q share directory %q", other, st.Name, st.Directory)
		}
		dirs[st.Directory] = st.Name
	}

	cases := make(map[string]bool, len(s.Analytic))
	for _, ac := range s.Analytic {
		if cases[ac.Name] {
			add("duplicate analytic case %q", ac.Name)
		}
		cases[ac.Name] = true
		if !slices[ac.Slice] {
			add("analytic case %q: unknown slice %q", ac.Name, ac.Slice)
		}
	}

	s.layouts = s.layouts[:0]
	for i, tbl := range s.Tables {
		layout, err := s.decodeTable(tbl, subtests, cases)
		if err != nil {
			problems = append(problems, fmt.Errorf("table %d (%s): %w", i, tbl.Filename, err))
			continue
		}
		if !slices[tbl.Slice] {
			add("table %d (%s): unknown slice %q", i, tbl.Filename, tbl.Slice)
		}
		s.layouts = append(s.layouts, layout)
	}

	for i, p := range s.Plots {
		if !slices[p.Slice] {
			add("plot %d (%s): unknown slice %q", i, p.Filename, p.Slice)
		}
	}

	return errors.Join(problems...)
}

func (s *Suite) decodeTable(tbl Table, subtests, cases map[string]bool) (report.Layout, error) {
	layout := report.Layout{Slice: tbl.Slice, Filename: tbl.Filename, Errors: tbl.Errors}
	for _, raw := range tbl.Columns {
		col, err := report.DecodeColumn(raw)
		if err != nil {
			return report.Layout{}, err
		}
		switch src := col.Source.(type) {
		case report.FromSimulation:
			if !subtests[src.Subtest] {
				return report.Layout{}, fmt.Errorf("column %q: unknown subtest %q", col.Header, src.Subtest)
			}
		case report.FromAnalytic:
			name := src.Case
			if name == "" {
				name = tbl.Slice
			}
			if !cases[name] {
				return report.Layout{}, fmt.Errorf("column %q: unknown analytic case %q", col.Header, name)
			}
		}
		layout.Columns = append(layout.Columns, col)
	}
	if len(layout.Columns) > 0 {
		if _, ok := layout.Columns[0].Source.(report.FromSimulation); !ok {
			return report.Layout{}, fmt.Errorf("first column %q must read a simulation", layout.Columns[0].Header)
		}
	}
	return layout, nil
}
