package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/stemlearn/services/lms"
)

// courses lists the catalogue of the scope's session, or the public one without a session.
func (cli *commandLine) courses(ctx context.Context, scope string) error {
	s, err := cli.openSession(ctx, scope)
	if err != nil {
		return err
	}
	defer cli.close(s)

	courses, err := lms.NewService(s.client).Catalogue(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSUBJECT\tDURATION")
	for _, c := range courses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Title, c.Subject, c.Duration)
	}
	return w.Flush()
}
