package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m3rciful/achibot/internal/navigation"
)

func newBrowseCmd() *cobra.Command {
	var (
		sorted   bool
		autoSkip bool
	)
	cmd := &cobra.Command{
		Use:   "browse <artifact.json>",
		Short: "Walk the tree interactively: enter a number or a label, 0 to go back, q to quit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadArtifact(args[0], "")
			if err != nil {
				return err
			}
			opts := navigation.Options{AutoSkip: autoSkip}
			if sorted {
				opts.Order = navigation.OrderSorted
			}
			return browse(cmd.InOrStdin(), cmd.OutOrStdout(), navigation.New(t, opts))
		},
	}
	cmd.Flags().BoolVar(&sorted, "sorted", false, "list menu entries alphabetically")
	cmd.Flags().BoolVar(&autoSkip, "auto-skip", false, "descend through single-child menus")
	return cmd
}

func browse(in io.Reader, out io.Writer, eng *navigation.Engine) error {
	st := newStyles(out)
	sc := bufio.NewScanner(in)
	state, view := eng.Start()
	for {
		renderView(out, st, view)
		fmt.Fprint(out, st.prompt.Render("> "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "q", "quit", "exit":
			return nil
		}

		next, v, err := eng.Step(state, parseChoice(eng, view, line))
		switch {
		case errors.Is(err, navigation.ErrUnknownChildSelection):
			fmt.Fprintln(out, st.warn.Render(fmt.Sprintf("no entry %q here", line)))
		case errors.Is(err, navigation.ErrBackAtRoot):
			fmt.Fprintln(out, st.warn.Render("already at the top"))
		case err != nil:
			return err
		}
		state, view = next, v
	}
}

// parseChoice maps a menu number to its label; 0 is back. Anything else is
// treated as typed text.
func parseChoice(eng *navigation.Engine, v navigation.View, line string) navigation.Input {
	n, err := strconv.Atoi(line)
	if err != nil {
		return eng.Parse(line)
	}
	if n == 0 {
		return navigation.Back()
	}
	choices := v.Choices()
	if n < 1 || n > len(choices) {
		return navigation.Select(line)
	}
	return navigation.Select(choices[n-1].Label)
}

func renderView(w io.Writer, st styles, v navigation.View) {
	fmt.Fprintln(w)
	if len(v.Breadcrumbs) > 0 {
		labels := make([]string, len(v.Breadcrumbs))
		for i, c := range v.Breadcrumbs {
			labels[i] = c.Label
		}
		fmt.Fprintln(w, st.path.Render(strings.Join(labels, " › ")))
	}
	if v.Done {
		for _, r := range v.Records {
			fmt.Fprintf(w, "%s %s\n", st.code.Render(r.Code), r.NameUA)
			if r.NameEN != "" && r.NameEN != r.NameUA {
				fmt.Fprintf(w, "  %s\n", st.path.Render(r.NameEN))
			}
		}
	} else {
		for i, o := range v.Choices() {
			fmt.Fprintf(w, "%s %s\n", st.index.Render(strconv.Itoa(i+1)+")"), o.Label)
		}
	}
	if v.Depth > 0 {
		fmt.Fprintf(w, "%s %s\n", st.index.Render("0)"), backLabel(v))
	}
	fmt.Fprintf(w, "%s %s\n", st.index.Render("q)"), "quit")
}

func backLabel(v navigation.View) string {
	for _, o := range v.Options {
		if o.Back {
			return o.Label
		}
	}
	return navigation.DefaultBackLabel
}
