package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"

	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/prefabs"
)

func newUpgradeCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:     "upgrade <file>",
		Short:   "Upgrade a level to the current format and write it back",
		Example: "leveltool upgrade levels/vault.yol -o /tmp/vault.yol",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, report, err := a.decodeFile(args[0])
			if err != nil {
				return err
			}
			for _, rw := range report.Rewrites {
				a.log.Info().Int("entity", rw.Entity).Str("from", rw.From).Str("to", rw.To).Msg("component upgraded")
			}
			for _, u := range report.Unresolved {
				a.log.Warn().Int("entity", u.Entity).Str("kind", u.Kind).AnErr("reason", u.Err).Msg("component kept verbatim")
			}
			if out == "" {
				out = args[0]
			}
			if err := levels.WriteFile(out, doc); err != nil {
				return err
			}
			a.log.Info().Str("path", out).Int("from_app_version", report.FromAppVersion).Int("to_app_version", doc.Header.AppFormatVersion).Msg("level written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this path instead of in place")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report problems in a level file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, report, err := a.decodeFile(args[0])
			if err != nil {
				return err
			}
			problems := checkDocument(doc, a.catalog.Types)
			for _, u := range report.Unresolved {
				problems = append(problems, fmt.Sprintf("entities[%d]: unknown component %q", u.Entity, u.Kind))
			}
			w := cmd.OutOrStdout()
			for _, p := range problems {
				fmt.Fprintln(w, p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%s: %d problem(s)", args[0], len(problems))
			}
			fmt.Fprintf(w, "%s: ok (%d entities)\n", args[0], len(doc.Entities))
			return nil
		},
	}
}

type archetypes interface {
	HasArchetype(name string) bool
	Referenceable(name string) bool
}

// checkDocument lists duplicate UUIDs, archetypes this build does not know and
// door targets that are missing or cannot be referenced.
func checkDocument(doc *levels.Document, types archetypes) []string {
	var problems []string
	seen := map[uuid.UUID]int{}
	for i, e := range doc.Entities {
		if !types.HasArchetype(e.Header.Type) {
			problems = append(problems, fmt.Sprintf("entities[%d]: unknown archetype %q", i, e.Header.Type))
		}
		if e.Header.UUID == uuid.Nil {
			continue
		}
		if first, ok := seen[e.Header.UUID]; ok {
			problems = append(problems, fmt.Sprintf("entities[%d]: uuid %s already used by entities[%d]", i, e.Header.UUID, first))
			continue
		}
		seen[e.Header.UUID] = i
	}
	for i, e := range doc.Entities {
		door, ok, err := prefabs.ReadDoorTarget(e)
		if err != nil {
			problems = append(problems, fmt.Sprintf("entities[%d]: DoorTarget: %v", i, err))
			continue
		}
		// Targets in other levels are checked when that level is.
		if !ok || door.Level != "" || !door.Target.IsSome() {
			continue
		}
		j, found := seen[door.Target.UUID]
		switch {
		case !found:
			problems = append(problems, fmt.Sprintf("entities[%d]: door target %s is not in this level", i, door.Target.UUID))
		case !types.Referenceable(doc.Entities[j].Header.Type):
			problems = append(problems, fmt.Sprintf("entities[%d]: door target %s is a %q, which cannot be referenced", i, door.Target.UUID, doc.Entities[j].Header.Type))
		}
	}
	return problems
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Show the semantic difference between two levels",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := a.diffFiles(args[0], args[1])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(patch) == 0 {
				fmt.Fprintln(w, "levels are equal")
				return nil
			}
			for _, op := range patch {
				fmt.Fprintln(w, op.String())
			}
			return nil
		},
	}
}

func (a *app) diffFiles(left, right string) (jsondiff.Patch, error) {
	var encoded [2][]byte
	for i, name := range []string{left, right} {
		doc, _, err := a.decodeFile(name)
		if err != nil {
			return nil, err
		}
		if encoded[i], err = levels.Encode(doc); err != nil {
			return nil, err
		}
	}
	return jsondiff.CompareJSON(encoded[0], encoded[1])
}

func newIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index <file.yoli>",
		Short: "Load every level listed in an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, name := filepath.Split(args[0])
			if dir == "" {
				dir = "."
			}
			loaded, err := levels.LoadIndexLevels(context.Background(), os.DirFS(dir), name, a.catalog.Codec)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, l := range loaded {
				fmt.Fprintf(w, "%s\t%d entities\tapp v%d -> v%d\n", l.Path, len(l.Document.Entities), l.Report.FromAppVersion, l.Document.Header.AppFormatVersion)
			}
			return nil
		},
	}
}

func (a *app) decodeFile(name string) (*levels.Document, levels.UpgradeReport, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, levels.UpgradeReport{}, err
	}
	doc, report, err := a.catalog.Codec.Decode(text)
	if err != nil {
		return nil, report, fmt.Errorf("%s: %w", name, err)
	}
	return doc, report, nil
}
