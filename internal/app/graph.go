package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/gardengo/internal/configgraph"
)

// printGraph writes every node of the configuration graph in dependency
// order with the module version it runs at and its direct dependencies.
func printGraph(w io.Writer, g *configgraph.Graph) error {
	order, err := g.TopologicalOrder()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tVERSION\tDEPENDS ON")
	for _, key := range order {
		kind, name := configgraph.ParseNodeKey(key)
		module, err := owningModule(g, kind, name)
		if err != nil {
			return err
		}
		v, err := g.ModuleVersion(module)
		if err != nil {
			return err
		}
		deps, err := g.GetDependencies(kind, name, false)
		if err != nil {
			return err
		}
		depKeys := dependencyKeys(deps)
		dependsOn := "-"
		if len(depKeys) > 0 {
			dependsOn = strings.Join(depKeys, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", key, v.VersionString, dependsOn)
	}
	return tw.Flush()
}

func owningModule(g *configgraph.Graph, kind configgraph.Kind, name string) (string, error) {
	switch kind {
	case configgraph.KindService:
		s, err := g.GetService(name)
		if err != nil {
			return "", err
		}
		return s.Module, nil
	case configgraph.KindTask:
		t, err := g.GetTask(name)
		if err != nil {
			return "", err
		}
		return t.Module, nil
	case configgraph.KindTest:
		t, err := g.GetTest(name)
		if err != nil {
			return "", err
		}
		return t.Module, nil
	}
	return name, nil
}
