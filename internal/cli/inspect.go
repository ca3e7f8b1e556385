package cli

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/gagern/confoo/pkg/conformal"
	cio "github.com/gagern/confoo/pkg/io"
	"github.com/gagern/confoo/pkg/mesh"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "inspect file.obj|file.json",
		Short: "Print vertex, edge and boundary statistics of a mesh",
		Long: `Inspect reads a mesh and prints its size, its Euler characteristic and the
vertices whose incident edges all lie on the boundary. Those corners are
the vertices that get 90° by default when flattening.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(args[0], showAll)
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "list every vertex with its kind and angle sum")
	return cmd
}

func (c *CLI) runInspect(path string, showAll bool) error {
	m, err := importMesh(path)
	if err != nil {
		return err
	}

	stats := mesh.Count[int](m)
	im, err := conformal.BuildMesh(mesh.Metric(m))
	if err != nil {
		return err
	}
	conformal.NewEnergy(im, conformal.Euclidean, nil) // computes the angles
	kinds := im.KindCounts()
	c.Logger.Debug("inspected mesh", "path", path, "vertices", stats.Vertices)

	fmt.Println(StyleTitle.Render(filepath.Base(path)))
	printKeyValue("vertices", strconv.Itoa(stats.Vertices))
	printKeyValue("triangles", strconv.Itoa(stats.Triangles))
	printKeyValue("edges", fmt.Sprintf("%d (%d boundary)", stats.Edges, stats.BoundaryEdges))
	printKeyValue("boundaries", strconv.Itoa(stats.BoundaryLoops))
	printKeyValue("χ", strconv.Itoa(stats.EulerCharacter))
	printKeyValue("kinds", fmt.Sprintf("%d corner, %d boundary, %d interior",
		kinds[conformal.Corner], kinds[conformal.Boundary], kinds[conformal.Interior]))
	fmt.Println()

	var rows [][]string
	for i := range im.Vertices {
		v := &im.Vertices[i]
		if !showAll && v.Kind != conformal.Corner {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(v.Rep),
			v.Kind.String(),
			strconv.FormatFloat(im.AngleSum(i)*180/math.Pi, 'f', 4, 64),
		})
	}
	if len(rows) == 0 {
		printInfo("No corners")
		return nil
	}
	slices.SortFunc(rows, func(a, b []string) int {
		x, _ := strconv.Atoi(a[0])
		y, _ := strconv.Atoi(b[0])
		return x - y
	})

	fmt.Println(vertexTable(rows))
	return nil
}

// vertexTable lays out id, kind and angle sum rows.
func vertexTable(rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Vertex", "Kind", "Angle sum °").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle.Padding(0, 1)
			case col == 0:
				return cell.Foreground(colorCyan).Align(lipgloss.Right)
			case col == 2:
				return cell.Align(lipgloss.Right)
			}
			return cell
		}).
		Render()
}

// importMesh reads an OBJ or JSON mesh, chosen by file extension.
func importMesh(path string) (mesh.LocatedMesh[int], error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return cio.ImportJSON(path)
	}
	return cio.ImportOBJ(path)
}
