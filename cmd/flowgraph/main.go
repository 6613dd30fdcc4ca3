// Command flowgraph runs a demo pipeline and exports graphs to
// textual formats.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sicko7947/flowgraph"
	"github.com/sicko7947/flowgraph/builder"
	"github.com/sicko7947/flowgraph/engine"
	"github.com/sicko7947/flowgraph/nodes"
	"github.com/sicko7947/flowgraph/store"
	"github.com/sicko7947/flowgraph/trace"
	"github.com/sicko7947/flowgraph/viz"
)

func main() {
	root := &cobra.Command{
		Use:   "flowgraph",
		Short: "Workflow graph execution engine",
	}
	root.AddCommand(demoCmd(), exportCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// demoGraph builds a small linear pipeline over a shared text input
func demoGraph() (*flowgraph.GraphDefinition, error) {
	normalize := nodes.NewFunc("normalize", "Normalize Input",
		func(_ context.Context, s flowgraph.WorkflowState) (flowgraph.WorkflowState, error) {
			text, _ := flowgraph.StateValue[string](s, "text")
			return s.WithData("text", strings.TrimSpace(text)), nil
		})
	wordCount := nodes.NewFunc("word_count", "Count Words",
		func(_ context.Context, s flowgraph.WorkflowState) (flowgraph.WorkflowState, error) {
			text, _ := flowgraph.StateValue[string](s, "text")
			return s.WithData("words", len(strings.Fields(text))), nil
		})
	upper := nodes.NewFunc("upper", "Uppercase",
		func(_ context.Context, s flowgraph.WorkflowState) (flowgraph.WorkflowState, error) {
			text, _ := flowgraph.StateValue[string](s, "text")
			return s.WithData("upper", strings.ToUpper(text)), nil
		})
	report := nodes.NewFunc("report", "Build Report",
		func(_ context.Context, s flowgraph.WorkflowState) (flowgraph.WorkflowState, error) {
			words, _ := flowgraph.StateValue[int](s, "words")
			upperText, _ := flowgraph.StateValue[string](s, "upper")
			return s.WithData("report", fmt.Sprintf("%d word(s): %s", words, upperText)), nil
		})

	return builder.NewGraph("demo", "Demo Pipeline").
		AddNodes(normalize, wordCount, upper, report).
		AddEdge("normalize", "word_count").
		AddEdge("word_count", "upper").
		AddEdge("upper", "report").
		Build()
}

func demoCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the demo pipeline against the in-memory store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			graph, err := demoGraph()
			if err != nil {
				return err
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
				With().Timestamp().Logger()
			executor := engine.NewExecutor(store.NewMemoryStore(), engine.WithLogger(logger))

			initial := flowgraph.NewWorkflowState("demo", "").WithData("text", text)
			events, err := executor.Execute(cmd.Context(), engine.ExecutionRequest{
				Graph:        graph,
				InitialState: &initial,
			})
			if err != nil {
				return err
			}

			t := trace.NewRunTrace("", "demo")
			for ev := range events {
				t.Append(ev)
				meta := ev.Meta()
				fmt.Printf("%-18s node=%-12s step=%d\n", ev.Type(), meta.NodeID, meta.State.Step)
			}

			stats := trace.NewAnalyzer(t).Stats()
			fmt.Printf("\npath: %s\n", strings.Join(stats.ExecutionPath, " -> "))
			if len(t.Events) > 0 {
				final := t.Events[len(t.Events)-1].Meta().State
				if report, ok := flowgraph.StateValue[string](final, "report"); ok {
					fmt.Printf("report: %s\n", report)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "hello workflow graphs", "input text for the pipeline")
	return cmd
}

func exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the demo graph to a textual format",
		RunE: func(_ *cobra.Command, _ []string) error {
			graph, err := demoGraph()
			if err != nil {
				return err
			}
			switch format {
			case "mermaid":
				fmt.Print(viz.Mermaid(graph))
			case "dot":
				fmt.Print(viz.DOT(graph))
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "dot", "output format: dot or mermaid")
	return cmd
}
