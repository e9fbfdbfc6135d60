package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-animator/internal/config"
	"github.com/kozaktomas/face-animator/internal/constants"
	"github.com/kozaktomas/face-animator/internal/engine"
	"github.com/kozaktomas/face-animator/internal/landmarks"
)

var replayCmd = &cobra.Command{
	Use:   "replay <frames.jsonl>",
	Short: "Run recorded landmark frames through the engine",
	Long: `Replay a recording of landmark frames, one JSON value per line.

Each line is either a bare landmark array/object or an object with a
"landmarks" field (the face-landmarks event payload). Lines that fail to
parse are fed to the engine as absent frames, exactly as the server would.

Examples:
  # Expression histogram with progress bar
  face-animator replay session.jsonl

  # One descriptor per line for scripting
  face-animator replay session.jsonl --json`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().Bool("json", false, "Print descriptors as JSON lines instead of a summary")
}

// ReplayResult summarises a replayed recording
type ReplayResult struct {
	Frames      int                       `json:"frames"`
	Malformed   int                       `json:"malformed"`
	Blinks      int                       `json:"blinks"`
	Expressions map[engine.Expression]int `json:"expressions"`
	DurationMs  int64                     `json:"duration_ms"`
}

// readFrameLines splits a recording into non-empty lines.
func readFrameLines(r io.Reader) ([][]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), constants.MaxMessageSize)

	var lines [][]byte
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, slices.Clone(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading frames: %w", err)
	}
	return lines, nil
}

// parseFrameLine decodes one recorded line. ok is false for malformed lines.
func parseFrameLine(line []byte) (*landmarks.Frame, bool) {
	if line[0] == '{' {
		var wrapped struct {
			Landmarks *landmarks.Frame `json:"landmarks"`
		}
		if err := json.Unmarshal(line, &wrapped); err == nil && wrapped.Landmarks != nil {
			return wrapped.Landmarks, true
		}
	}

	var frame landmarks.Frame
	if err := json.Unmarshal(line, &frame); err != nil {
		return nil, false
	}
	return &frame, true
}

// replayFrames feeds every line through eng, calling onFrame after each one.
func replayFrames(lines [][]byte, eng *engine.Engine, onFrame func(engine.Descriptor) error) (ReplayResult, error) {
	result := ReplayResult{Expressions: make(map[engine.Expression]int)}
	for _, line := range lines {
		frame, ok := parseFrameLine(line)
		if !ok {
			result.Malformed++
		}

		d := eng.ComputeDescriptor(frame)
		result.Frames++
		result.Expressions[d.Expression]++
		if d.Eyes.Blink {
			result.Blinks++
		}

		if onFrame != nil {
			if err := onFrame(d); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	start := time.Now()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	lines, err := readFrameLines(f)
	if err != nil {
		return err
	}

	cfg := config.Load()
	eng := engine.New(engine.WithFilters(cfg.EngineFilters()))

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		_, err := replayFrames(lines, eng, func(d engine.Descriptor) error {
			return encoder.Encode(d)
		})
		if err != nil {
			return fmt.Errorf("encoding descriptor: %w", err)
		}
		return nil
	}

	fmt.Printf("Replaying %d frames from %s\n\n", len(lines), args[0])

	bar := progressbar.NewOptions(len(lines),
		progressbar.OptionSetDescription("Replaying"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	result, err := replayFrames(lines, eng, func(engine.Descriptor) error {
		return bar.Add(1)
	})
	if err != nil {
		return fmt.Errorf("updating progress: %w", err)
	}
	bar.Finish()
	result.DurationMs = time.Since(start).Milliseconds()

	printReplaySummary(cmd.OutOrStdout(), result)
	return nil
}

// printReplaySummary prints the expression histogram in a fixed order.
func printReplaySummary(w io.Writer, result ReplayResult) {
	fmt.Fprintf(w, "\n\nFrames:    %d\n", result.Frames)
	fmt.Fprintf(w, "Malformed: %d\n", result.Malformed)
	fmt.Fprintf(w, "Blinks:    %d\n", result.Blinks)
	fmt.Fprintln(w, "Expressions:")
	for _, e := range []engine.Expression{
		engine.ExpressionNeutral,
		engine.ExpressionTalking,
		engine.ExpressionHappy,
		engine.ExpressionSurprised,
	} {
		count := result.Expressions[e]
		pct := 0.0
		if result.Frames > 0 {
			pct = float64(count) * 100 / float64(result.Frames)
		}
		fmt.Fprintf(w, "  %-10s %6d  %5.1f%%\n", e, count, pct)
	}
	fmt.Fprintf(w, "Took %dms\n", result.DurationMs)
}
