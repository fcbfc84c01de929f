// Command analyze scores a transcript from a file or stdin and prints the
// analytics report as JSON.
//
//	analyze [-pretty] [-full] [file]
//
// The input is either raw text or a JSON document with a "text" field and
// optional confidence metadata.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/analytics"
	"github.com/snarg/speech-analytics/internal/ingest"
)

type output struct {
	Text      string            `json:"text,omitempty"`
	Analytics *analytics.Report `json:"analytics"`
}

func main() {
	pretty := flag.Bool("pretty", false, "Indent the JSON output")
	full := flag.Bool("full", false, "Include the transcript text in the output")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	data, name, err := readInput(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read transcript")
	}

	input, err := ingest.DecodeInput(data)
	if err != nil {
		log.Fatal().Err(err).Str("input", name).Msg("invalid transcript")
	}

	report := analytics.Analyze(input.Text, &input.Metadata)
	out := output{Analytics: report}
	if *full {
		out.Text = input.Text
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("failed to write report")
	}

	log.Debug().
		Str("input", name).
		Str("quality", report.QualityAssessment.QualityLevel).
		Msg("analysis complete")
}

func readInput(path string) ([]byte, string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return data, "stdin", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read %s: %w", path, err)
	}
	return data, path, nil
}
