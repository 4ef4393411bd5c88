package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"goinsight/adapters/excel"
	"goinsight/domain/insight"
	"goinsight/internal/errors"
	"goinsight/internal/narrative"
)

// render encodes one result in the requested format
func render(format string, result insight.NarrativeResult) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return json.MarshalIndent(result, "", "  ")
	case "markdown", "md":
		return []byte(narrative.Markdown(result)), nil
	case "html":
		return narrative.HTML(result), nil
	case "xlsx":
		var buf bytes.Buffer
		if err := excel.WriteResult(&buf, result); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.UnsupportedFormat(format)
	}
}

func renderBatch(format string, results []insight.NarrativeResult) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return json.MarshalIndent(results, "", "  ")
	case "markdown", "md":
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = narrative.Markdown(r)
		}
		return []byte(strings.Join(parts, "\n---\n\n")), nil
	default:
		return nil, errors.UnsupportedFormat(format)
	}
}

func writeOutput(stdout io.Writer, path, format string, result insight.NarrativeResult) error {
	data, err := render(format, result)
	if err != nil {
		return err
	}
	return emit(stdout, path, data)
}

func writeBatch(stdout io.Writer, path, format string, results []insight.NarrativeResult) error {
	data, err := renderBatch(format, results)
	if err != nil {
		return err
	}
	return emit(stdout, path, data)
}

func emit(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		if _, err := stdout.Write(data); err != nil {
			return err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			_, err := stdout.Write([]byte("\n"))
			return err
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
