package wgrib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/germanamz/wgrib/pkg/tools/toolbox"
)

type runInput struct {
	Selector string   `json:"selector"`
	Args     []string `json:"args"`
	Command  string   `json:"command"`
}

type runOutput struct {
	Selector   string `json:"selector"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitStatus int    `json:"exit_status"`
	Digest     string `json:"digest"`
}

// Tools returns a ToolBox containing the wgrib_run tool.
func (inv *Invoker) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(toolbox.Tool{
		Name:        "wgrib_run",
		Description: "Run the wgrib (primary, GRIB1) or wgrib2 (secondary, GRIB2) decoder and return its standard output, standard error and exit status. Pass either args (argv without the program name) or command (a full command line, program name first).",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"selector":{"type":"string","enum":["primary","secondary","wgrib","wgrib2"],"description":"Decoder variant (default primary)"},"args":{"type":"array","items":{"type":"string"},"description":"Decoder arguments, e.g. [\"sample.grb\", \"-s\"]"},"command":{"type":"string","description":"Full command line, e.g. \"wgrib2 in.grb -match \\\":TMP:\\\"\""}}}`),
		Handler:     inv.handleRun,
	})

	return tb
}

func (inv *Invoker) handleRun(ctx context.Context, input json.RawMessage) (string, error) {
	var in runInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("wgrib_run: invalid input: %w", err)
	}

	if in.Command != "" && len(in.Args) > 0 {
		return "", errors.New("wgrib_run: pass either args or command, not both")
	}

	var (
		res Result
		err error
	)
	if in.Command != "" {
		res, err = inv.RunLine(ctx, in.Selector, in.Command)
	} else {
		argv := append([]string{""}, in.Args...)
		res, err = inv.Run(ctx, in.Selector, argv)
	}
	if err != nil {
		return "", fmt.Errorf("wgrib_run: %w\n%s%s", err, res.Stdout, res.Stderr)
	}

	b, err := json.Marshal(runOutput{
		Selector:   string(res.Selector),
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		ExitStatus: res.ExitStatus,
		Digest:     res.Digest,
	})
	if err != nil {
		return "", fmt.Errorf("wgrib_run: encode result: %w", err)
	}

	return string(b), nil
}
