package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by the listing commands.
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
	OutputJSON  = "json"
)

// Templates lists deployable templates.
func Templates(ctx context.Context, out io.Writer, output string) error {
	c, err := newConsole(ctx)
	if err != nil {
		return err
	}
	return listTemplates(ctx, out, c, output)
}

func listTemplates(ctx context.Context, out io.Writer, c *console, output string) error {
	if err := checkOutput(output); err != nil {
		return err
	}
	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	templates, err := c.backend.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	if output == OutputTable {
		fmt.Fprint(out, renderTemplates(templates))
		return nil
	}
	return encode(out, output, templates)
}

// Domains lists the domains mapped to an instance.
func Domains(ctx context.Context, out io.Writer, instanceID, output string) error {
	c, err := newConsole(ctx)
	if err != nil {
		return err
	}
	return listDomains(ctx, out, c, instanceID, output)
}

func listDomains(ctx context.Context, out io.Writer, c *console, instanceID, output string) error {
	if err := checkOutput(output); err != nil {
		return err
	}
	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	domains, err := c.backend.ListDomains(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("list domains for instance %s: %w", instanceID, err)
	}
	if output == OutputTable {
		fmt.Fprint(out, renderDomains(instanceID, domains))
		return nil
	}
	return encode(out, output, domains)
}

func checkOutput(output string) error {
	switch output {
	case OutputTable, OutputYAML, OutputJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, yaml or json)", output)
}

func encode(out io.Writer, output string, v any) error {
	if output == OutputYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
