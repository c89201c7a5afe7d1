package job

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/VasiliyTurchenko/gerber2gcode/operations"
	"github.com/VasiliyTurchenko/gerber2gcode/toolpath"
)

const (
	mmPerInch = 25.4
	mmPerMil  = 0.0254
)

type hclJobFile struct {
	Title      string          `hcl:"title,optional"`
	Dialect    string          `hcl:"dialect,optional"`
	Operations []*hclOperation `hcl:"operation,block"`
}

// unset attributes stay nil and take the default
type hclOperation struct {
	Kind string `hcl:"kind,label"`
	Name string `hcl:"name,label"`
	File string `hcl:"file"`

	ToolNumber   *int     `hcl:"tool_number,optional"`
	ToolType     *string  `hcl:"tool_type,optional"`
	ToolDiameter *float64 `hcl:"tool_diameter,optional"`
	CutDepth     *float64 `hcl:"cut_depth,optional"`
	MultiDepth   *bool    `hcl:"multi_depth,optional"`
	DepthPerPass *float64 `hcl:"depth_per_pass,optional"`
	CutFeed      *float64 `hcl:"cut_feed,optional"`
	PlungeFeed   *float64 `hcl:"plunge_feed,optional"`
	SpindleSpeed *float64 `hcl:"spindle_speed,optional"`
	Entry        *string  `hcl:"entry,optional"`
	RampAngle    *float64 `hcl:"ramp_angle,optional"`
	HelixPitch   *float64 `hcl:"helix_pitch,optional"`
	Direction    *string  `hcl:"direction,optional"`
	Passes       *int     `hcl:"passes,optional"`
	Overlap      *float64 `hcl:"overlap,optional"`
	PeckDepth    *float64 `hcl:"peck_depth,optional"`
	Dwell        *float64 `hcl:"dwell,optional"`

	Tabs *hclTabs `hcl:"tabs,block"`
}

type hclTabs struct {
	Count  *int     `hcl:"count,optional"`
	Width  *float64 `hcl:"width,optional"`
	Height *float64 `hcl:"height,optional"`
}

// EvalContext exposes the unit multipliers to job expressions
func EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"mm":   cty.NumberIntVal(1),
			"inch": cty.NumberFloatVal(mmPerInch),
			"mil":  cty.NumberFloatVal(mmPerMil),
		},
	}
}

// Load reads a job file, relative input paths are taken from its directory
func Load(path string, defaults operations.Params) (*Job, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("job file: %w", err)
	}
	j, err := Parse(src, path, defaults)
	if err != nil {
		return nil, err
	}
	j.Dir = filepath.Dir(path)
	return j, nil
}

// Parse decodes HCL job source, filename is used in diagnostics only
func Parse(src []byte, filename string, defaults operations.Params) (*Job, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse job file %s: %w", filename, diags)
	}

	var parsed hclJobFile
	diags = gohcl.DecodeBody(file.Body, EvalContext(), &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode job file %s: %w", filename, diags)
	}

	retVal := New(parsed.Title)
	retVal.Dialect = parsed.Dialect
	for _, h := range parsed.Operations {
		kind, err := operations.ParseKind(h.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s: operation %q: %w", filename, h.Name, err)
		}
		p, err := h.params(kind, defaults)
		if err != nil {
			return nil, fmt.Errorf("%s: operation %q: %w", filename, h.Name, err)
		}
		if _, err := retVal.Add(h.Name, kind, h.File, p); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}
	if err := retVal.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return retVal, nil
}

func (h *hclOperation) params(kind operations.Kind, defaults operations.Params) (operations.Params, error) {
	p := defaults
	if kind != operations.KindIsolation {
		p.Passes = 1
	}
	if kind == operations.KindDrill {
		p.ToolType = "drill"
	}
	setInt(&p.ToolNumber, h.ToolNumber)
	if h.ToolType != nil {
		p.ToolType = *h.ToolType
	}
	setFloat(&p.ToolDiameter, h.ToolDiameter)
	setFloat(&p.CutDepth, h.CutDepth)
	if h.MultiDepth != nil {
		p.MultiDepth = *h.MultiDepth
	}
	setFloat(&p.DepthPerPass, h.DepthPerPass)
	setFloat(&p.CutFeed, h.CutFeed)
	setFloat(&p.PlungeFeed, h.PlungeFeed)
	setFloat(&p.SpindleSpeed, h.SpindleSpeed)
	setFloat(&p.RampAngle, h.RampAngle)
	setFloat(&p.HelixPitch, h.HelixPitch)
	setInt(&p.Passes, h.Passes)
	setFloat(&p.Overlap, h.Overlap)
	setFloat(&p.PeckDepth, h.PeckDepth)
	setFloat(&p.Dwell, h.Dwell)
	if h.Entry != nil {
		e, ok := toolpath.ParseEntry(*h.Entry)
		if !ok {
			return p, fmt.Errorf("unknown entry %q", *h.Entry)
		}
		p.Entry = e
	}
	if h.Direction != nil {
		d, ok := toolpath.ParseDirection(*h.Direction)
		if !ok {
			return p, fmt.Errorf("unknown direction %q", *h.Direction)
		}
		p.Direction = d
	}
	if h.Tabs != nil {
		setInt(&p.Tabs.Count, h.Tabs.Count)
		setFloat(&p.Tabs.Width, h.Tabs.Width)
		setFloat(&p.Tabs.Height, h.Tabs.Height)
	} else if kind != operations.KindCutout {
		p.Tabs = toolpath.Tabs{}
	}
	if p.Overlap < 0 || p.Overlap >= 1 {
		return p, fmt.Errorf("overlap %g is out of [0, 1)", p.Overlap)
	}
	return p, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
