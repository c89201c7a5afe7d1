/*
Package job holds the list of operations of one board and reads it from HCL
job files:

	title   = "blinky"
	dialect = "grblhal"

	operation "isolation" "top" {
	  file          = "blinky-F_Cu.gbr"
	  tool_diameter = 0.008 * inch
	  passes        = 2
	}

	operation "cutout" "edge" {
	  file          = "blinky-Edge_Cuts.gbr"
	  tool_diameter = 2
	  cut_depth     = -1.6
	  multi_depth   = true
	  tabs {
	    count = 4
	  }
	}

Parameters not given fall back to the configured defaults.
*/
package job

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/operations"
)

var ErrNoOperations = errors.New("job has no operations")

type Job struct {
	Title   string
	Dialect string
	// relative input files are resolved against it
	Dir string

	ops []*operations.Operation
}

func New(title string) *Job {
	return &Job{Title: title}
}

// Add creates an operation; names are unique within the job
func (j *Job) Add(name string, kind operations.Kind, file string, p operations.Params) (*operations.Operation, error) {
	if len(name) == 0 {
		return nil, fmt.Errorf("operation %s (%s) has no name", kind, file)
	}
	if j.Get(name) != nil {
		return nil, fmt.Errorf("duplicate operation %q", name)
	}
	op := operations.New(name, kind, file, p)
	j.ops = append(j.ops, op)
	glog.V(2).Infof("job %q: added %v", j.Title, op)
	return op, nil
}

// Remove drops the operation together with its passes and toolpaths
func (j *Job) Remove(name string) bool {
	for i, op := range j.ops {
		if op.ID == name {
			j.ops = append(j.ops[:i], j.ops[i+1:]...)
			return true
		}
	}
	return false
}

func (j *Job) Get(name string) *operations.Operation {
	for _, op := range j.ops {
		if op.ID == name {
			return op
		}
	}
	return nil
}

// Operations in the order they were added, which is the machining order
func (j *Job) Operations() []*operations.Operation {
	return j.ops
}

func (j *Job) Len() int {
	return len(j.ops)
}

// Path returns where the input of op is read from
func (j *Job) Path(op *operations.Operation) string {
	if filepath.IsAbs(op.File) || len(j.Dir) == 0 {
		return op.File
	}
	return filepath.Join(j.Dir, op.File)
}

// Validate checks the job can be run
func (j *Job) Validate() error {
	if len(j.ops) == 0 {
		return ErrNoOperations
	}
	for _, op := range j.ops {
		if len(op.File) == 0 {
			return fmt.Errorf("%v: no input file", op)
		}
		if op.Params.ToolDiameter <= 0 {
			return fmt.Errorf("%v: tool diameter %g is not positive", op, op.Params.ToolDiameter)
		}
		if op.Kind == operations.KindIsolation && op.Params.Passes < 1 {
			return fmt.Errorf("%v: at least one pass is needed", op)
		}
	}
	return nil
}
