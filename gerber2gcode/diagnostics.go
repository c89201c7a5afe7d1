package gerber2gcode

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/operations"
)

// printMemUsage outputs the current, total and OS memory being used. As well as the number
// of garbage collection cycles completed.
func (p *Pipeline) printMemUsage(header string) {
	if !p.cfg.Common.PrintMemoryInfo || p.Log == nil {
		return
	}
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	fmt.Fprintln(p.Log, header)
	fmt.Fprintf(p.Log, "Alloc = %v KB", bToKb(memStats.Alloc))
	fmt.Fprintf(p.Log, "\tTotalAlloc = %v KB", bToKb(memStats.TotalAlloc))
	fmt.Fprintf(p.Log, "\tSys = %v KB", bToKb(memStats.Sys))
	fmt.Fprintf(p.Log, "\tNumGC = %v\n", memStats.NumGC)
}

func bToKb(b uint64) uint64 {
	return b / 1024
}

/*
"[23:59:04 +2.001] "
*/
func timeInfo(now, start time.Time) string {
	elapsed := now.Sub(start)
	if start.IsZero() {
		elapsed = 0
	}
	elapsedSec := float64(elapsed.Milliseconds()) / 1000.0
	return fmt.Sprintf("[%02d:%02d:%02d +", now.Hour(), now.Minute(), now.Second()) +
		strconv.FormatFloat(elapsedSec, 'f', 3, 64) + "] "
}

/*
Saves the offset passes and toolpaths of the operation to <id>.passes.txt
*/
func (p *Pipeline) saveIntermediate(op *operations.Operation) {
	if !p.cfg.Parser.SaveIntermediate {
		return
	}
	fileName := filepath.Join(p.IntermediateDir, op.ID+".passes.txt")
	if err := writeIntermediate(fileName, op); err != nil {
		glog.Errorln("can not save intermediate file:", err)
		return
	}
	glog.V(2).Infoln("intermediate data saved to", fileName)
}

func writeIntermediate(fileName string, op *operations.Operation) error {
	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	fmt.Fprintln(w, op)
	for _, pass := range op.Passes {
		fmt.Fprintf(w, "pass %d offset %g\n", pass.Index, pass.Offset)
		for _, c := range pass.Tree.Flatten() {
			fmt.Fprintln(w, c)
		}
	}
	for _, tp := range op.Toolpaths {
		fmt.Fprintf(w, "toolpath %s\n", tp.Name)
		for _, m := range tp.Moves {
			fmt.Fprintln(w, m)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Close()
}
