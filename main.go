// Copyright 2018 Vasily Turchenko <turchenkov@gmail.com>. All rights reserved.
// Use of this source code is free

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/viper"

	"github.com/VasiliyTurchenko/gerber2gcode/configurator"
	"github.com/VasiliyTurchenko/gerber2gcode/gcode"
	"github.com/VasiliyTurchenko/gerber2gcode/gerber2gcode"
	"github.com/VasiliyTurchenko/gerber2gcode/job"
)

var (
	cfgFileName = flag.String("c", "", "configuration file, config.toml in the current directory by default")
	jobFileName = flag.String("j", "", "job file")
	outFileName = flag.String("o", "", "output file, stdout by default")
	dialect     = flag.String("dialect", "", "G-code dialect: "+strings.Join(gcode.DialectNames(), ", "))
	infoLevel   = flag.Int("info", 2, "application info: 0 - none, 3 - maximal")
	printConfig = flag.Bool("print-config", false, "print the configuration and exit")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	fmt.Fprint(os.Stderr, returnAppInfo(*infoLevel))

	viperConfig := viper.New()
	configurator.SetDefaults(viperConfig)
	if len(*cfgFileName) > 0 {
		viperConfig.SetConfigFile(*cfgFileName)
	}
	checkError(configurator.ProcessConfigFile(viperConfig), 1)
	if *printConfig {
		configurator.DiagnosticAllCfgPrint(viperConfig)
		return
	}
	cfg, err := configurator.Load(viperConfig)
	checkError(err, 1)

	if len(*jobFileName) == 0 {
		fmt.Fprintln(os.Stderr, "No job file specified.\nUsage:")
		flag.PrintDefaults()
		glog.Flush()
		os.Exit(2)
	}
	j, err := job.Load(*jobFileName, cfg.Defaults)
	checkError(err, 3)

	pipeline, err := gerber2gcode.New(cfg)
	checkError(err, 4)
	pipeline.Dialect = *dialect

	res, err := pipeline.Run(j)
	if err != nil {
		for _, rep := range res.Reports {
			if !rep.OK {
				glog.Errorln(rep)
			}
		}
	}
	checkError(err, 5)

	checkError(writeProgram(*outFileName, res.Program), 6)
	glog.Infof("%d lines written, estimated machining time %v", res.Post.Lines, res.Estimate)
}

// writeProgram writes the program to the named file or to stdout when the
// name is empty
func writeProgram(name, program string) error {
	if len(name) == 0 {
		_, err := os.Stdout.WriteString(program)
		return err
	}
	out, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err = out.WriteString(program); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// this function returns application info
func returnAppInfo(verbLevel int) string {
	var header = "Gerber and Excellon to G-code compiler\n"
	var version = "Version 0.2.0\n"
	var progDate = "19-Oct-2026\n"
	var retVal string
	switch verbLevel {
	case 3:
		retVal = header + version + progDate
	case 2:
		retVal = header + version
	case 1:
		retVal = header
	default:
		retVal = ""
	}
	return retVal
}

func checkError(err error, exitCode int) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		glog.Flush()
		os.Exit(exitCode)
	}
}
