package configurator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/VasiliyTurchenko/gerber2gcode/clipengine"
	"github.com/VasiliyTurchenko/gerber2gcode/excellon"
	"github.com/VasiliyTurchenko/gerber2gcode/fusion"
	"github.com/VasiliyTurchenko/gerber2gcode/gcode"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/gerbparser"
	"github.com/VasiliyTurchenko/gerber2gcode/operations"
	"github.com/VasiliyTurchenko/gerber2gcode/toolpath"
)

const (
	CfgCommonPrintMemoryInfo string = "common.PrintMemoryInfo"
	CfgCommonPrintStatistic  string = "common.PrintStatistic"
	CfgCommonStrictWarnings  string = "common.StrictWarnings"

	CfgParserSaveIntermediate        string = "parser.SaveIntermediate"
	CfgParserArcTolerance            string = "parser.ArcTolerance"
	CfgParserMinDrawLength           string = "parser.MinDrawLength"
	CfgParserExcellonDefaultDiameter string = "parser.ExcellonDefaultDiameter"
	CfgParserExcellonUnits           string = "parser.ExcellonUnits"

	CfgEngineBackend           string = "engine.Backend"
	CfgEngineScale             string = "engine.Scale"
	CfgEngineMiterLimit        string = "engine.MiterLimit"
	CfgEngineArcTolerance      string = "engine.ArcTolerance"
	CfgEngineTextHeuristic     string = "engine.TextHeuristic"
	CfgEngineTextAreaThreshold string = "engine.TextAreaThreshold"

	CfgPostDialect             string = "post.Dialect"
	CfgPostModalSuppression    string = "post.ModalSuppression"
	CfgPostFullCircleDetection string = "post.FullCircleDetection"
	CfgPostSpindleDwell        string = "post.SpindleDwell"
	CfgPostPathTolerance       string = "post.PathTolerance"
	CfgPostReturnToOrigin      string = "post.ReturnToOrigin"
	CfgPostStartMacro          string = "post.StartMacro"
	CfgPostEndMacro            string = "post.EndMacro"

	CfgMachineSafeZ            string = "machine.SafeZ"
	CfgMachineTravelZ          string = "machine.TravelZ"
	CfgMachineRapidFeed        string = "machine.RapidFeed"
	CfgMachineCoordinateSystem string = "machine.CoordinateSystem"
	CfgPcbXOrigin              string = "pcb.xOrigin"
	CfgPcbYOrigin              string = "pcb.yOrigin"

	CfgDefaultsToolDiameter string = "defaults.ToolDiameter"
	CfgDefaultsToolType     string = "defaults.ToolType"
	CfgDefaultsCutDepth     string = "defaults.CutDepth"
	CfgDefaultsMultiDepth   string = "defaults.MultiDepth"
	CfgDefaultsDepthPerPass string = "defaults.DepthPerPass"
	CfgDefaultsCutFeed      string = "defaults.CutFeed"
	CfgDefaultsPlungeFeed   string = "defaults.PlungeFeed"
	CfgDefaultsSpindleSpeed string = "defaults.SpindleSpeed"
	CfgDefaultsEntry        string = "defaults.Entry"
	CfgDefaultsRampAngle    string = "defaults.RampAngle"
	CfgDefaultsHelixPitch   string = "defaults.HelixPitch"
	CfgDefaultsDirection    string = "defaults.Direction"
	CfgDefaultsPasses       string = "defaults.Passes"
	CfgDefaultsOverlap      string = "defaults.Overlap"
	CfgDefaultsPeckDepth    string = "defaults.PeckDepth"
	CfgDefaultsDwell        string = "defaults.Dwell"
	CfgDefaultsClearance    string = "defaults.Clearance"
	CfgDefaultsTabCount     string = "defaults.TabCount"
	CfgDefaultsTabWidth     string = "defaults.TabWidth"
	CfgDefaultsTabHeight    string = "defaults.TabHeight"
)

func SetDefaults(v *viper.Viper) {
	v.SetConfigName("config") // no need to include file extension
	v.AddConfigPath(".")      // set the path of your config file
	v.SetConfigType("toml")

	// diagnostic messages
	v.SetDefault(CfgCommonPrintMemoryInfo, false)
	v.SetDefault(CfgCommonPrintStatistic, true)
	v.SetDefault(CfgCommonStrictWarnings, false)

	//
	v.SetDefault(CfgParserSaveIntermediate, false)
	v.SetDefault(CfgParserArcTolerance, 0.005)
	v.SetDefault(CfgParserMinDrawLength, MinDrawLength)
	v.SetDefault(CfgParserExcellonDefaultDiameter, excellon.DefaultToolDiameter)
	v.SetDefault(CfgParserExcellonUnits, "mm")

	//
	engine := clipengine.DefaultConfig()
	v.SetDefault(CfgEngineBackend, engine.Backend)
	v.SetDefault(CfgEngineScale, engine.Scale)
	v.SetDefault(CfgEngineMiterLimit, engine.MiterLimit)
	v.SetDefault(CfgEngineArcTolerance, engine.ArcTolerance)
	v.SetDefault(CfgEngineTextHeuristic, true)
	v.SetDefault(CfgEngineTextAreaThreshold, 4.0)

	//
	post := gcode.DefaultOptions()
	v.SetDefault(CfgPostDialect, post.Dialect)
	v.SetDefault(CfgPostModalSuppression, post.ModalSuppression)
	v.SetDefault(CfgPostFullCircleDetection, post.FullCircleDetection)
	v.SetDefault(CfgPostSpindleDwell, post.SpindleDwell)
	v.SetDefault(CfgPostPathTolerance, post.PathTolerance)
	v.SetDefault(CfgPostReturnToOrigin, post.ReturnToOrigin)
	v.SetDefault(CfgPostStartMacro, []string{})
	v.SetDefault(CfgPostEndMacro, []string{})

	//
	v.SetDefault(CfgMachineSafeZ, 10.0)
	v.SetDefault(CfgMachineTravelZ, 2.0)
	v.SetDefault(CfgMachineRapidFeed, 1000.0)
	v.SetDefault(CfgMachineCoordinateSystem, "G54")
	v.SetDefault(CfgPcbXOrigin, 0)
	v.SetDefault(CfgPcbYOrigin, 0)

	//
	p := toolpath.DefaultParams()
	v.SetDefault(CfgDefaultsToolDiameter, p.ToolDiameter)
	v.SetDefault(CfgDefaultsToolType, "endmill")
	v.SetDefault(CfgDefaultsCutDepth, p.CutDepth)
	v.SetDefault(CfgDefaultsMultiDepth, p.MultiDepth)
	v.SetDefault(CfgDefaultsDepthPerPass, p.DepthPerPass)
	v.SetDefault(CfgDefaultsCutFeed, p.CutFeed)
	v.SetDefault(CfgDefaultsPlungeFeed, p.PlungeFeed)
	v.SetDefault(CfgDefaultsSpindleSpeed, p.SpindleSpeed)
	v.SetDefault(CfgDefaultsEntry, p.Entry.String())
	v.SetDefault(CfgDefaultsRampAngle, p.RampAngle)
	v.SetDefault(CfgDefaultsHelixPitch, p.HelixPitch)
	v.SetDefault(CfgDefaultsDirection, p.Direction.String())
	v.SetDefault(CfgDefaultsPasses, 1)
	v.SetDefault(CfgDefaultsOverlap, 0.4)
	v.SetDefault(CfgDefaultsPeckDepth, 0.0)
	v.SetDefault(CfgDefaultsDwell, 0.0)
	v.SetDefault(CfgDefaultsClearance, p.Clearance)
	v.SetDefault(CfgDefaultsTabCount, 4)
	v.SetDefault(CfgDefaultsTabWidth, 2.0)
	v.SetDefault(CfgDefaultsTabHeight, 0.0)
}

// ProcessConfigFile reads the file set by SetConfigFile or found by the
// search path. A missing file is not an error, the defaults stay.
func ProcessConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("configuration file error: %w", err)
	}
	return nil
}

func DiagnosticAllCfgPrint(v *viper.Viper) {
	keys := v.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Println(key, ":", v.Get(key))
	}
	fmt.Println()
}

/* ############################## immutable configuration ############################## */

type Common struct {
	PrintMemoryInfo bool
	PrintStatistic  bool
	// warnings of any stage halt the pipeline
	StrictWarnings bool
}

type Parser struct {
	SaveIntermediate        bool
	ArcTolerance            float64
	MinDrawLength           float64
	ExcellonDefaultDiameter float64
	ExcellonUnits           Units
}

type Engine struct {
	Backend           string
	Scale             float64
	MiterLimit        float64
	ArcTolerance      float64
	TextHeuristic     bool
	TextAreaThreshold float64
}

type Post struct {
	Dialect             string
	ModalSuppression    bool
	FullCircleDetection bool
	SpindleDwell        float64
	PathTolerance       float64
	ReturnToOrigin      bool
	StartMacro          []string
	EndMacro            []string
}

type Machine struct {
	SafeZ            float64
	TravelZ          float64
	RapidFeed        float64
	CoordinateSystem string
	XOrigin, YOrigin float64
}

// Config is read once and handed down by value
type Config struct {
	Common   Common
	Parser   Parser
	Engine   Engine
	Post     Post
	Machine  Machine
	Defaults operations.Params
}

// Load validates the settings and builds the configuration value
func Load(v *viper.Viper) (Config, error) {
	var retVal Config
	retVal.Common = Common{
		PrintMemoryInfo: v.GetBool(CfgCommonPrintMemoryInfo),
		PrintStatistic:  v.GetBool(CfgCommonPrintStatistic),
		StrictWarnings:  v.GetBool(CfgCommonStrictWarnings),
	}

	units, err := parseUnits(v.GetString(CfgParserExcellonUnits))
	if err != nil {
		return retVal, fmt.Errorf("%s: %w", CfgParserExcellonUnits, err)
	}
	retVal.Parser = Parser{
		SaveIntermediate:        v.GetBool(CfgParserSaveIntermediate),
		ArcTolerance:            v.GetFloat64(CfgParserArcTolerance),
		MinDrawLength:           v.GetFloat64(CfgParserMinDrawLength),
		ExcellonDefaultDiameter: v.GetFloat64(CfgParserExcellonDefaultDiameter),
		ExcellonUnits:           units,
	}
	if retVal.Parser.ArcTolerance <= 0 {
		return retVal, fmt.Errorf("%s must be positive", CfgParserArcTolerance)
	}

	retVal.Engine = Engine{
		Backend:           v.GetString(CfgEngineBackend),
		Scale:             v.GetFloat64(CfgEngineScale),
		MiterLimit:        v.GetFloat64(CfgEngineMiterLimit),
		ArcTolerance:      v.GetFloat64(CfgEngineArcTolerance),
		TextHeuristic:     v.GetBool(CfgEngineTextHeuristic),
		TextAreaThreshold: v.GetFloat64(CfgEngineTextAreaThreshold),
	}
	if retVal.Engine.Scale <= 0 {
		return retVal, fmt.Errorf("%s must be positive", CfgEngineScale)
	}
	if _, err := clipengine.NewKernel(retVal.Engine.Backend); err != nil {
		return retVal, fmt.Errorf("%s: %w", CfgEngineBackend, err)
	}

	retVal.Post = Post{
		Dialect:             v.GetString(CfgPostDialect),
		ModalSuppression:    v.GetBool(CfgPostModalSuppression),
		FullCircleDetection: v.GetBool(CfgPostFullCircleDetection),
		SpindleDwell:        v.GetFloat64(CfgPostSpindleDwell),
		PathTolerance:       v.GetFloat64(CfgPostPathTolerance),
		ReturnToOrigin:      v.GetBool(CfgPostReturnToOrigin),
		StartMacro:          v.GetStringSlice(CfgPostStartMacro),
		EndMacro:            v.GetStringSlice(CfgPostEndMacro),
	}
	if _, err := gcode.LookupDialect(retVal.Post.Dialect); err != nil {
		return retVal, fmt.Errorf("%s: %w", CfgPostDialect, err)
	}

	retVal.Machine = Machine{
		SafeZ:            v.GetFloat64(CfgMachineSafeZ),
		TravelZ:          v.GetFloat64(CfgMachineTravelZ),
		RapidFeed:        v.GetFloat64(CfgMachineRapidFeed),
		CoordinateSystem: v.GetString(CfgMachineCoordinateSystem),
		XOrigin:          v.GetFloat64(CfgPcbXOrigin),
		YOrigin:          v.GetFloat64(CfgPcbYOrigin),
	}
	if retVal.Machine.TravelZ <= 0 || retVal.Machine.SafeZ < retVal.Machine.TravelZ {
		return retVal, fmt.Errorf("%s %g and %s %g: travel height must be positive and not above the safe height",
			CfgMachineTravelZ, retVal.Machine.TravelZ, CfgMachineSafeZ, retVal.Machine.SafeZ)
	}

	retVal.Defaults, err = loadDefaults(v, retVal.Machine)
	if err != nil {
		return retVal, err
	}
	return retVal, nil
}

func loadDefaults(v *viper.Viper, m Machine) (operations.Params, error) {
	var retVal operations.Params
	entry, ok := toolpath.ParseEntry(v.GetString(CfgDefaultsEntry))
	if !ok {
		return retVal, fmt.Errorf("%s: unknown entry %q", CfgDefaultsEntry, v.GetString(CfgDefaultsEntry))
	}
	dir, ok := toolpath.ParseDirection(v.GetString(CfgDefaultsDirection))
	if !ok {
		return retVal, fmt.Errorf("%s: unknown direction %q", CfgDefaultsDirection, v.GetString(CfgDefaultsDirection))
	}
	p := toolpath.DefaultParams()
	p.ToolDiameter = v.GetFloat64(CfgDefaultsToolDiameter)
	p.CutDepth = v.GetFloat64(CfgDefaultsCutDepth)
	p.MultiDepth = v.GetBool(CfgDefaultsMultiDepth)
	p.DepthPerPass = v.GetFloat64(CfgDefaultsDepthPerPass)
	p.CutFeed = v.GetFloat64(CfgDefaultsCutFeed)
	p.PlungeFeed = v.GetFloat64(CfgDefaultsPlungeFeed)
	p.SpindleSpeed = v.GetFloat64(CfgDefaultsSpindleSpeed)
	p.Entry = entry
	p.RampAngle = v.GetFloat64(CfgDefaultsRampAngle)
	p.HelixPitch = v.GetFloat64(CfgDefaultsHelixPitch)
	p.Direction = dir
	p.PeckDepth = v.GetFloat64(CfgDefaultsPeckDepth)
	p.Dwell = v.GetFloat64(CfgDefaultsDwell)
	p.Clearance = v.GetFloat64(CfgDefaultsClearance)
	p.Tabs = toolpath.Tabs{
		Count:  v.GetInt(CfgDefaultsTabCount),
		Width:  v.GetFloat64(CfgDefaultsTabWidth),
		Height: v.GetFloat64(CfgDefaultsTabHeight),
	}
	p.SafeZ = m.SafeZ
	p.TravelZ = m.TravelZ
	p.ArcTolerance = v.GetFloat64(CfgParserArcTolerance)
	retVal = operations.Params{
		Params:   p,
		ToolType: v.GetString(CfgDefaultsToolType),
		Passes:   v.GetInt(CfgDefaultsPasses),
		Overlap:  v.GetFloat64(CfgDefaultsOverlap),
	}
	if p.ToolDiameter <= 0 {
		return retVal, fmt.Errorf("%s must be positive", CfgDefaultsToolDiameter)
	}
	if retVal.Overlap < 0 || retVal.Overlap >= 1 {
		return retVal, fmt.Errorf("%s %g is out of [0, 1)", CfgDefaultsOverlap, retVal.Overlap)
	}
	return retVal, nil
}

func parseUnits(s string) (Units, error) {
	switch s {
	case "mm", "metric":
		return UnitsMM, nil
	case "inch", "in":
		return UnitsInch, nil
	default:
	}
	return 0, fmt.Errorf("unknown units %q", s)
}

/* ############################## component options ############################## */

func (c Config) ParserOptions() gerbparser.Options {
	return gerbparser.Options{ArcTolerance: c.Parser.ArcTolerance, MinDrawLength: c.Parser.MinDrawLength}
}

func (c Config) ExcellonOptions() excellon.Options {
	return excellon.Options{DefaultDiameter: c.Parser.ExcellonDefaultDiameter, DefaultUnits: c.Parser.ExcellonUnits}
}

func (c Config) EngineConfig() clipengine.Config {
	return clipengine.Config{
		Scale:        c.Engine.Scale,
		MiterLimit:   c.Engine.MiterLimit,
		ArcTolerance: c.Engine.ArcTolerance,
		Backend:      c.Engine.Backend,
	}
}

func (c Config) FusionConfig() fusion.Config {
	return fusion.Config{
		ArcTolerance:      c.Parser.ArcTolerance,
		TextHeuristic:     c.Engine.TextHeuristic,
		TextAreaThreshold: c.Engine.TextAreaThreshold,
	}
}

// PostOptions returns the post processor options, dialect may override the
// configured one when not empty
func (c Config) PostOptions(dialect string) gcode.Options {
	if len(dialect) == 0 {
		dialect = c.Post.Dialect
	}
	return gcode.Options{
		Dialect:             dialect,
		ModalSuppression:    c.Post.ModalSuppression,
		FullCircleDetection: c.Post.FullCircleDetection,
		SafeZ:               c.Machine.SafeZ,
		SpindleDwell:        c.Post.SpindleDwell,
		CoordinateSystem:    c.Machine.CoordinateSystem,
		PathTolerance:       c.Post.PathTolerance,
		ReturnToOrigin:      c.Post.ReturnToOrigin,
		StartMacro:          c.Post.StartMacro,
		EndMacro:            c.Post.EndMacro,
	}
}
