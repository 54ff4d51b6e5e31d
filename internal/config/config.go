// SPDX-License-Identifier: Apache-2.0

// Package config loads the comparison settings. Values are layered as
// defaults, then the YAML file, then DOCDIFF_* environment variables, then
// command line flags, and the result is checked against an embedded CUE
// schema.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gemaraproj/docdiff/internal/diff"
	"github.com/gemaraproj/docdiff/internal/oracle"
	"github.com/gemaraproj/docdiff/internal/report"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCDIFF"

// ErrInvalid indicates a configuration rejected by the schema.
var ErrInvalid = errors.New("invalid configuration")

//go:embed schema.cue
var schemaSource string

type Config struct {
	Alignment  Alignment  `yaml:"alignment" json:"alignment"`
	Classifier Classifier `yaml:"classifier" json:"classifier"`
	Oracle     Oracle     `yaml:"oracle" json:"oracle"`
	Report     Report     `yaml:"report" json:"report"`
	Log        Log        `yaml:"log" json:"log"`
}

type Alignment struct {
	MinMatch    float64 `yaml:"min_match" json:"min_match"`
	MaxDPCells  int     `yaml:"max_dp_cells" json:"max_dp_cells"`
	FuzzyWindow int     `yaml:"fuzzy_window" json:"fuzzy_window"`
}

type Classifier struct {
	UnrelatedFloor float64 `yaml:"unrelated_floor" json:"unrelated_floor"`
	Concurrency    int     `yaml:"concurrency" json:"concurrency"`
	// OracleTimeout is a Go duration string such as "5s".
	OracleTimeout string `yaml:"oracle_timeout" json:"oracle_timeout"`
}

type Oracle struct {
	// Kind is "heuristic" or "mcp".
	Kind    string   `yaml:"kind" json:"kind"`
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args" json:"args"`
	Tool    string   `yaml:"tool" json:"tool"`
	ModelID string   `yaml:"model_id" json:"model_id"`
	// CachePath enables the persistent score cache when set.
	CachePath string            `yaml:"cache_path" json:"cache_path"`
	Labels    map[string]string `yaml:"labels" json:"labels"`
}

type Report struct {
	// ClusterThreshold links modifications with at least this textual
	// similarity into one group. Zero turns grouping off.
	ClusterThreshold float64 `yaml:"cluster_threshold" json:"cluster_threshold"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	align := diff.DefaultAlignOptions()
	classify := diff.DefaultOptions()
	reporting := report.DefaultOptions()
	return &Config{
		Alignment: Alignment{
			MinMatch:    align.MinMatch,
			MaxDPCells:  align.MaxDPCells,
			FuzzyWindow: align.FuzzyWindow,
		},
		Classifier: Classifier{
			UnrelatedFloor: classify.UnrelatedFloor,
			Concurrency:    classify.Concurrency,
			OracleTimeout:  classify.OracleTimeout.String(),
		},
		Oracle: Oracle{
			Kind:    "heuristic",
			Args:    []string{},
			Tool:    oracle.DefaultTool,
			ModelID: "heuristic-v1",
			Labels:  map[string]string{},
		},
		Report: Report{ClusterThreshold: reporting.ClusterThreshold},
		Log:    Log{Level: "info", Format: "text"},
	}
}

// overlay binds a dotted key to its flag and to the field it sets.
type overlay struct {
	key   string
	flag  string
	usage string
	apply func(c *Config, v *viper.Viper, key string)
}

var overlays = []overlay{
	{"alignment.min_match", "min-match", "minimum textual similarity for pairing units inside a gap",
		func(c *Config, v *viper.Viper, k string) { c.Alignment.MinMatch = v.GetFloat64(k) }},
	{"alignment.max_dp_cells", "max-dp-cells", "largest LCS table before switching to the linear-space algorithm",
		func(c *Config, v *viper.Viper, k string) { c.Alignment.MaxDPCells = v.GetInt(k) }},
	{"alignment.fuzzy_window", "fuzzy-window", "displacement limit for fuzzy pairing in large gaps",
		func(c *Config, v *viper.Viper, k string) { c.Alignment.FuzzyWindow = v.GetInt(k) }},
	{"classifier.unrelated_floor", "unrelated-floor", "score below which a pair is split into a deletion and an insertion",
		func(c *Config, v *viper.Viper, k string) { c.Classifier.UnrelatedFloor = v.GetFloat64(k) }},
	{"classifier.concurrency", "concurrency", "maximum oracle calls in flight",
		func(c *Config, v *viper.Viper, k string) { c.Classifier.Concurrency = v.GetInt(k) }},
	{"classifier.oracle_timeout", "oracle-timeout", "timeout for a single oracle call",
		func(c *Config, v *viper.Viper, k string) { c.Classifier.OracleTimeout = v.GetString(k) }},
	{"oracle.kind", "oracle", "similarity oracle: heuristic or mcp",
		func(c *Config, v *viper.Viper, k string) { c.Oracle.Kind = v.GetString(k) }},
	{"oracle.command", "oracle-command", "command serving the score_similarity MCP tool",
		func(c *Config, v *viper.Viper, k string) { c.Oracle.Command = v.GetString(k) }},
	{"oracle.args", "oracle-arg", "argument passed to the oracle command (repeatable)",
		func(c *Config, v *viper.Viper, k string) { c.Oracle.Args = v.GetStringSlice(k) }},
	{"oracle.tool", "oracle-tool", "name of the MCP tool to call",
		func(c *Config, v *viper.Viper, k string) { c.Oracle.Tool = v.GetString(k) }},
	{"oracle.model_id", "model-id", "model identifier used to key cached scores",
		func(c *Config, v *viper.Viper, k string) { c.Oracle.ModelID = v.GetString(k) }},
	{"oracle.cache_path", "oracle-cache", "sqlite file caching oracle scores",
		func(c *Config, v *viper.Viper, k string) { c.Oracle.CachePath = v.GetString(k) }},
	{"report.cluster_threshold", "cluster-threshold", "similarity at which modifications are grouped together, 0 disables grouping",
		func(c *Config, v *viper.Viper, k string) { c.Report.ClusterThreshold = v.GetFloat64(k) }},
	{"log.level", "log-level", "log level: debug, info, warn or error",
		func(c *Config, v *viper.Viper, k string) { c.Log.Level = v.GetString(k) }},
	{"log.format", "log-format", "log format: text or json",
		func(c *Config, v *viper.Viper, k string) { c.Log.Format = v.GetString(k) }},
}

// RegisterFlags defines one flag per overridable setting on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	for _, o := range overlays {
		switch o.key {
		case "alignment.min_match":
			fs.Float64(o.flag, d.Alignment.MinMatch, o.usage)
		case "alignment.max_dp_cells":
			fs.Int(o.flag, d.Alignment.MaxDPCells, o.usage)
		case "alignment.fuzzy_window":
			fs.Int(o.flag, d.Alignment.FuzzyWindow, o.usage)
		case "classifier.unrelated_floor":
			fs.Float64(o.flag, d.Classifier.UnrelatedFloor, o.usage)
		case "classifier.concurrency":
			fs.Int(o.flag, d.Classifier.Concurrency, o.usage)
		case "report.cluster_threshold":
			fs.Float64(o.flag, d.Report.ClusterThreshold, o.usage)
		case "oracle.args":
			fs.StringSlice(o.flag, nil, o.usage)
		default:
			fs.String(o.flag, "", o.usage)
		}
	}
}

// Load reads the file at path, when given, and applies environment and flag
// overrides. Only flags changed on the command line take effect.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, o := range overlays {
		if flags == nil {
			break
		}
		if f := flags.Lookup(o.flag); f != nil {
			if err := v.BindPFlag(o.key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", o.flag, err)
			}
		}
	}
	for _, o := range overlays {
		if v.IsSet(o.key) {
			o.apply(cfg, v, o.key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks c against the embedded schema.
func (c *Config) Validate() error {
	if c.Oracle.Args == nil {
		c.Oracle.Args = []string{}
	}
	if c.Oracle.Labels == nil {
		c.Oracle.Labels = map[string]string{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	value := ctx.CompileBytes(data, cue.Filename("config.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var msgs []string
		for _, e := range cueerrors.Errors(err) {
			format, args := e.Msg()
			msg := fmt.Sprintf(format, args...)
			if path := e.Path(); len(path) > 0 {
				msg = strings.Join(path, ".") + ": " + msg
			}
			msgs = append(msgs, msg)
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	if _, err := time.ParseDuration(c.Classifier.OracleTimeout); err != nil {
		return fmt.Errorf("%w: classifier.oracle_timeout: %w", ErrInvalid, err)
	}
	return nil
}

// AlignOptions converts the alignment section.
func (c *Config) AlignOptions() diff.AlignOptions {
	return diff.AlignOptions{
		MinMatch:    c.Alignment.MinMatch,
		MaxDPCells:  c.Alignment.MaxDPCells,
		FuzzyWindow: c.Alignment.FuzzyWindow,
	}
}

// ClassifierOptions converts the classifier section. Call Validate first.
func (c *Config) ClassifierOptions() diff.Options {
	timeout, _ := time.ParseDuration(c.Classifier.OracleTimeout)
	return diff.Options{
		UnrelatedFloor: c.Classifier.UnrelatedFloor,
		Concurrency:    c.Classifier.Concurrency,
		OracleTimeout:  timeout,
	}
}

// ReportOptions converts the report section.
func (c *Config) ReportOptions() report.Options {
	return report.Options{ClusterThreshold: c.Report.ClusterThreshold}
}

// LabelRules compiles the configured entity labels, falling back to the
// built-in table when none are configured.
func (c *Config) LabelRules() ([]oracle.Rule, error) {
	labels := c.Oracle.Labels
	if len(labels) == 0 {
		labels = oracle.DefaultLabels()
	}
	return oracle.CompileRules(labels)
}
