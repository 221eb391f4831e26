/*
Copyright © 2018 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package coverageutil contains the command-line interface for computing
// the differences between coverage regions.
package coverageutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/coverage"
	"github.com/spatialmodel/coverage/tracker"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the coverage command.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "minuend",
			usage: `
              minuend is the path to the TOML region file holding the regions
              to subtract from. It can include environment variables.`,
			shorthand:  "a",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{diffCmd.Flags(), missingCmd.Flags()},
		},
		{
			name: "subtrahend",
			usage: `
              subtrahend is the path to the TOML region file holding the regions
              to be subtracted. For the missing command these are the regions
              that are already covered. It can include environment variables.`,
			shorthand:  "b",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{diffCmd.Flags(), missingCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the path where the resulting regions should be written.
              Paths ending in .shp are written as shapefiles and anything else
              as JSON. If output is empty, JSON is written to standard output.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{diffCmd.Flags(), missingCmd.Flags()},
		},
		{
			name: "tolerance",
			usage: `
              tolerance is the area, in the units of the footprint coordinates
              squared, at or below which a footprint or an overlap between
              footprints is treated as empty.`,
			defaultVal: coverage.DefaultTolerance,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "cache.processors",
			usage: `
              cache.processors is the number of goroutines used to compute
              missing coverage.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{missingCmd.Flags()},
		},
		{
			name: "cache.entries",
			usage: `
              cache.entries is the number of missing coverage results kept
              in memory.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{missingCmd.Flags()},
		},
		{
			name: "log.level",
			usage: `
              log.level is the logging level. Valid options are "panic",
              "fatal", "error", "warning", "info", and "debug".`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("COVERAGE")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(diffCmd)
	Root.AddCommand(missingCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and applies the settings that affect the whole program.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("coverage: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("coverage: %v", err)
	}
	logrus.SetLevel(level)

	tol, err := cast.ToFloat64E(Cfg.Get("tolerance"))
	if err != nil {
		return fmt.Errorf("coverage: invalid tolerance: %v", err)
	}
	if tol < 0 {
		return fmt.Errorf("coverage: tolerance must not be negative, but it is %g", tol)
	}
	coverage.RegisterKind(coverage.FootprintKind, coverage.NewSpatial(tol))
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "coverage",
	Short: "Compute differences between coverage regions.",
	Long: `coverage computes the exact difference between regions made up of
time intervals and geographic footprints. Use the subcommands specified below
to access the functionality.

Regions are read from TOML region files. Configuration can be changed by
using a configuration file (and providing the path to the file using the
--config flag), by using command-line arguments, or by setting environment
variables in the format 'COVERAGE_var' where 'var' is the name of the variable
to be set, with any '.' replaced by '_'.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of coverage.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("coverage v%s\n", coverage.Version)
	},
	DisableAutoGenTag: true,
}

// readInputs reads the minuend and subtrahend region files.
func readInputs() (minuend, subtrahend []*coverage.Region, err error) {
	aPath, bPath := Cfg.GetString("minuend"), Cfg.GetString("subtrahend")
	if aPath == "" {
		return nil, nil, fmt.Errorf("coverage: the minuend region file must be specified")
	}
	minuend, err = ReadRegions(aPath)
	if err != nil {
		return nil, nil, err
	}
	if bPath != "" {
		subtrahend, err = ReadRegions(bPath)
		if err != nil {
			return nil, nil, err
		}
	}
	return minuend, subtrahend, nil
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Subtract regions",
	Long: `diff subtracts every region in the subtrahend file from every region
in the minuend file and writes the remaining regions, which do not overlap
each other within any one minuend region.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, b, err := readInputs()
		if err != nil {
			return err
		}
		result, err := Diff(a, b)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"minuend":    len(a),
			"subtrahend": len(b),
			"result":     len(result),
		}).Info("coverage: computed difference")
		return writeOutput(cmd.OutOrStdout(), Cfg.GetString("output"), result)
	},
	DisableAutoGenTag: true,
}

// Diff subtracts all of the regions in b from each of the regions in a
// and returns the concatenated remainders.
func Diff(a, b []*coverage.Region) ([]*coverage.Region, error) {
	var o []*coverage.Region
	for i, r := range a {
		pieces := []*coverage.Region{r}
		if _, err := coverage.SubtractAll(&pieces, b); err != nil {
			return nil, fmt.Errorf("coverage: subtracting from region %d: %v", i, err)
		}
		o = append(o, pieces...)
	}
	return o, nil
}

var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "Find coverage that has not been fetched",
	Long: `missing treats the regions in the subtrahend file as coverage that has
already been fetched, and writes the parts of each region in the minuend file
that are not yet covered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		queries, covered, err := readInputs()
		if err != nil {
			return err
		}
		processors, err := cast.ToIntE(Cfg.Get("cache.processors"))
		if err != nil {
			return fmt.Errorf("coverage: invalid cache.processors: %v", err)
		}
		entries, err := cast.ToIntE(Cfg.Get("cache.entries"))
		if err != nil {
			return fmt.Errorf("coverage: invalid cache.entries: %v", err)
		}
		if processors < 1 || entries < 1 {
			return fmt.Errorf("coverage: cache.processors and cache.entries must be positive")
		}
		t := tracker.New(tracker.WithLogger(logrus.StandardLogger()), tracker.WithCache(processors, entries))
		for _, r := range covered {
			t.Add(r)
		}
		var result []*coverage.Region
		for _, q := range queries {
			m, err := t.Missing(context.Background(), q)
			if err != nil {
				return err
			}
			result = append(result, m...)
		}
		logrus.WithFields(logrus.Fields{
			"queries": len(queries),
			"covered": len(covered),
			"missing": len(result),
		}).Info("coverage: computed missing coverage")
		return writeOutput(cmd.OutOrStdout(), Cfg.GetString("output"), result)
	},
	DisableAutoGenTag: true,
}
