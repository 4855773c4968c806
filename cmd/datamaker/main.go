// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/floodnet/datamaker/cmd/version"
	"github.com/floodnet/datamaker/common/log"
	"github.com/floodnet/datamaker/config"
	"github.com/floodnet/datamaker/dataset"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "datamaker",
	Short: "Tile flood rasters and split tiles into train and test sets.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		_ = cmd.Help()
	},
}

var tileCommand = &cobra.Command{
	Use:   "tile",
	Short: "Resample, pad and tile raw rasters into the scratch directory.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := setup(cmd)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if _, err := tileStage(ctx, conf, true); err != nil {
			log.Logger().Fatal("failed to tile rasters", zap.Error(err))
		}
	},
}

var splitCommand = &cobra.Command{
	Use:   "split",
	Short: "Distribute tiles of the scratch directory into train and test trees.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := setup(cmd)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		manifest, err := scanScratch(conf)
		if err != nil {
			log.Logger().Fatal("failed to scan tiles", zap.Error(err))
		}
		if err = splitStage(ctx, conf, manifest, true); err != nil {
			log.Logger().Fatal("failed to split tiles", zap.Error(err))
		}
		printSummary(os.Stdout, manifest)
	},
}

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Tile raw rasters and split the tiles in one pass.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := setup(cmd)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		manifest, err := tileStage(ctx, conf, true)
		if err != nil {
			log.Logger().Fatal("failed to tile rasters", zap.Error(err))
		}
		if err = splitStage(ctx, conf, manifest, true); err != nil {
			log.Logger().Fatal("failed to split tiles", zap.Error(err))
		}
		printSummary(os.Stdout, manifest)
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print build information.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.BuildInfo())
	},
}

var schemaCommand = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of manifest files.",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := dataset.ManifestSchema()
		if err != nil {
			log.Logger().Fatal("failed to generate schema", zap.Error(err))
		}
		fmt.Println(string(data))
	},
}

// setup initializes the logger and loads the configuration. Flags override the
// configuration file and environment variables.
func setup(cmd *cobra.Command) *config.Config {
	debug, _ := cmd.Flags().GetBool("debug")
	log.SetLogger(cmd.Flags(), debug)
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		log.CloseLogger()
	}

	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	if err = applyFlags(cmd, conf); err != nil {
		log.Logger().Fatal("invalid config", zap.Error(err))
	}
	return conf
}

func applyFlags(cmd *cobra.Command, conf *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("input") {
		conf.Input.Dir, _ = flags.GetString("input")
	}
	if flags.Changed("seed") {
		conf.Split.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("jobs") {
		conf.Jobs, _ = flags.GetInt("jobs")
	}
	return errors.Trace(conf.Validate())
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().BoolP("quiet", "q", false, "only log fatal errors")
	rootCommand.PersistentFlags().BoolP("version", "v", false, "datamaker version")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().StringP("input", "i", "", "directory of raw rasters")
	rootCommand.PersistentFlags().Int64("seed", 0, "random seed of the group shuffle")
	rootCommand.PersistentFlags().IntP("jobs", "j", 1, "number of concurrent jobs")
	rootCommand.AddCommand(tileCommand, splitCommand, runCommand, schemaCommand, versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
