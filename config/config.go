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

package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	StoragePOSIX = "posix"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
	StorageAzure = "azure"
)

// Config is the configuration of a data preparation run. It is built once by the
// entry point and passed to every stage.
type Config struct {
	Input   InputConfig   `mapstructure:"input"`
	Tiling  TilingConfig  `mapstructure:"tiling"`
	Output  OutputConfig  `mapstructure:"output"`
	Split   SplitConfig   `mapstructure:"split"`
	Storage StorageConfig `mapstructure:"storage"`
	Jobs    int           `mapstructure:"jobs" validate:"gte=1"`
}

// InputConfig locates raw rasters. Feature files end with Extension and contain
// FeatureMarker. The label of a feature file is its source prefix followed by LabelSuffix.
type InputConfig struct {
	Dir           string `mapstructure:"dir" validate:"required"`
	Extension     string `mapstructure:"extension" validate:"required"`
	FeatureMarker string `mapstructure:"feature_marker" validate:"required"`
	LabelSuffix   string `mapstructure:"label_suffix" validate:"required"`
}

type TilingConfig struct {
	TileSize       int `mapstructure:"tile_size" validate:"gt=0"`
	ResampleFactor int `mapstructure:"resample_factor" validate:"gt=0"`
	PrefixLength   int `mapstructure:"prefix_length" validate:"gt=0"`
}

type OutputConfig struct {
	ScratchDir   string `mapstructure:"scratch_dir" validate:"required"`
	SplitDir     string `mapstructure:"split_dir" validate:"required"`
	TrainDir     string `mapstructure:"train_dir" validate:"required"`
	TestDir      string `mapstructure:"test_dir" validate:"required,nefield=TrainDir"`
	CombinedName string `mapstructure:"combined_name" validate:"required"`
	Manifest     string `mapstructure:"manifest" validate:"required"`
}

type SplitConfig struct {
	Seed       int64   `mapstructure:"seed"`
	TrainRatio float64 `mapstructure:"train_ratio" validate:"gt=0,lte=1"`
}

// StorageConfig selects where split trees are written.
type StorageConfig struct {
	Type     string          `mapstructure:"type" validate:"oneof=posix s3 gcs azure"`
	MaxTries int             `mapstructure:"max_tries" validate:"gte=1"`
	S3       S3Config        `mapstructure:"s3"`
	GCS      GCSConfig       `mapstructure:"gcs"`
	Azure    AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
	Container        string `mapstructure:"container"`
	Prefix           string `mapstructure:"prefix"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Dir:           "./repo/FloodNetData",
			Extension:     ".npy",
			FeatureMarker: "Features",
			LabelSuffix:   "_labels.npy",
		},
		Tiling: TilingConfig{
			TileSize:       64,
			ResampleFactor: 5,
			PrefixLength:   8,
		},
		Output: OutputConfig{
			ScratchDir:   "./cropped",
			SplitDir:     ".",
			TrainDir:     "cropped_data_train",
			TestDir:      "cropped_data_val_test",
			CombinedName: "Region_X_X_TRAIN_Region_X_TEST",
			Manifest:     "manifest.json",
		},
		Split: SplitConfig{
			TrainRatio: 0.9,
		},
		Storage: StorageConfig{
			Type:     StoragePOSIX,
			MaxTries: 3,
		},
		Jobs: 1,
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [input]
	v.SetDefault("input.dir", defaultConfig.Input.Dir)
	v.SetDefault("input.extension", defaultConfig.Input.Extension)
	v.SetDefault("input.feature_marker", defaultConfig.Input.FeatureMarker)
	v.SetDefault("input.label_suffix", defaultConfig.Input.LabelSuffix)
	// [tiling]
	v.SetDefault("tiling.tile_size", defaultConfig.Tiling.TileSize)
	v.SetDefault("tiling.resample_factor", defaultConfig.Tiling.ResampleFactor)
	v.SetDefault("tiling.prefix_length", defaultConfig.Tiling.PrefixLength)
	// [output]
	v.SetDefault("output.scratch_dir", defaultConfig.Output.ScratchDir)
	v.SetDefault("output.split_dir", defaultConfig.Output.SplitDir)
	v.SetDefault("output.train_dir", defaultConfig.Output.TrainDir)
	v.SetDefault("output.test_dir", defaultConfig.Output.TestDir)
	v.SetDefault("output.combined_name", defaultConfig.Output.CombinedName)
	v.SetDefault("output.manifest", defaultConfig.Output.Manifest)
	// [split]
	v.SetDefault("split.seed", defaultConfig.Split.Seed)
	v.SetDefault("split.train_ratio", defaultConfig.Split.TrainRatio)
	// [storage]
	v.SetDefault("storage.type", defaultConfig.Storage.Type)
	v.SetDefault("storage.max_tries", defaultConfig.Storage.MaxTries)
	v.SetDefault("jobs", defaultConfig.Jobs)
}

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"input.dir", "DATAMAKER_INPUT_DIR"},
	{"output.scratch_dir", "DATAMAKER_SCRATCH_DIR"},
	{"output.split_dir", "DATAMAKER_SPLIT_DIR"},
	{"tiling.tile_size", "DATAMAKER_TILE_SIZE"},
	{"tiling.resample_factor", "DATAMAKER_RESAMPLE_FACTOR"},
	{"split.seed", "DATAMAKER_SEED"},
	{"jobs", "DATAMAKER_JOBS"},
	{"storage.type", "DATAMAKER_STORAGE_TYPE"},
	{"storage.s3.endpoint", "S3_ENDPOINT"},
	{"storage.s3.access_key_id", "S3_ACCESS_KEY_ID"},
	{"storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY"},
	{"storage.gcs.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS"},
	{"storage.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING"},
	{"storage.azure.account_name", "AZURE_STORAGE_ACCOUNT"},
	{"storage.azure.account_key", "AZURE_STORAGE_KEY"},
}

// LoadConfig loads configuration from defaults, an optional file and environment
// variables, in increasing priority.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Trace(err)
		}
		v.SetConfigFile(path)
		// files without a known extension, e.g. config.toml.template, are TOML
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); !slices.Contains(viper.SupportedExts, ext) {
			v.SetConfigType("toml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	}); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Trace(err)
	}
	switch config.Storage.Type {
	case StorageS3:
		if config.Storage.S3.Endpoint == "" || config.Storage.S3.Bucket == "" {
			return errors.NotValidf("s3 storage without endpoint or bucket")
		}
	case StorageGCS:
		if config.Storage.GCS.Bucket == "" {
			return errors.NotValidf("gcs storage without bucket")
		}
	case StorageAzure:
		if config.Storage.Azure.Container == "" {
			return errors.NotValidf("azure storage without container")
		}
		if config.Storage.Azure.ConnectionString == "" &&
			(config.Storage.Azure.AccountName == "" || config.Storage.Azure.AccountKey == "") {
			return errors.NotValidf("azure storage without connection_string or account_name and account_key")
		}
	}
	return nil
}
