// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//nolint:gochecknoinits // Configs are loaded once, for the whole runtime.
func init() {
	loadApplicationConfigFile()
	dotEnvPath := `.env`
	for range 5 {
		if err := godotenv.Load(dotEnvPath); err == nil {
			break
		}
		dotEnvPath = fmt.Sprintf(`../%v`, dotEnvPath)
	}
}

func MustLoadFromKey(key string, cfg any) {
	if err := viper.UnmarshalKey(key, cfg); err != nil {
		log.Panic(errors.Wrapf(err, "failed to load config by key %q", key))
	}
}

func loadApplicationConfigFile() {
	for _, candidate := range applicationConfigFileCandidates() {
		viper.SetConfigFile(candidate)
		if err := viper.ReadInConfig(); err == nil {
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Panic(err)
		}
	}

	log.Panic(errors.New("could not find any application.yaml files"))
}

func applicationConfigFileCandidates() []string {
	var roots []string
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd)
	}
	if bin, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(bin))
	}
	if _, callerFile, _, ok := runtime.Caller(0); ok {
		roots = append(roots, filepath.Join(filepath.Dir(callerFile), ".."), filepath.Join(filepath.Dir(callerFile), "..", ".."))
	}

	var candidates []string
	for _, root := range roots {
		for _, pattern := range []string{filepath.Join(root, ".testdata", "application.yaml"), filepath.Join(root, "application.yaml")} {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				log.Println(errors.Wrapf(err, "glob failed for [%v]", pattern))

				continue
			}
			candidates = append(candidates, matches...)
		}
	}

	return candidates
}
