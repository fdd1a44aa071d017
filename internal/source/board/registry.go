package board

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kagari/newsdigest/internal/logger"
)

// Board is one registry entry from configs/boards.yaml: a board key and the
// mirror hostnames that may currently serve it, in priority order.
type Board struct {
	Key   string   `yaml:"key"`
	Name  string   `yaml:"name"`
	Hosts []string `yaml:"hosts"`
}

type registryFile struct {
	Boards []Board `yaml:"boards"`
}

var defaultBoards = []Board{
	{
		Key:   "newsplus",
		Name:  "ニュース速報+",
		Hosts: []string{"asahi.5ch.net", "egg.5ch.net", "hayabusa9.5ch.net"},
	},
}

// LoadRegistry reads the board list from a YAML file, falling back to the
// built-in defaults instead of aborting.
func LoadRegistry(path string) []Board {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("boards registry missing, using built-in defaults", "path", path, "error", err)
		return defaultBoards
	}
	defer f.Close()

	var cfg registryFile
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		logger.Warn("boards registry malformed, using built-in defaults", "path", path, "error", err)
		return defaultBoards
	}
	if len(cfg.Boards) == 0 {
		return defaultBoards
	}
	return cfg.Boards
}
